package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIHost      string `envconfig:"CHATLARK_API_HOST"`
	RealtimePath string `envconfig:"CHATLARK_REALTIME_PATH" default:"/ws"`
	// Two accounts sharing at least one room
	SenderIdentity   string `envconfig:"E2E_SENDER_IDENTITY"`
	ReceiverIdentity string `envconfig:"E2E_RECEIVER_IDENTITY"`
	// E2E_DEBUG_JSON dumps full HTTP request/response bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}

func (c Config) Configured() bool {
	return c.APIHost != "" && c.SenderIdentity != "" && c.ReceiverIdentity != ""
}

package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	APIHost      string `env:"CHATLARK_API_HOST,required=true"`
	RealtimePath string `env:"CHATLARK_REALTIME_PATH,default=/ws"`
	Identity     string `env:"CHATLARK_IDENTITY,required=true"`

	PerPage          int `env:"CHATLARK_PER_PAGE,default=50"`
	DirectoryPerPage int `env:"CHATLARK_DIRECTORY_PER_PAGE,default=10"`
	EventBuffer      int `env:"CHATLARK_EVENT_BUFFER,default=64"`

	RequestTimeout    time.Duration `env:"CHATLARK_REQUEST_TIMEOUT,default=10s"`
	DirectoryInterval time.Duration `env:"CHATLARK_DIRECTORY_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"CHATLARK_RESTART_INTERVAL,default=200ms"`
	SinkTimeout       time.Duration `env:"CHATLARK_SINK_TIMEOUT,default=10s"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
}

// LoadConfig decodes the environment and checks the values go-env cannot.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.APIHost, "http://") && !strings.HasPrefix(c.APIHost, "https://") {
		return fmt.Errorf("CHATLARK_API_HOST must start with http:// or https://, got %q", c.APIHost)
	}
	if c.PerPage <= 0 || c.DirectoryPerPage <= 0 {
		return fmt.Errorf("page sizes must be positive, got %d and %d", c.PerPage, c.DirectoryPerPage)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("CHATLARK_EVENT_BUFFER must be positive, got %d", c.EventBuffer)
	}
	if c.DirectoryInterval <= 0 {
		return fmt.Errorf("CHATLARK_DIRECTORY_INTERVAL must be positive, got %s", c.DirectoryInterval)
	}
	return nil
}

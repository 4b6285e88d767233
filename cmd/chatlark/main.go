package main

import (
	"chatlark/internal"
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes of the binary.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

var errConfig = goerrors.New("config error")

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatlark: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if goerrors.Is(err, errConfig) {
			return exitConfig, err
		}
		return exitRuntime, err
	}
	return exitOK, nil
}

// cli carries what the root command resolved for its subcommands.
type cli struct {
	envFile string
	config  internal.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "chatlark",
		Short:         "Terminal client for a chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(c.envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("%w: %w", errConfig, err)
			}
			config, err := internal.LoadConfig()
			if err != nil {
				return fmt.Errorf("%w: %w", errConfig, err)
			}
			c.config = config
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(
		c.roomsCommand(),
		c.createRoomCommand(),
		c.membersCommand(),
		c.searchCommand(),
		c.addMemberCommand(),
		c.removeMemberCommand(),
		c.chatCommand(),
		c.sessionCommand(),
	)
	return root
}

// withApp builds the application for one command and closes it afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, c.config)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

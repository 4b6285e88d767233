package main

import (
	"chatlark/domain"
	"chatlark/repositories"
	"context"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

func (c *cli) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the locally stored user",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print every key of the local store",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				// Read-only so it works while a chat is running.
				return c.withStore(true, func(repository *repositories.SessionRepository) error {
					entries, err := repository.Entries()
					if err != nil {
						return err
					}
					table := newTable(cmd.OutOrStdout(), "Key", "Size", "Value")
					for _, e := range entries {
						table.Append([]string{e.Key, strconv.FormatInt(e.Size, 10), e.Value})
					}
					table.Render()
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "forget",
			Short: "Drop the stored user, the next start asks the server again",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withStore(false, func(repository *repositories.SessionRepository) error {
					return repository.Clear()
				})
			},
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Fetch the current user from the server and store it",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withApp(cmd, func(ctx context.Context, a *app) error {
					session, err := a.sessions.Refresh(ctx, c.config.Identity)
					if err != nil {
						return err
					}
					printUsers(cmd.OutOrStdout(), []domain.User{*session.User})
					return nil
				})
			},
		},
	)
	return cmd
}

// withStore opens the local store alone, without touching the network.
func (c *cli) withStore(readOnly bool, fn func(repository *repositories.SessionRepository) error) error {
	log := logs.GetLoggerFromString(c.config.LogLevel)
	opts := badger.DefaultOptions(c.config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	if readOnly {
		opts = opts.WithReadOnly(true).WithBypassLockGuard(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(repositories.NewSessionRepository(db, log))
}

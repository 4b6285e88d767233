package workers

import (
	"chatlark/contract"
	"context"
	"log/slog"
	"time"
)

// DirectoryPoller refreshes the room directory on a fixed interval.
type DirectoryPoller struct {
	log       *slog.Logger
	directory contract.Refresher
	interval  time.Duration
}

func NewDirectoryPoller(log *slog.Logger, directory contract.Refresher, interval time.Duration) *DirectoryPoller {
	return &DirectoryPoller{log: log, directory: directory, interval: interval}
}

// Run keeps polling until ctx is done. A failed refresh waits for the next tick.
func (w *DirectoryPoller) Run(ctx context.Context) error {
	w.log.Info("Starting directory poller", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.directory.Refresh(ctx); err != nil {
				w.log.Warn("Directory refresh failed", "err", err)
			}
		}
	}
}

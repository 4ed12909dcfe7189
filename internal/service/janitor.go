package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drops idle in-memory state and reports how much it removed.
type Sweeper interface {
	Name() string
	Sweep() int
}

// SweepFunc adapts a function to Sweeper.
type SweepFunc struct {
	Label string
	Fn    func() int
}

// Name implements Sweeper.
func (f SweepFunc) Name() string { return f.Label }

// Sweep implements Sweeper.
func (f SweepFunc) Sweep() int { return f.Fn() }

// RunJanitor sweeps every interval until ctx is done.
func RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger, sweepers ...Sweeper) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sw := range sweepers {
				if n := sw.Sweep(); n > 0 {
					logger.DebugContext(ctx, "idle sessions evicted",
						slog.String("registry", sw.Name()),
						slog.Int("removed", n),
					)
				}
			}
		}
	}
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Schedule runs fn every interval until ctx is cancelled, skipping a tick
// if the previous one is still running rather than overlapping it. This is
// the Go equivalent of cryptotrader.common.make_schedule wrapping a
// Schedulable's tick in an asyncio loop: ticks there never overlapped
// because asyncio is single-threaded, so this rebuilds that guarantee
// explicitly with a mutex instead of relying on real concurrency to give it
// away for free.
func Schedule(ctx context.Context, interval time.Duration, log zerolog.Logger, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var mu sync.Mutex
	running := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			if running {
				mu.Unlock()
				log.Debug().Msg("tick skipped, previous tick still running")
				continue
			}
			running = true
			mu.Unlock()

			func() {
				defer func() {
					mu.Lock()
					running = false
					mu.Unlock()
					if r := recover(); r != nil {
						log.Error().Interface("panic", r).Msg("scheduled tick panicked")
					}
				}()
				fn(ctx)
			}()
		}
	}
}

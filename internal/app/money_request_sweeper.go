/**
 * @description
 * Optional background sweeper that expires stale pending money requests.
 * Expiry is a product-configurable behavior: when MONEY_REQUEST_EXPIRY_MINUTES
 * is zero the sweeper is never started and pending requests live forever.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/instapay/settlement-service/internal/store"
)

const defaultSweepInterval = time.Minute

// MoneyRequestSweeper periodically transitions pending requests older than
// maxAge to the expired state.
type MoneyRequestSweeper struct {
	repo     store.Repository
	maxAge   time.Duration
	interval time.Duration
	stop     chan struct{}
}

// NewMoneyRequestSweeper creates a sweeper. maxAge must be positive; a
// non-positive interval falls back to one minute.
func NewMoneyRequestSweeper(repo store.Repository, maxAge, interval time.Duration) *MoneyRequestSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &MoneyRequestSweeper{
		repo:     repo,
		maxAge:   maxAge,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine.
func (w *MoneyRequestSweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.sweep(ctx)
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the sweep loop.
func (w *MoneyRequestSweeper) Stop() {
	close(w.stop)
}

func (w *MoneyRequestSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.maxAge)
	expired, err := w.repo.ExpireMoneyRequestsBefore(ctx, cutoff)
	if err != nil {
		log.Printf("level=warn component=request_sweeper msg=\"expiry sweep failed\" err=%v", err)
		return
	}
	if expired > 0 {
		log.Printf("level=info component=request_sweeper msg=\"expired stale money requests\" count=%d", expired)
	}
}

// Package workers holds the long-running background loops of the daemon.
package workers

import (
	"context"
	"log"
	"time"

	"finn_scraper/services"
)

// SweepWorker periodically downgrades stale active listings to inactive.
type SweepWorker struct {
	lifecycle *services.LifecycleManager
	days      int
	triggerCh chan struct{}
}

func NewSweepWorker(lifecycle *services.LifecycleManager, days int) *SweepWorker {
	return &SweepWorker{
		lifecycle: lifecycle,
		days:      days,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger causes the worker to sweep immediately.
func (w *SweepWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run loops until the context is cancelled, sweeping on each tick or
// manual trigger.
func (w *SweepWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweep worker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.triggerCh:
			log.Println("Sweep worker triggered manually")
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	if _, err := w.lifecycle.SweepInactive(ctx, w.days); err != nil {
		log.Printf("Sweep: %v", err)
	}
}

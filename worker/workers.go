package worker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"weatherbet/service"
)

// GarbageCollector drops stale retry records
type GarbageCollector interface {
	CollectGarbage(ctx context.Context) (int, error)
}

// StartResolutionWorker sweeps due bets immediately and then on every tick.
// Returns a cleanup function that stops the worker and waits for it to exit.
func StartResolutionWorker(ctx context.Context, resolution service.ResolutionService, interval time.Duration) func() {
	return start(ctx, "Resolution", interval, func(ctx context.Context) {
		changed, err := resolution.SweepDueBets(ctx)
		if err != nil {
			log.WithError(err).Error("Scheduled sweep failed")
			return
		}
		if len(changed) > 0 {
			log.WithField("changed", len(changed)).Info("Scheduled sweep updated bets")
		}
	})
}

// StartRetryGCWorker removes retry records whose bet is gone or settled
func StartRetryGCWorker(ctx context.Context, gc GarbageCollector, interval time.Duration) func() {
	return start(ctx, "Retry GC", interval, func(ctx context.Context) {
		removed, err := gc.CollectGarbage(ctx)
		if err != nil {
			log.WithError(err).Error("Retry garbage collection failed")
			return
		}
		if removed > 0 {
			log.WithField("removed", removed).Info("Removed stale retry records")
		}
	})
}

func start(ctx context.Context, name string, interval time.Duration, run func(context.Context)) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithField("interval", interval).Infof("%s worker started", name)

		// Run immediately on startup
		run(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Infof("%s worker shutting down (context cancelled)...", name)
				return
			case <-stopChan:
				log.Infof("%s worker shutting down (stop requested)...", name)
				return
			case <-ticker.C:
				run(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stopChan)
			<-done
		})
	}
}

// Package batch drives one decision pass over many (sku, location) pairs.
package batch

import (
	"context"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"replenishment-service/internal/gateway"
	"replenishment-service/internal/modal"
)

// Executor decides one pair end to end.
type Executor interface {
	Execute(ctx context.Context, pair gateway.Pair) (modal.Record, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, pair gateway.Pair) (modal.Record, error)

func (f ExecutorFunc) Execute(ctx context.Context, pair gateway.Pair) (modal.Record, error) {
	return f(ctx, pair)
}

type Failure struct {
	Pair gateway.Pair
	Err  error
}

// Summary is the outcome of a pass. Failures are in completion order.
type Summary struct {
	Processed int
	Actions   map[modal.Action]int
	Failures  []Failure
}

// Run executes every pair, at most parallelism at a time. A failed pair never stops the others.
// Cancelling ctx stops scheduling pairs that have not started yet.
func Run(ctx context.Context, pairs []gateway.Pair, parallelism int, exec Executor, log *zap.Logger) Summary {
	if parallelism < 1 {
		parallelism = 1
	}

	var (
		processed = atomic.NewInt64(0)
		replenish = atomic.NewInt64(0)
		snooze    = atomic.NewInt64(0)
		noop      = atomic.NewInt64(0)

		mu       sync.Mutex
		failures []Failure
	)

	g := new(errgroup.Group)
	g.SetLimit(parallelism)
	for _, pair := range pairs {
		if ctx.Err() != nil {
			break
		}
		pair := pair
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rec, err := exec.Execute(ctx, pair)
			processed.Inc()
			if err != nil {
				log.Error("pair failed",
					zap.String("sku_id", pair.SKUID),
					zap.String("location_id", pair.LocationID),
					zap.Error(err))
				mu.Lock()
				failures = append(failures, Failure{Pair: pair, Err: err})
				mu.Unlock()
				return nil
			}

			var action modal.Action
			if rec.Decision != nil {
				action = rec.Decision.Action
			}
			switch action {
			case modal.ActionReplenish:
				replenish.Inc()
			case modal.ActionSnooze:
				snooze.Inc()
			case modal.ActionNoop:
				noop.Inc()
			}
			log.Info("pair decided",
				zap.String("sku_id", pair.SKUID),
				zap.String("location_id", pair.LocationID),
				zap.String("action", string(action)),
				zap.String("journal_id", rec.JournalID))
			return nil
		})
	}
	_ = g.Wait()

	return Summary{
		Processed: int(processed.Load()),
		Actions: map[modal.Action]int{
			modal.ActionReplenish: int(replenish.Load()),
			modal.ActionSnooze:    int(snooze.Load()),
			modal.ActionNoop:      int(noop.Load()),
		},
		Failures: failures,
	}
}

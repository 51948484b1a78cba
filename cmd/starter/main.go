package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"replenishment-service/internal/batch"
	"replenishment-service/internal/config"
	"replenishment-service/internal/gateway"
	"replenishment-service/internal/gateway/snapshot"
	"replenishment-service/internal/logger"
	"replenishment-service/internal/modal"
	"replenishment-service/internal/workflows"
)

// The starter runs one decision pass over every distinct (sku, location) in the inventory snapshot.
// Recurring passes are left to an external scheduler.
func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup finishes before exit.
func run() int {
	var once bool
	flag.BoolVar(&once, "once", false, "run a single pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return 1
	}
	zl, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Printf("build logger: %v", err)
		return 1
	}
	defer func() { _ = zl.Sync() }()

	if !once {
		zl.Info("scheduling is external; running a single pass")
	}

	// Policy is loaded and checked before any workflow starts.
	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		zl.Error("load policy", zap.Error(err))
		return 1
	}

	store, err := snapshot.NewStore(cfg.DataDir)
	if err != nil {
		zl.Error("open snapshot store", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := store.ReadInventory(ctx, gateway.Filter{})
	if err != nil {
		zl.Error("read inventory", zap.Error(err))
		return 1
	}
	pairs := gateway.DistinctPairs(rows)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHostPort,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger.NewTemporalLogger(zl),
	})
	if err != nil {
		zl.Error("unable to create Temporal client", zap.Error(err))
		return 1
	}
	defer c.Close()

	started := time.Now()
	exec := &temporalExecutor{client: c, cfg: cfg, policy: policy, runAt: started.Unix(), log: zl}
	summary := batch.Run(ctx, pairs, cfg.Parallelism, exec, zl)

	return report(zl, len(pairs), summary, time.Since(started))
}

// report logs the pass summary and returns the exit code: non-zero when any pair failed.
func report(zl *zap.Logger, pairs int, summary batch.Summary, elapsed time.Duration) int {
	fields := []zap.Field{
		zap.Int("pairs", pairs),
		zap.Int("processed", summary.Processed),
		zap.Int("replenish", summary.Actions[modal.ActionReplenish]),
		zap.Int("snooze", summary.Actions[modal.ActionSnooze]),
		zap.Int("noop", summary.Actions[modal.ActionNoop]),
		zap.Int("failed", len(summary.Failures)),
		zap.Duration("elapsed", elapsed),
	}
	if len(summary.Failures) > 0 {
		zl.Error("pass completed with failures", fields...)
		return 1
	}
	zl.Info("pass complete", fields...)
	return 0
}

type temporalExecutor struct {
	client client.Client
	cfg    *config.Config
	policy modal.Policy
	runAt  int64
	log    *zap.Logger
}

func (e *temporalExecutor) Execute(ctx context.Context, pair gateway.Pair) (modal.Record, error) {
	opts := client.StartWorkflowOptions{
		ID:                                       fmt.Sprintf("replenish-%s-%s-%d", pair.SKUID, pair.LocationID, e.runAt),
		TaskQueue:                                e.cfg.TaskQueue,
		WorkflowExecutionTimeout:                 5 * time.Minute,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	req := workflows.Request{
		SKUID:           pair.SKUID,
		LocationID:      pair.LocationID,
		Policy:          e.policy,
		ActivityTimeout: e.cfg.ActivityTimeout,
		MaxAttempts:     e.cfg.ActivityMaxAttempts,
	}

	we, err := e.client.ExecuteWorkflow(ctx, opts, workflows.DecideReplenishment, req)
	if err != nil {
		return modal.Record{}, fmt.Errorf("start workflow: %w", err)
	}
	e.log.Debug("workflow started", zap.String("workflow_id", we.GetID()), zap.String("run_id", we.GetRunID()))

	var rec modal.Record
	if err := we.Get(ctx, &rec); err != nil {
		return modal.Record{}, fmt.Errorf("workflow %s: %w", we.GetID(), err)
	}
	return rec, nil
}

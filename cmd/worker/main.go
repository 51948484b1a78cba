package main

import (
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"replenishment-service/internal/activities"
	"replenishment-service/internal/config"
	"replenishment-service/internal/gateway"
	"replenishment-service/internal/gateway/logsink"
	"replenishment-service/internal/gateway/mysqlpo"
	"replenishment-service/internal/gateway/redisalert"
	"replenishment-service/internal/gateway/snapshot"
	"replenishment-service/internal/gateway/sqlitejournal"
	"replenishment-service/internal/logger"
	"replenishment-service/internal/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHostPort,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger.NewTemporalLogger(zl),
	})
	if err != nil {
		zl.Fatal("unable to create Temporal client", zap.Error(err))
	}
	defer c.Close()

	// Gateways are built once and shared by every execution this worker runs.
	signals, err := snapshot.NewStore(cfg.DataDir)
	if err != nil {
		zl.Fatal("open snapshot store", zap.Error(err))
	}
	journal, err := sqlitejournal.Open(cfg.JournalPath)
	if err != nil {
		zl.Fatal("open journal", zap.Error(err))
	}
	defer journal.Close()

	var alerts gateway.AlertPublisher = logsink.NewAlertPublisher(zl)
	if cfg.RedisAddr != "" {
		pub, err := redisalert.NewPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zl.Fatal("connect redis", zap.Error(err))
		}
		defer pub.Close()
		alerts = pub
	}

	var orders gateway.PurchaseOrderWriter = logsink.NewOrderWriter(zl)
	if cfg.MySQLDSN != "" {
		w, err := mysqlpo.NewWriter(cfg.MySQLDSN, cfg.MySQLMigrate)
		if err != nil {
			zl.Fatal("connect mysql", zap.Error(err))
		}
		defer w.Close()
		orders = w
	}

	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.DecideReplenishment)
	w.RegisterActivity(&activities.Activities{
		Inventory: signals,
		Sales:     signals,
		Supply:    signals,
		Catalog:   signals,
		Alerts:    alerts,
		Orders:    orders,
		Journal:   journal,
	})

	zl.Info("worker started",
		zap.String("task_queue", cfg.TaskQueue),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("redis_alerts", cfg.RedisAddr != ""),
		zap.Bool("mysql_orders", cfg.MySQLDSN != ""))
	if err := w.Run(worker.InterruptCh()); err != nil {
		zl.Fatal("worker exited", zap.Error(err))
	}
}

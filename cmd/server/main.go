package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"veristay/internal/audit"
	auditmetrics "veristay/internal/audit/metrics"
	auditstore "veristay/internal/audit/store"
	callbacktoken "veristay/internal/callback_token"
	"veristay/internal/guard"
	"veristay/internal/notify"
	"veristay/internal/platform/config"
	"veristay/internal/platform/httpserver"
	"veristay/internal/platform/logger"
	platformmetrics "veristay/internal/platform/metrics"
	"veristay/internal/platform/postgres"
	platformredis "veristay/internal/platform/redis"
	"veristay/internal/review"
	httptransport "veristay/internal/transport/http"
	verificationmetrics "veristay/internal/verification/metrics"
	verification "veristay/internal/verification/service"
	"veristay/internal/verification/store"
	"veristay/pkg/platform/locks"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when a DSN is configured, in-memory otherwise.
	var (
		records      store.RecordStore
		entries      audit.EntryStore
		healthChecks = map[string]func(ctx context.Context) error{}
	)
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		records = store.NewPostgres(db)
		entries = auditstore.NewPostgres(db)
		healthChecks["postgres"] = db.PingContext
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		records = store.NewInMemory()
		entries = auditstore.NewInMemory()
	}

	// Per-user write locks: Redis when configured, in-process otherwise.
	var locker locks.UserLocker = locks.NewKeyed()
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = locks.NewRedis(redisClient.Client, config.LockTTL)
		healthChecks["redis"] = redisClient.Health
	} else {
		log.Warn("no redis URL configured, per-user locks are in-process only")
	}

	// Notifications: kafka when brokers are configured, in-process sink
	// otherwise. The queue decouples decision latency from delivery.
	var delivery notify.Notifier = notify.NewInMemory()
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka client failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		delivery = kafka
	} else {
		log.Warn("no kafka brokers configured, notifications stay in-process")
	}
	queue := notify.NewQueue(256, log)
	worker := notify.NewWorker(queue, delivery, log)

	recorder := audit.NewRecorder(entries, log, audit.WithMetrics(auditmetrics.New()))
	verificationSvc := verification.New(records, locker, log,
		verification.WithMetrics(verificationmetrics.New()))
	httpMetrics := platformmetrics.New()

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:            log,
		Verification:      verificationSvc,
		Guard:             guard.New(verificationSvc, log),
		Review:            review.New(verificationSvc, recorder, queue, log),
		Reader:            audit.NewSensitiveReader(records, recorder),
		Recorder:          recorder,
		Notifier:          queue,
		AdminToken:        cfg.Server.AdminToken,
		CallbackValidator: callbacktoken.NewService(cfg.Verifier.CallbackSecret, "veristay", "verifier-callbacks"),
		Metrics:           httpMetrics,
		HealthChecks:      healthChecks,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting veristay", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

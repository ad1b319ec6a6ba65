package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipQuery/config"
	"github.com/BearBump/ShipQuery/internal/broker/kafka"
	"github.com/BearBump/ShipQuery/internal/cache/rediscache"
	"github.com/BearBump/ShipQuery/internal/importer/csvsheet"
	"github.com/BearBump/ShipQuery/internal/integrations/ups"
	"github.com/BearBump/ShipQuery/internal/integrations/ups/fake"
	"github.com/BearBump/ShipQuery/internal/integrations/ups/upshttp"
	"github.com/BearBump/ShipQuery/internal/services/refresher"
	"github.com/BearBump/ShipQuery/internal/storage/pgshipments"
)

type refreshConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo refresher.Repository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) refresher.Producer
	newRateLimiter func(cfg *config.Config) refresher.RateLimiter
	newTracker     func(cfg *config.Config) ups.Client
	newSheet       func(cfg *config.Config) refresher.Sheet
	newConsumer    func(cfg *config.Config) refreshConsumer
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (refresher.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgshipments.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) refresher.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			topic := cfg.Kafka.ShipmentUpdatedTopicName
			if topic == "" {
				topic = "shipment.updated"
			}
			return kafka.NewProducer(brokers, topic)
		},
		newRateLimiter: func(cfg *config.Config) refresher.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newTracker: func(cfg *config.Config) ups.Client {
			// Without credentials there is nothing real to call.
			if cfg.UPS.Mode == "fake" || cfg.UPS.ClientID == "" {
				return fake.New()
			}
			return upshttp.New(cfg.UPS.BaseURL, cfg.UPS.ClientID, cfg.UPS.ClientSecret)
		},
		newSheet: func(cfg *config.Config) refresher.Sheet {
			if cfg.ShipQuery.SheetPath == "" {
				return nil
			}
			return csvsheet.New(cfg.ShipQuery.SheetPath)
		},
		newConsumer: func(cfg *config.Config) refreshConsumer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			topic := cfg.Kafka.RefreshRequestedTopicName
			if topic == "" {
				topic = "refresh.requested"
			}
			return kafka.NewConsumer(brokers, topic, "ship-worker")
		},
	}
}

func RunShipWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	refreshInterval := time.Duration(cfg.ShipQuery.WorkerRefreshIntervalSeconds) * time.Second
	if refreshInterval <= 0 {
		refreshInterval = 30 * time.Minute
	}
	batchSize := cfg.ShipQuery.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	concurrency := cfg.ShipQuery.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	rlPerMin := int64(cfg.ShipQuery.WorkerRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 60
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)
	rl := f.newRateLimiter(cfg)
	tracker := f.newTracker(cfg)
	sheet := f.newSheet(cfg)

	ref := refresher.New(repo, tracker, producer, rl, sheet).
		WithSettings(refreshInterval, batchSize, concurrency, rlPerMin)

	// POST /trigger on ship-api lands here.
	if f.newConsumer != nil {
		if consumer := f.newConsumer(cfg); consumer != nil {
			go func() {
				_ = consumer.Consume(ctx, func(_key, _value []byte) error {
					slog.Info("refresh requested via kafka")
					ref.Trigger()
					return nil
				})
			}()
		}
	}

	go func() {
		if err := runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: cfg.ShipQuery.WorkerHTTPAddr,
			ref:      ref,
			cfg:      cfg,
		}); err != nil && err != context.Canceled {
			slog.Error("worker http server", "error", err.Error())
		}
	}()

	return ref.Run(ctx)
}

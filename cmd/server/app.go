package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"baseresource/internal/base"
	httpapi "baseresource/internal/http"
	"baseresource/internal/platform/config"
	"baseresource/internal/platform/database"
	"baseresource/internal/platform/kafka"
	"baseresource/internal/platform/logger"
	platformmetrics "baseresource/internal/platform/metrics"
	platformredis "baseresource/internal/platform/redis"
	"baseresource/internal/resource/events"
	"baseresource/internal/resource/handler"
	resourcemetrics "baseresource/internal/resource/metrics"
	"baseresource/internal/resource/service"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	db       *sql.DB
	redis    *platformredis.Client
	kafka    *kgo.Client
	service  *service.Service[base.Resource, *base.Resource]
}

type appOptions struct {
	// events enables lifecycle publishing; one-shot commands leave it off.
	events bool
}

func loadConfig(path string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "baseresource"})
	slog.SetDefault(log)
	return cfg, log, nil
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: log, registry: platformmetrics.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	switch cfg.Store.Driver {
	case base.DriverPostgres:
		if a.db, err = database.Open(ctx, cfg.Database); err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			applied, err := database.MigrateUp(ctx, a.db)
			if err != nil {
				return nil, err
			}
			log.InfoContext(ctx, "migrations applied", "count", applied)
		}
	case base.DriverRedis:
		if a.redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
			return nil, err
		}
	}

	backends := base.Backends{DB: a.db}
	if a.redis != nil {
		backends.Redis = a.redis.Client
	}
	repo, err := base.NewRepository(cfg.Store.Driver, backends)
	if err != nil {
		return nil, err
	}

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(resourcemetrics.New(a.registry)),
		service.WithMaxLimit(cfg.Resource.MaxLimit),
	}
	if opts.events {
		publisher, err := a.publisher(ctx)
		if err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithPublisher(publisher))
	}
	if a.service, err = service.New[base.Resource](base.Name, repo, svcOpts...); err != nil {
		return nil, err
	}
	return a, nil
}

// publisher returns the Kafka publisher when brokers are configured and the
// log publisher otherwise.
func (a *app) publisher(ctx context.Context) (events.Publisher, error) {
	if !a.cfg.Kafka.Enabled() {
		return events.NewLogPublisher(a.logger), nil
	}
	client, err := kafka.New(a.cfg.Kafka)
	if err != nil {
		return nil, err
	}
	a.kafka = client
	if a.cfg.Kafka.CreateTopic {
		if err := kafka.EnsureTopic(ctx, kafka.NewAdmin(client), a.cfg.Kafka.Topic,
			a.cfg.Kafka.Partitions, a.cfg.Kafka.ReplicationFactor); err != nil {
			return nil, err
		}
	}
	return events.NewKafkaPublisher(client, a.cfg.Kafka.Topic,
		events.WithBreaker(a.cfg.Kafka.BreakerThreshold, a.cfg.Kafka.BreakerCooldown),
		events.WithPublishTimeout(a.cfg.Kafka.PublishTimeout)), nil
}

func (a *app) router() http.Handler {
	h := handler.New[base.Resource](a.service, base.Name, a.logger,
		handler.WithLimits(a.cfg.Resource.DefaultLimit, a.cfg.Resource.MaxLimit))

	var checks []httpapi.HealthCheck
	if a.db != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "database", Check: a.db.PingContext})
	}
	if a.redis != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "redis", Check: a.redis.Health})
	}
	if a.kafka != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "kafka", Check: a.kafka.Ping})
	}

	return httpapi.NewRouter(httpapi.Options{
		Logger:         a.logger,
		Metrics:        platformmetrics.New(a.registry),
		Gatherer:       a.registry,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		Resources:      []httpapi.Resource{{Path: a.cfg.Resource.Path, Register: h.Register}},
		HealthChecks:   checks,
	})
}

// Close releases every opened connection.
func (a *app) Close() error {
	var errs []error
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

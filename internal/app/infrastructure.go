package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/visitka/visitka-backend/internal/config"
	"github.com/visitka/visitka-backend/internal/migrations"
	"github.com/visitka/visitka-backend/pkg/database"
	"github.com/visitka/visitka-backend/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const serviceName = "visitka-backend"

type Infrastructure interface {
	Postgres() *database.Postgres
	// Redis is nil unless the Redis rate limiter is selected
	Redis() *database.Redis
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres       *database.Postgres
	redis          *database.Redis
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	postgres, err := database.NewPostgres(ctx, cfg.PostgresDSN(), database.PoolOptions{
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres

	if cfg.Migrations.Enabled {
		if err := migrations.Run(postgres.DB, cfg.Migrations.Path); err != nil {
			_ = i.postgres.Close()
			return nil, err
		}
		logger.Info("database migrations applied", zap.String("path", cfg.Migrations.Path))
	}

	if cfg.Security.RateLimitBackend == config.RateLimitBackendRedis {
		redis, err := database.NewRedis(ctx, database.RedisOptions{
			URL:         cfg.Redis.URL,
			Addr:        cfg.Redis.Address(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout.Duration,
		})
		if err != nil {
			_ = i.postgres.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		i.redis = redis
	}

	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName)
	if err != nil {
		_ = i.closeStores()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) closeStores() error {
	var redisErr error
	if i.redis != nil {
		redisErr = i.redis.Close()
	}
	return errors.Join(i.postgres.Close(), redisErr)
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 2)

	go func() { errs <- i.closeStores() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs)
}

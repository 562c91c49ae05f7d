package bootstrap

import (
	"context"
	"errors"

	"invoicing-service/internal/application"
	"invoicing-service/internal/config"
	"invoicing-service/internal/infrastructure/logx"
	"invoicing-service/internal/infrastructure/metrics"
	"invoicing-service/internal/infrastructure/pg"
	redisstore "invoicing-service/internal/infrastructure/redis"
	"invoicing-service/internal/unitofwork"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required")

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() config.Config { return config.Load() }

func ProvideDB(ctx context.Context, log *zap.Logger, cfg config.Config) (*pg.DB, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL, pg.Options{
		MaxConns:       int32(cfg.PGMaxConns),
		MinConns:       int32(cfg.PGMinConns),
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, func() {}, err
	}
	if cfg.MigrateOnStart {
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, func() {}, err
		}
		log.Info("migrations applied")
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return db, cleanup, nil
}

// ProvideIdempotency returns the redis store, or a no-op store when redis is
// disabled. The ping func is nil for the no-op store.
func ProvideIdempotency(ctx context.Context, log *zap.Logger, cfg config.Config) (application.IdempotencyStore, func(context.Context) error, func()) {
	if !cfg.RedisEnabled {
		log.Info("idempotency disabled")
		return application.NoopIdempotency{}, nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := redisstore.New(client, cfg.RedisTTL)
	if err := store.Ping(ctx); err != nil {
		log.Warn("redis not reachable yet", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	return store, store.Ping, func() { _ = client.Close() }
}

func ProvideMetrics() (*metrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return metrics.New(reg), reg
}

func ProvideCoordinator(db *pg.DB, log *zap.Logger, m *metrics.Metrics) *unitofwork.Coordinator {
	return unitofwork.NewCoordinator(pg.NewDriver(db),
		unitofwork.WithLogger(log.Named("uow")),
		unitofwork.WithObserver(m),
	)
}

func ProvideItemService(db *pg.DB, coord *unitofwork.Coordinator, idem application.IdempotencyStore) *application.ItemService {
	return application.NewItemService(pg.NewItemRepo(db), coord, idem)
}

package pg

import (
	"context"
	"fmt"
	"time"

	infraconfig "invoicing-service/internal/infrastructure/config"
	"invoicing-service/internal/infrastructure/logx"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type DB struct{ Pool *pgxpool.Pool }

type Options struct {
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxConns <= 0 {
		o.MaxConns = infraconfig.DefaultPGMaxConns
	}
	if o.MinConns <= 0 {
		o.MinConns = infraconfig.DefaultPGMinConns
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = infraconfig.DefaultConnectTimeout
	}
	return o
}

// Connect opens the pool and waits, with exponential backoff, until the
// server accepts connections or opts.ConnectTimeout elapses.
func Connect(ctx context.Context, url string, opts ...Options) (*DB, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	o = o.withDefaults()

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse pg url: %w", err)
	}
	cfg.MaxConns, cfg.MinConns = o.MaxConns, o.MinConns
	cfg.MaxConnIdleTime = infraconfig.DefaultPGMaxConnIdleTime
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pg pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = o.ConnectTimeout
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logx.L().Warn("pg.ping_failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close()                         { d.Pool.Close() }
func (d *DB) Ping(ctx context.Context) error { return d.Pool.Ping(ctx) }

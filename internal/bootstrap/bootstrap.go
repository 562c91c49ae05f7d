package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"invoicing-service/internal/config"
	httpserver "invoicing-service/internal/infrastructure/http"
)

// InitAPI builds the HTTP handler and everything behind it. The returned
// cleanup closes resources in reverse order of creation.
func InitAPI(ctx context.Context, cfg config.Config) (http.Handler, func(), error) {
	log := ProvideLogger()

	db, closeDB, err := ProvideDB(ctx, log, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init db: %w", err)
	}
	idem, pingRedis, closeRedis := ProvideIdempotency(ctx, log, cfg)
	m, reg := ProvideMetrics()
	coord := ProvideCoordinator(db, log, m)
	items := ProvideItemService(db, coord, idem)

	srv := httpserver.NewServer(items, coord, httpserver.WithMetrics(m, reg))
	srv.SetReadyCheck(func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return err
		}
		if pingRedis != nil {
			return pingRedis(ctx)
		}
		return nil
	})

	cleanup := func() {
		closeRedis()
		closeDB()
	}
	return httpserver.NewRouter(srv), cleanup, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/crudkit/internal/catalog"
	"github.com/odyssey-erp/crudkit/internal/observability"
	"github.com/odyssey-erp/crudkit/internal/platform/cache"
	"github.com/odyssey-erp/crudkit/internal/platform/db"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/view"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Backend is an opened catalog storage.
type Backend struct {
	Name   string
	Stores *catalog.Stores
	pool   *pgxpool.Pool
}

// Close releases the connection pool, if any.
func (b *Backend) Close() {
	if b != nil && b.pool != nil {
		b.pool.Close()
	}
}

// OpenBackend connects to PostgreSQL when PG_DSN is set and runs migrations. Without it the
// catalog lives in memory and is seeded with sample data.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backend, error) {
	if cfg.PGDSN == "" {
		stores := catalog.NewMemoryStores()
		n, err := catalog.Seed(ctx, stores)
		if err != nil {
			return nil, fmt.Errorf("app: seed memory catalog: %w", err)
		}
		logger.Info("using in-memory catalog", slog.Int("seeded_books", n))
		return &Backend{Name: BackendMemory, Stores: stores}, nil
	}
	pool, err := db.New(ctx, cfg.DBOptions())
	if err != nil {
		return nil, err
	}
	if err := catalog.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	stores, err := catalog.NewPostgresStores(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Backend{Name: BackendPostgres, Stores: stores, pool: pool}, nil
}

// openSessionStore connects to REDIS_ADDR. An empty address keeps sessions in process.
func openSessionStore(ctx context.Context, cfg *Config, logger *slog.Logger) (shared.SessionStore, func(), error) {
	if cfg.RedisAddr == "" {
		if cfg.IsProduction() {
			logger.Warn("REDIS_ADDR is empty; sessions are kept in process and lost on restart")
		}
		return shared.NewMemorySessionStore(nil), func() {}, nil
	}
	client, err := cache.New(ctx, cfg.CacheOptions())
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	return shared.NewRedisSessionStore(client), closeFn, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	sessions, closeSessions, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("app: parse templates: %w", err)
	}
	metrics := observability.NewMetrics()
	metrics.SetStoreBackend(backend.Name)
	sessionManager := shared.NewSessionManager(sessions, shared.SessionOptions{
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProduction(),
		Secret: cfg.SessionSecret,
	})

	router, err := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    shared.NewCSRFManager(cfg.CSRFSecret),
		Stores:         backend.Stores,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", backend.Name))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	select {
	case err := <-serveErr:
		return fmt.Errorf("app: http server: %w", err)
	default:
		return nil
	}
}

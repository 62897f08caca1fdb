// Package app wires the parley server runtime: config, logging, HTTP routes,
// persistence, and the realtime websocket gateway.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parley/cmd/internal/auth"
	"parley/cmd/internal/chat"
)

// App owns the HTTP server wiring and the realtime gateway dependencies.
type App struct {
	cfg Config
	log Logger

	store     chat.Store
	dbPool    *pgxpool.Pool
	dbEnabled bool

	ws      *chat.Gateway
	promReg *prometheus.Registry
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	store, dbPool, dbEnabled, err := newStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	verifier, err := newVerifier(cfg, log)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := chat.NewMetrics(promReg)

	ws := chat.NewGateway(log, chat.NewRegistry(log), store, verifier, metrics, chat.GatewayConfig{
		OriginRequired: cfg.WSOriginRequired,
		AllowedOrigins: cfg.WSAllowedOrigins,
		DevInsecure:    cfg.WSDevInsecure,

		WriteTimeout:    cfg.WSWriteTimeout,
		ReadIdleTimeout: cfg.WSReadIdleTimeout,
		SendQueueSize:   cfg.WSSendQueueSize,

		HeartbeatInterval: cfg.WSHeartbeatInterval,
		HeartbeatTimeout:  cfg.WSHeartbeatTimeout,

		RateLimitEvents: cfg.WSRateLimitEvents,
		RateLimitWindow: cfg.WSRateLimitWindow,
	})

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		ws:        ws,
		promReg:   promReg,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	handler := newRouter(a.log, a.cfg, a.dbPool, a.dbEnabled, a.ws, a.promReg)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(handler, a.log),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

// newStore decides between Postgres-backed persistence and the in-memory dev
// store. The dev store is seeded with one personal chat and one group so a
// fresh checkout can be exercised without a database.
func newStore(ctx context.Context, cfg Config, log Logger) (chat.Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		mem := chat.NewMemoryStore()
		chatID, _ := mem.AddPersonalChat("dev chat", 1, 2)
		groupID, _ := mem.AddGroup("dev group", 1)
		log.Info("db.disabled.inmemory_store", "seed_chat_id", chatID, "seed_group_id", groupID)
		return mem, nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, err
	}

	// Ownership model: app owns the pool lifecycle, PostgresStore.Close is a no-op.
	store, err := chat.NewPostgresStore(pool, chat.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return store, pool, true, nil
}

// newVerifier picks the token verifier: JWT when a secret is configured,
// otherwise a single static dev token.
func newVerifier(cfg Config, log Logger) (auth.Verifier, error) {
	if cfg.JWTSecret != "" {
		return auth.NewJWTVerifier([]byte(cfg.JWTSecret))
	}

	log.Warn("auth.dev_token_mode", "hint", "set PARLEY_JWT_SECRET for real token verification")
	return &auth.StaticVerifier{
		Tokens: map[string]auth.Principal{
			cfg.DevToken: {UserID: 1},
		},
	}, nil
}

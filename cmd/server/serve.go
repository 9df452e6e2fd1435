package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"titanhub/internal/config"
	"titanhub/internal/db"
	"titanhub/internal/logging"
	"titanhub/internal/metrics"
	"titanhub/internal/middleware"
	"titanhub/internal/router"
	"titanhub/internal/services"
	"titanhub/internal/session"
	"titanhub/internal/store"
	"titanhub/internal/store/gormstore"
	"titanhub/internal/store/memstore"
	"titanhub/internal/utils"
)

const (
	serviceName     = "titanhub"
	cookieName      = "titanhub_session"
	topCacheSize    = 256
	shutdownTimeout = 10 * time.Second
)

type loader func(cmd *cobra.Command) (*config.Config, error)

func newServeCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	log := logging.Setup(serviceName, cfg.LogFormat, cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)
	return log
}

// openStore returns the configured store and, for postgres, the gorm handle
// so the session backend can share it.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, *gorm.DB, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return memstore.New(), nil, nil
	}
	conn, err := db.Open(ctx, db.Options{
		DSN:          cfg.DatabaseURL,
		ConnectTries: cfg.ConnectTries,
		SlowQuery:    cfg.SlowQuery,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(conn); err != nil {
		_ = db.Close(conn)
		return nil, nil, err
	}
	return gormstore.New(conn), conn, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg)
	gin.SetMode(gin.ReleaseMode)

	if cfg.InsecureSecret() {
		log.Warn("SESSION_SECRET is the built-in default, set a real secret in production")
	}

	st, conn, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if conn != nil {
		defer func() { _ = db.Close(conn) }()
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		if rdb = config.NewRedisClient(ctx, cfg); rdb == nil {
			if cfg.SessionBackend == config.SessionRedis {
				return errors.New("redis session backend configured but redis is unreachable")
			}
			log.Warn("redis unreachable, upvote rate limiting disabled", "addr", cfg.RedisAddr)
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	sweepEvery := cfg.SessionSweepInt
	if sweepEvery <= 0 {
		sweepEvery = 10 * time.Minute
	}

	var sessions session.Store
	switch cfg.SessionBackend {
	case config.SessionRedis:
		sessions = session.NewRedisStore(rdb)
	case config.SessionPostgres:
		gs := session.NewGormStore(conn)
		sessions = gs
		g.Go(func() error {
			sweepSessions(gctx, gs, sweepEvery, log)
			return nil
		})
	default:
		ms := session.NewMemoryStore()
		sessions = ms
		g.Go(func() error {
			ms.RunJanitor(gctx, sweepEvery)
			return nil
		})
	}

	var events services.Publisher = services.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub := services.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, log)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pub.Close(closeCtx); err != nil {
				log.Warn("event publisher close", "error", err)
			}
		}()
		events = pub
	}

	m := metrics.New()
	deps := services.Deps{
		Store:    st,
		Sessions: sessions,
		Hasher:   utils.NewPasswordHasher(),
		Events:   events,
		Metrics:  m,
		Logger:   log,
	}

	created, err := services.EnsureAdmin(ctx, deps, services.AdminAccount{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Email:    cfg.AdminEmail,
	})
	if err != nil {
		return err
	}
	if created {
		log.Info("bootstrap admin created", "username", cfg.AdminUsername)
	}

	cache, err := utils.NewTTLCache(topCacheSize)
	if err != nil {
		return err
	}
	reconciler := services.NewReconciler(deps, cfg.ReconcileInterval)
	g.Go(func() error {
		reconciler.Run(gctx)
		return nil
	})

	stats := services.NewStatsService(deps, cfg.GithubStars)
	auth, err := services.NewAuthService(deps, stats, cfg.SessionTTL)
	if err != nil {
		return err
	}
	content := services.NewContentService(deps, stats, services.ContentOptions{
		Cache:      cache,
		CacheTTL:   cfg.TopCacheTTL,
		Reconciler: reconciler,
	})

	rd := router.Deps{
		Auth:    auth,
		Content: content,
		Stats:   stats,
		Health:  st,
		Logger:  log,
		Metrics: m,
		Redis:   rdb,
		Cookie: middleware.CookieOptions{
			Name:     cookieName,
			Secret:   cfg.SessionSecret,
			TTL:      cfg.SessionTTL,
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
		},
	}
	if cfg.RateLimit.Enabled && rdb != nil {
		rd.RateLimit = &middleware.RateLimitOptions{
			Capacity:       cfg.RateLimit.Capacity,
			RefillTokens:   cfg.RateLimit.RefillTokens,
			RefillInterval: cfg.RateLimit.RefillInterval,
			TTL:            cfg.RateLimit.TTL,
			Prefix:         cfg.RateLimit.Prefix,
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.New(rd),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info("titanhub server starting", "addr", cfg.Addr, "storage", cfg.Storage, "sessions", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func sweepSessions(ctx context.Context, gs *session.GormStore, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := gs.Sweep(ctx)
			if err != nil {
				log.Error("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

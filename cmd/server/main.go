package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-portal/internal/authz"
	"github.com/iliyamo/clinic-portal/internal/clinicapi"
	"github.com/iliyamo/clinic-portal/internal/config"
	"github.com/iliyamo/clinic-portal/internal/database"
	"github.com/iliyamo/clinic-portal/internal/handler"
	"github.com/iliyamo/clinic-portal/internal/logger"
	"github.com/iliyamo/clinic-portal/internal/middleware"
	"github.com/iliyamo/clinic-portal/internal/queue"
	"github.com/iliyamo/clinic-portal/internal/repository"
	"github.com/iliyamo/clinic-portal/internal/router"
	"github.com/iliyamo/clinic-portal/internal/seal"
	"github.com/iliyamo/clinic-portal/internal/session"
	"github.com/iliyamo/clinic-portal/internal/view"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codec, err := seal.New(cfg.SealSecret)
	if err != nil {
		log.Fatal("session codec", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and search cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	store := sessionStore(ctx, cfg, rdb, log)
	sessions := session.NewManager(session.Options{
		Secret: cfg.SessionSecret,
		TTL:    cfg.SessionTTL,
		Secure: cfg.CookieSecure,
	}, store, codec, log)

	api := clinicapi.New(cfg.APIBaseURL, cfg.APITimeout, config.LoadAPIPaths(), log)
	if cc := config.LoadCacheConfig(); cc.Enabled {
		api.WithCache(clinicapi.NewRedisSearchCache(rdb, cc.Prefix, cc.TTL, cc.MaxBodyBytes))
	}
	resolver := authz.NewResolver(api, log)

	var events queue.Publisher = queue.NopPublisher{}
	if qc := config.LoadQueueConfig(); qc.Enabled {
		events = queue.NewAMQPPublisher(qc.URL, qc.Queue, log)
		consumer := queue.NewConsumer(qc.URL, qc.Queue, qc.AuditLog, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("appointment consumer stopped", zap.Error(err))
			}
		}()
	}

	renderer, err := view.New()
	if err != nil {
		log.Fatal("templates", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = handler.NewFormValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(requestLogger(log))
	e.Use(sessions.Middleware())

	h := router.Handlers{
		Auth:    handler.NewAuthHandler(api, resolver, cfg.RememberDays, cfg.CookieSecure, log),
		Pages:   handler.NewPageHandler(log),
		Patient: handler.NewPatientHandler(api, events, log),
		Doctor:  handler.NewDoctorHandler(api, log),
	}
	g := router.Gates{
		Resolver: resolver,
		Limiter:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Log:      log,
	}
	router.RegisterRoutes(e, h, g)
	router.RegisterPages(e, h, g)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("api", cfg.APIBaseURL))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

// sessionStore picks the backend named by SESSION_BACKEND.  A backend that
// cannot be reached falls back to process memory.
func sessionStore(ctx context.Context, cfg config.Config, rdb *redis.Client, log *zap.Logger) session.Store {
	switch cfg.SessionBackend {
	case "redis":
		if rdb != nil {
			return session.NewRedisStore(rdb, "sess")
		}
		log.Warn("SESSION_BACKEND=redis but redis is unavailable, using memory")
	case "mysql":
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Warn("mysql unavailable, using memory sessions", zap.Error(err))
			break
		}
		repo := repository.NewSessionRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal("session table", zap.Error(err))
		}
		go purgeSessions(ctx, repo, log)
		return repo
	}
	return session.NewMemoryStore()
}

func purgeSessions(ctx context.Context, repo *repository.SessionRepo, log *zap.Logger) {
	t := time.NewTicker(15 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = repo.DB.Close()
			return
		case <-t.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				log.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("expired sessions purged", zap.Int64("rows", n))
			}
		}
	}
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				log.Warn("request", fields...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/myteacher-portal/api/swagger"
	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/handler"
	"github.com/noah-isme/myteacher-portal/internal/middleware"
	"github.com/noah-isme/myteacher-portal/internal/repository"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/internal/session"
	"github.com/noah-isme/myteacher-portal/pkg/cache"
	"github.com/noah-isme/myteacher-portal/pkg/config"
	"github.com/noah-isme/myteacher-portal/pkg/database"
	"github.com/noah-isme/myteacher-portal/pkg/export"
	"github.com/noah-isme/myteacher-portal/pkg/jobs"
	"github.com/noah-isme/myteacher-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/myteacher-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/myteacher-portal/pkg/middleware/requestid"
)

// @title MyTeacher Portal API
// @version 1.0.0
// @description Session-holding portal in front of the MyTeacher REST backend
// @BasePath /api/v1
// @schemes http https

const purgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	client, err := backend.New(backend.Config{
		BaseURL:      cfg.Backend.BaseURL,
		Timeout:      cfg.Backend.Timeout,
		RefreshPaths: cfg.Backend.RefreshPaths,
		Logger:       logr,
		Observer:     metrics,
	})
	if err != nil {
		logr.Fatal("invalid backend configuration", zap.Error(err))
	}

	pingers := map[string]handler.Pinger{
		"backend": handler.PingFunc(func(ctx context.Context) error {
			_, err := client.Probe(ctx, nil, "/")
			return err
		}),
	}

	var redisClient *redis.Client
	if cfg.Session.Store == config.SessionStoreRedis || cfg.Catalog.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close() //nolint:errcheck
	}

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient, "myteacher")
		pingers["redis"] = repo
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && cacheRepo != nil)

	store, db, err := openSessionStore(ctx, cfg, redisClient, metrics, logr)
	if err != nil {
		logr.Fatal("failed to open session store", zap.Error(err))
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
		pingers["postgres"] = handler.PingFunc(db.PingContext)
	}

	manager := session.NewManager(store, client, session.Config{
		TTL:                cfg.Session.TTL,
		RevalidateInterval: cfg.Session.RevalidateInterval,
		Logger:             logr,
	})
	unsubscribe := manager.Subscribe(func(ctx context.Context, event session.Event, sess *session.Session) {
		metrics.RecordSessionEvent(string(event))
		if sess != nil {
			logger.FromContext(ctx, logr).Debug("session event", zap.String("event", string(event)), zap.Int64("user_id", int64(sess.UserID)))
		}
	})
	defer unsubscribe()

	revalidations := jobs.NewQueue("session-revalidate", manager.RevalidateJob, jobs.QueueConfig{
		Workers:    cfg.Session.Workers,
		BufferSize: 256,
		Logger:     logr,
	})
	revalidations.Start(ctx)
	defer revalidations.Stop()

	if purger, ok := store.(*repository.SessionRepository); ok {
		go purgeExpired(ctx, purger, logr)
	}

	discovery := service.NewDiscoveryService(client, service.DiscoveryConfig{
		AvailabilityEndpoint:   cfg.Backend.AvailabilityEndpoint,
		BlackoutEndpoint:       cfg.Backend.BlackoutEndpoint,
		AvailabilityCandidates: cfg.Backend.AvailabilityCandidates,
		BlackoutCandidates:     cfg.Backend.BlackoutCandidates,
		ProbeOnStartup:         cfg.Backend.ProbeOnStartup,
	}, logr)
	discovery.Resolve(ctx)

	validate := validator.New()
	cookies := middleware.NewCookies(cfg.Session.CookieName, cfg.Session.Secret, cfg.Session.CookieSecure, cfg.Session.TTL)

	authSvc := service.NewAuthService(client, manager, logr)
	catalogSvc := service.NewCatalogService(client, cacheSvc, validate, logr, service.CatalogConfig{ProfileConcurrency: cfg.Backend.ProfileConcurrency})
	bookingSvc := service.NewBookingService(client, validate, logr)
	messagingSvc := service.NewMessagingService(client, validate, logr, service.MessagingConfig{ProfileConcurrency: cfg.Backend.ProfileConcurrency})
	reviewSvc := service.NewReviewService(client, validate, logr)
	dashboardSvc := service.NewDashboardService(client, cacheSvc, logr, service.DashboardConfig{CacheTTL: cfg.Catalog.CacheTTL})
	availabilitySvc := service.NewAvailabilityService(client, discovery, validate, export.NewRenderer(), logr)

	metricsHandler := handler.NewMetricsHandler(metrics, discovery, pingers)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.Use(middleware.Session(cookies, manager, revalidations, logr))
	handler.Routes{
		Auth:         handler.NewAuthHandler(authSvc, cookies),
		Catalog:      handler.NewCatalogHandler(catalogSvc),
		Booking:      handler.NewBookingHandler(bookingSvc),
		Messaging:    handler.NewMessagingHandler(messagingSvc),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Reviews:      handler.NewReviewHandler(reviewSvc),
		Dashboard:    handler.NewDashboardHandler(dashboardSvc),
		Metrics:      metricsHandler,
		Diagnostics:  cfg.Env != config.EnvProduction,
	}.Register(api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "session_store", cfg.Session.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openSessionStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, metrics *service.MetricsService, logr *zap.Logger) (session.Store, *sqlx.DB, error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		return repository.NewRedisSessionRepository(redisClient), nil, nil
	case config.SessionStorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if _, err := database.Migrate(ctx, db, logr); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repository.NewSessionRepository(db, metrics), db, nil
	default:
		return session.NewMemoryStore(), nil, nil
	}
}

func purgeExpired(ctx context.Context, repo *repository.SessionRepository, logr *zap.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				logr.Warn("purge expired sessions failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logr.Info("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordanlanch/replykit/config"
	"github.com/jordanlanch/replykit/pkg/ai/llm"
	"github.com/jordanlanch/replykit/pkg/api/handlers"
	custommiddleware "github.com/jordanlanch/replykit/pkg/api/middleware"
	"github.com/jordanlanch/replykit/pkg/auth"
	"github.com/jordanlanch/replykit/pkg/cache"
	"github.com/jordanlanch/replykit/pkg/devices"
	"github.com/jordanlanch/replykit/pkg/jobs"
	"github.com/jordanlanch/replykit/pkg/messages"
	"github.com/jordanlanch/replykit/pkg/metrics"
	"github.com/jordanlanch/replykit/pkg/session"
	"github.com/jordanlanch/replykit/pkg/store"
	"github.com/jordanlanch/replykit/pkg/style"
	"github.com/jordanlanch/replykit/pkg/subscriptions"
	"github.com/jordanlanch/replykit/pkg/usage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Sentry
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.APIEnvironment,
		})
		if err != nil {
			log.Printf("⚠️  Sentry initialization failed: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Store. The pool connects lazily, so a database that is down at
	// boot shows up on the health endpoint instead of crashing here.
	db, err := store.NewPostgres(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Invalid database configuration: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it logout cannot blacklist access
	// tokens, everything else still works.
	var blacklist *auth.TokenBlacklist
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Printf("⚠️  Redis unavailable, access-token blacklist disabled: %v", err)
	} else {
		defer redisClient.Close()
		blacklist = auth.NewTokenBlacklist(redisClient)
	}

	// Core services
	signer := auth.NewSigner(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	sessionManager := session.NewManager(db, signer, cfg.RefreshTokenTTL)
	deviceService := devices.NewService(db)
	subscriptionService := subscriptions.NewService(db, cfg.TrialDays)
	usageService := usage.NewService(db, usage.Limits{Pro: cfg.ProDailyLimit, Default: cfg.FreeDailyLimit})
	styleService := style.NewService(db)

	var gateway llm.Client
	if cfg.OpenAIAPIKey != "" {
		gateway = llm.NewOpenAIClient(llm.Config{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel}, nil)
	} else {
		log.Println("⚠️  OPENAI_API_KEY not set, serving canned suggestions")
		gateway = llm.MockClient{}
	}
	messageService := messages.NewService(db, styleService, subscriptionService, usageService, gateway)

	prometheusMetrics := metrics.New()

	// Scheduled jobs
	cronManager := jobs.NewCronManager(subscriptionService, nil)
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to set up cron jobs: %v", err)
	}
	cronManager.Start()
	defer cronManager.Stop()

	// Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())

	// Rate limiters
	authRateLimiter := custommiddleware.NewRateLimiter(5, 2)
	registerRateLimiter := custommiddleware.NewRateLimiter(3, 1)
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Handlers
	authHandler := handlers.NewAuthHandler(db, cfg, sessionManager, deviceService, subscriptionService, styleService, blacklist, prometheusMetrics)
	userHandler := handlers.NewUserHandler(db, subscriptionService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	styleHandler := handlers.NewStyleHandler(styleService)
	messageHandler := handlers.NewMessageHandler(messageService, gateway.Provider(), prometheusMetrics)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	webhookHandler := handlers.NewWebhookHandler()
	healthHandler := handlers.NewHealthHandler(db)

	// Public routes
	e.GET("/health", healthHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register, registerRateLimiter.RateLimitMiddleware())
	authGroup.POST("/login", authHandler.Login, authRateLimiter.RateLimitMiddleware())
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)

	v1.POST("/webhooks/stripe", webhookHandler.Stripe)

	// Protected routes
	protected := v1.Group("")
	protected.Use(custommiddleware.JWTMiddlewareWithBlacklist(signer, blacklist))
	protected.GET("/me", userHandler.Me)
	protected.GET("/devices", deviceHandler.List)
	protected.POST("/devices/register", deviceHandler.Register)
	protected.GET("/style", styleHandler.Get)
	protected.PUT("/style", styleHandler.Update)
	protected.GET("/subscriptions/me", subscriptionHandler.Me)
	protected.POST("/messages/generate", messageHandler.Generate)

	// Start server
	go func() {
		addr := cfg.APIHost + ":" + cfg.APIPort
		log.Printf("🚀 Starting API server on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Forced shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradepulse/backend/internal/config"
	"tradepulse/backend/internal/handler"
	"tradepulse/backend/internal/middleware"
	"tradepulse/backend/internal/repository"
	"tradepulse/backend/internal/service"
	"tradepulse/backend/pkg/jwt"
	"tradepulse/backend/pkg/logger"
	"tradepulse/backend/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.GetLogger()

	log.Info("Starting TradePulse Backend...")
	log.Infof("Environment: %s", cfg.Server.Env)

	// Initialize Redis
	log.Info("Connecting to Redis...")
	redisClient, err := redis.New(redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	log.Info("✓ Redis connected")

	// Set Gin mode
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Apply middleware
	router.Use(middleware.Recovery(log))                                           // Panic recovery
	router.Use(middleware.RequestID())                                             // Request ID
	router.Use(middleware.Logger(log))                                             // Request logging
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))                           // CORS
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimit.RequestsPerMinute)) // Rate limiting

	// Initialize JWT manager
	jwtManager := jwt.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)

	// Initialize repositories
	sessionRepo := repository.NewSessionRepository(redisClient)

	// Dashboard WebSocket hub
	hub := service.NewWSHub()
	go hub.Run()

	// Initialize services
	sessionService := service.NewSessionService(sessionRepo, jwtManager, hub, service.SessionServiceConfig{
		EngineAPIURL:   cfg.Engine.APIURL,
		EngineWSURL:    cfg.Engine.WSURL,
		EngineAppID:    cfg.Engine.AppID,
		RequestTimeout: cfg.Engine.RequestTimeout,
		SessionTTL:     cfg.JWT.RefreshTokenExpire,
		Reconciler: service.ReconcilerConfig{
			FeedCap:                cfg.Sync.FeedCap,
			BalanceRefreshInterval: cfg.Sync.BalanceRefreshInterval,
			FullRefreshInterval:    cfg.Sync.FullRefreshInterval,
			StatusSampleInterval:   cfg.Sync.StatusSampleInterval,
		},
		ReconnectBaseDelay:   cfg.Sync.ReconnectBaseDelay,
		ReconnectGrowth:      cfg.Sync.ReconnectGrowthFactor,
		ReconnectMaxAttempts: cfg.Sync.ReconnectMaxAttempts,
	})

	// Pick up a session that survived a restart
	resumeCtx, cancelResume := context.WithTimeout(context.Background(), 10*time.Second)
	if err := sessionService.ResumeActiveSession(resumeCtx); err != nil {
		log.Warnf("Could not resume stored session: %v", err)
	}
	cancelResume()

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(sessionService)
	stateHandler := handler.NewStateHandler(sessionService)
	botHandler := handler.NewBotHandler(sessionService)
	tradeHandler := handler.NewTradeHandler(sessionService)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		// Test Redis connection
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "Redis connection failed",
			})
			return
		}

		_, active := sessionService.ActiveSession()
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"redis":          "connected",
			"session_active": active,
		})
	})

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"message": "pong",
				"time":    time.Now().Unix(),
			})
		})

		// Session routes
		session := v1.Group("/session")
		{
			session.POST("", middleware.SessionRateLimit(redisClient, cfg.RateLimit.SessionRequestsPerMinute), sessionHandler.CreateSession)
			session.POST("/refresh", sessionHandler.RefreshToken)
			session.GET("", middleware.AuthMiddleware(sessionService), sessionHandler.GetSession)
			session.DELETE("", middleware.AuthMiddleware(sessionService), sessionHandler.EndSession)
		}

		// Everything below requires a valid session token
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(sessionService))
		{
			authed.GET("/state", stateHandler.GetState)
			authed.POST("/state/refresh", stateHandler.RefreshState)

			authed.GET("/bot/status", botHandler.GetBotStatus)
			authed.POST("/bot/start", botHandler.StartBot)
			authed.POST("/bot/stop", botHandler.StopBot)

			authed.GET("/trades", tradeHandler.GetTrades)
			authed.POST("/trades/manual", tradeHandler.ExecuteManualTrade)
			authed.GET("/signals", tradeHandler.GetSignals)

			authed.GET("/ws", hub.ServeWS)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Server starting on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", err)
		}
	}()

	log.Info("✓ Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", err)
	}

	// Suspend the engine sync machinery; the session record stays in
	// Redis so the next boot resumes it
	sessionService.Shutdown()

	log.Info("Server exited")
}

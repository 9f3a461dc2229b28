package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal_kz/internal/config"
	"signal_kz/internal/handler"
	"signal_kz/internal/logger"
	"signal_kz/internal/metrics"
	"signal_kz/internal/middleware"
	"signal_kz/internal/repository"
	"signal_kz/internal/service"
	"signal_kz/internal/session"
	"signal_kz/internal/transport"
	"signal_kz/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	log := logger.New("signal-kz-bot")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found or error loading, relying on environment variables")
	}

	// --- Configuration ---
	cfg, err := config.Load(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	dbPool, err := config.ConnectDB(ctx, cfg.DB, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer dbPool.Close()

	// --- Auto Migration ---
	if err := config.AutoMigrate(ctx, dbPool, log); err != nil {
		log.WithError(err).Fatal("Failed to auto-migrate database")
	}

	// --- Messaging Transport ---
	bot, err := transport.NewTelegram(cfg.BotToken, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Telegram")
	}
	log.WithField("bot", bot.Username()).Info("Authorized on Telegram")

	// --- Initialize Utilities ---
	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpirationHours)
	sessions := session.NewStore(cfg.SessionCapacity, cfg.SessionTTL)
	appMetrics := metrics.New(sessions.Len)

	// --- Initialize Repositories ---
	store := repository.NewStore(dbPool)

	// --- Initialize Services ---
	roleService := service.NewRoleService(store.Repos().Users, cfg.InitialAdminIDs, log)
	notificationService := service.NewNotificationService(bot, roleService, appMetrics, cfg.FanoutConcurrency, log)
	reportService := service.NewReportService(store, notificationService, appMetrics, log)
	sessionService := service.NewSessionService(sessions, reportService, roleService, notificationService, log)
	authService := service.NewAuthService(roleService, jwtUtil)

	// --- Initialize Handlers ---
	botHandler := handler.NewBotHandler(roleService, reportService, sessionService, notificationService, authService, bot, log)
	authHandler := handler.NewAuthHandler(authService, roleService)
	reportHandler := handler.NewReportHandler(reportService, roleService)
	userHandler := handler.NewUserHandler(roleService, notificationService)

	// --- Setup Gin Router ---
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	// Simple CORS middleware for the dashboard
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, PUT, OPTIONS, GET")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// --- Initialize Middlewares ---
	jwtAuthMW := middleware.JWTAuthMiddleware(jwtUtil)
	staffRoleMW := middleware.StaffMiddleware()
	adminRoleMW := middleware.AdminMiddleware()

	// --- Register Routes ---
	apiGroup := router.Group("/api/v1")
	authHandler.RegisterAuthRoutes(apiGroup, jwtAuthMW)
	reportHandler.RegisterReportRoutes(apiGroup, jwtAuthMW, staffRoleMW)
	userHandler.RegisterUserRoutes(apiGroup, jwtAuthMW, adminRoleMW)

	router.GET("/health", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(appMetrics.Registry, promhttp.HandlerOpts{})))

	// Updates of one user are handled in arrival order
	updates := transport.NewDispatcher(ctx, cfg.UpdateWorkers, botHandler.Handle)

	if cfg.BotMode == config.BotModeWebhook {
		handler.NewWebhookHandler(bot, updates, cfg.WebhookSecret, log).RegisterWebhookRoutes(router)
		if err := bot.SetWebhook(cfg.WebhookURL + "/telegram/webhook/" + cfg.WebhookSecret); err != nil {
			log.WithError(err).Fatal("Failed to register webhook")
		}
	} else if err := bot.DeleteWebhook(); err != nil {
		log.WithError(err).Fatal("Failed to switch to long polling")
	}

	// --- Start Server ---
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.ServerPort).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.BotMode == config.BotModePolling {
		g.Go(func() error {
			return bot.Poll(gctx, updates)
		})
	}

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if closeErr := updates.Close(); err == nil {
			err = closeErr
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
	log.Info("Server exiting")
}

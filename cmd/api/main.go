package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/auth"
	"github.com/GTDGit/lumina_api/internal/cache"
	"github.com/GTDGit/lumina_api/internal/config"
	"github.com/GTDGit/lumina_api/internal/database"
	"github.com/GTDGit/lumina_api/internal/handler"
	"github.com/GTDGit/lumina_api/internal/middleware"
	"github.com/GTDGit/lumina_api/internal/repository"
	"github.com/GTDGit/lumina_api/internal/search"
	"github.com/GTDGit/lumina_api/internal/service"
	"github.com/GTDGit/lumina_api/internal/sse"
	"github.com/GTDGit/lumina_api/internal/worker"
	"github.com/GTDGit/lumina_api/pkg/groq"
	"github.com/GTDGit/lumina_api/pkg/telegram"
)

// main is the application entrypoint for the Lumina storefront API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting lumina api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Initialize repositories and caches
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	channelPostRepo := repository.NewChannelPostRepository(db)

	catalogCache := cache.NewCatalogCache(redisClient, cfg.Redis.CatalogTTL)
	sessionStore := cache.NewSessionStore(redisClient)

	// 5. Initialize external clients
	groqClient := groq.NewClient(cfg.Groq.APIKey, cfg.Groq.Model)
	if !groqClient.Configured() {
		log.Warn().Msg("GROQ_API_KEY not set - product analysis and marketing copy will use fallbacks")
	}

	telegramClient := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChannelID)
	if !telegramClient.Configured() {
		log.Warn().Msg("Telegram channel not configured - channel posts will fail")
	}

	var labels service.LabelDetector
	rekognitionClient, err := service.NewRekognitionClient(ctx, &cfg.AWS)
	if err != nil {
		log.Warn().Err(err).Msg("Rekognition initialization failed - image analysis will use fallbacks")
	} else {
		labels = rekognitionClient
	}

	imageStore, err := service.NewImageStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("image store initialization failed")
		fmt.Fprintf(os.Stderr, "image store initialization failed: %v\n", err)
		os.Exit(1)
	}

	// 6. Initialize services
	hub := sse.NewHub()
	marketingSvc := service.NewMarketingService(groqClient)
	analyzer := service.NewVisionAnalyzer(labels, groqClient, &cfg.AWS)
	filter := search.NewFilter(search.NewMatcher(cfg.Search.MaxDistance, search.DefaultTypoRules))

	authSvc := service.NewAuthService(userRepo, sessionStore, auth.NewPasswordHasher(), cfg.Session.TTL)
	productSvc := service.NewProductService(productRepo, catalogCache, filter, imageStore, analyzer, marketingSvc)
	orderSvc := service.NewOrderService(orderRepo, catalogCache, sse.NewHubNotifier(hub))
	channelSvc := service.NewChannelService(productRepo, channelPostRepo, telegramClient, marketingSvc, catalogCache, cfg)

	if cfg.Admin.Username != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			log.Error().Err(err).Msg("admin bootstrap failed")
		}
	}

	// 7. Start channel scheduler
	scheduler, err := worker.NewPostScheduler(channelSvc, cfg.Worker.PostSchedule)
	if err != nil {
		log.Error().Err(err).Msg("post scheduler initialization failed")
		fmt.Fprintf(os.Stderr, "post scheduler initialization failed: %v\n", err)
		os.Exit(1)
	}
	if cfg.Worker.AutoPost {
		if err := scheduler.Start(); err != nil {
			log.Error().Err(err).Msg("post scheduler failed to start")
		}
	}

	// 8. Initialize handlers
	handlers := &handler.Handlers{
		Health:       handler.NewHealthHandler(db, handler.PingFunc(redisClient.Ping)),
		Auth:         handler.NewAuthHandler(authSvc, &cfg.Session),
		Product:      handler.NewProductHandler(productSvc),
		ProductAdmin: handler.NewProductAdminHandler(productSvc, cfg.Upload.MaxBytes),
		Order:        handler.NewOrderHandler(orderSvc),
		Channel:      handler.NewChannelHandler(channelSvc, scheduler),
		SSE:          handler.NewSSEHandler(hub),
	}

	// 9. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.LoggingMiddleware())
	router.MaxMultipartMemory = cfg.Upload.MaxBytes
	if cfg.S3.Bucket == "" {
		router.Static(service.LocalURLPrefix, cfg.Upload.Dir)
	}
	handler.RegisterRoutes(router, handlers,
		middleware.NewSessionMiddleware(authSvc, cfg.Session.CookieName),
		middleware.NewFailedLoginLimiter(ctx),
	)

	// 10. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 12. Stop background work
	cancel()
	scheduler.Stop()

	// 13. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

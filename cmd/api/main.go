package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	config "github.com/superfunded/payout_portal/configs"
	"github.com/superfunded/payout_portal/database"
	"github.com/superfunded/payout_portal/handlers"
	"github.com/superfunded/payout_portal/jobs"
	applog "github.com/superfunded/payout_portal/logger"
	"github.com/superfunded/payout_portal/middleware"
	"github.com/superfunded/payout_portal/notifications"
	"github.com/superfunded/payout_portal/repository"
	"github.com/superfunded/payout_portal/routes"
	"github.com/superfunded/payout_portal/services"
	"github.com/superfunded/payout_portal/session"
	"github.com/superfunded/payout_portal/storage"
	"github.com/superfunded/payout_portal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("🔥 Failed to load config")
	}
	applog.Init("payout-portal", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("🔥 Failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("🔥 Failed to migrate database")
	}
	if err := database.SeedAdmin(ctx, db, database.AdminSeed{
		Email:       cfg.Admin.Email,
		Password:    cfg.Admin.Password,
		DisplayName: cfg.Admin.DisplayName,
	}); err != nil {
		log.Fatal().Err(err).Msg("🔥 Failed to seed admin")
	}

	rdb, err := database.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("🔥 Failed to connect to redis")
	}
	defer rdb.Close()

	objects, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("🔥 Failed to initialize object storage")
	}

	var mailer services.Notifier
	if cfg.Email.BrevoAPIKey != "" && cfg.Email.Sender != "" {
		mailer = notifications.NewBrevoService(cfg.Email.BrevoAPIKey, cfg.Email.Sender, cfg.Email.SenderName)
		log.Info().Msg("✅ Email service initialized successfully.")
	} else {
		log.Warn().Msg("⚠️ Email service not configured, emails will be skipped.")
	}

	var converter services.USDConverter
	if cfg.ExchangeRateAPIKey != "" {
		converter = services.NewCurrencyService(cfg.ExchangeRateAPIKey)
	}

	users := repository.NewUserRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	hub := websocket.NewHub()
	go hub.Run(ctx)

	var certificates services.CertificateIssuer
	if cfg.CertificatesEnabled {
		certificates = services.NewCertificateService(payoutRepo, objects, services.RenderPDF)
	}

	auth := services.NewAuthService(users, session.NewRedisRevoker(rdb), mailer, services.AuthConfig{
		Secret:      []byte(cfg.JWT.Secret),
		TokenTTL:    cfg.JWT.TTL,
		FrontendURL: cfg.FrontendURL,
	})
	payouts := services.NewPayoutService(services.PayoutServiceConfig{
		Store:         payoutRepo,
		Objects:       objects,
		Events:        hub,
		Mailer:        mailer,
		Certificates:  certificates,
		MaxProofBytes: cfg.Storage.MaxProofBytes,
	})
	reviews := services.NewReviewService(reviewRepo)
	stats := services.NewStatsService(payoutRepo, users, converter)

	if mailer != nil {
		scheduler, err := jobs.NewScheduler(cfg.Jobs.PendingDigestCron, jobs.NewPendingDigestJob(payoutRepo, users, mailer))
		if err != nil {
			log.Fatal().Err(err).Msg("🔥 Failed to schedule jobs")
		}
		scheduler.Start()
		defer func() { <-scheduler.Stop().Done() }()
		log.Info().Str("spec", cfg.Jobs.PendingDigestCron).Msg("✅ Pending digest job scheduled successfully.")
	}

	app := fiber.New(fiber.Config{
		AppName:      "SuperFunded Payout Portal",
		BodyLimit:    int(cfg.Storage.MaxProofBytes) + 1<<20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, X-Cache",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   cfg.TimeZone,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Setup(app, routes.Handlers{
		Auth:     handlers.NewAuthHandler(auth),
		Profile:  handlers.NewProfileHandler(auth),
		Payouts:  handlers.NewPayoutHandler(payouts),
		Admin:    handlers.NewAdminHandler(payouts, stats, reviews),
		Reviews:  handlers.NewReviewHandler(reviews),
		Stats:    handlers.NewStatsHandler(stats),
		Realtime: handlers.NewWSHandler(hub),
	}, routes.Config{
		JWTSecret:    []byte(cfg.JWT.Secret),
		Sessions:     auth,
		Cache:        middleware.NewRedisCacheStore(rdb),
		FeedCacheTTL: cfg.FeedCacheTTL,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr()).Msg("✅ Server is running")
	if err := app.Listen(cfg.ListenAddr()); err != nil {
		log.Fatal().Err(err).Msg("🔥 Server failed to start")
	}

	payouts.Wait()
	auth.Wait()
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMinio:
		return storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:      cfg.Minio.Endpoint,
			AccessKey:     cfg.Minio.AccessKey,
			SecretKey:     cfg.Minio.SecretKey,
			Secure:        cfg.Minio.Secure,
			Bucket:        cfg.Storage.Bucket,
			PublicBaseURL: cfg.Minio.PublicBaseURL,
			Timeout:       cfg.Storage.Timeout,
		})
	default:
		return storage.NewCloudinaryStorage(cfg.Storage.CloudinaryURL, cfg.Storage.Bucket, cfg.Storage.Timeout)
	}
}

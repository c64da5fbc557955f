package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcade-economy-system/handlers"
	"arcade-economy-system/middleware"
	"arcade-economy-system/models"
	"arcade-economy-system/services"
	"arcade-economy-system/utils"
	"arcade-economy-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 16 * 1024 * 1024, // artwork uploads only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.OriginList(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Tenant-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.GameDefinition{},
		&models.GameSession{},
		&models.ScoreRecord{},
		&models.TokenAccount{},
		&models.TokenTransaction{},
		&models.StoreItem{},
		&models.InventoryEntry{},
		&models.ProfileMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	artworkEnabled := cfg.R2Configured()
	if artworkEnabled {
		if err := utils.InitR2(cfg); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("⚠️  R2 not configured — item artwork uploads disabled")
	}

	cache := utils.NewStalenessSignal(cfg.RedisAddr)
	admission := services.NewAdmissionClient(cfg.AdmissionServiceURL, cfg.ServiceToken)

	ledgerService := services.NewLedgerService(db, cfg.DailyTokenCap)
	sessionService := services.NewSessionService(db)
	scoreService := services.NewScoreService(db, ledgerService, cache, cfg.PersonalBestBonus)
	storeService := services.NewStoreService(db, ledgerService, cache)
	leaderboardService := services.NewLeaderboardService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ProfileSyncURL != "" {
		syncClient := workers.NewProfileSyncClient(db, cfg.ProfileSyncURL, cfg.ServiceToken)
		go workers.PollProfiles(ctx, syncClient, 30*time.Second)
		log.Println("✅ Profile mirror polling running (every 30s)")
	} else {
		log.Println("⚠️  PROFILE_SYNC_URL not set — leaderboard display names limited to user IDs")
	}

	storeService.StartAvailabilityScheduler()

	// ✅ Setup routes — enforced Gateway auth + user context on secured groups
	handlers.SetupSessionRoutes(app, sessionService, scoreService, admission)
	handlers.SetupStoreRoutes(app, storeService, admission, artworkEnabled)
	handlers.SetupTokenRoutes(app, ledgerService, leaderboardService, admission)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Daily token cap: %d", cfg.DailyTokenCap)
	log.Println("✅ Store availability scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
}

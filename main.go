package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/suman7063/Restaurant-Managment-sub002/config"
	"github.com/suman7063/Restaurant-Managment-sub002/database"
	"github.com/suman7063/Restaurant-Managment-sub002/kds"
	"github.com/suman7063/Restaurant-Managment-sub002/otp"
	"github.com/suman7063/Restaurant-Managment-sub002/policy"
	"github.com/suman7063/Restaurant-Managment-sub002/queue"
	"github.com/suman7063/Restaurant-Managment-sub002/router"
	"github.com/suman7063/Restaurant-Managment-sub002/services"
	"github.com/suman7063/Restaurant-Managment-sub002/store"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

func init() {
	// Load .env file di awal sebelum apapun
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading: %v", err)
	}
}

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		utils.ErrorLogger.Fatal("JWT_SECRET is not set")
	}
	if cfg.GinMode == gin.ReleaseMode || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize DB
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	if err := database.SeedOwner(db, cfg.SeedRestaurant, cfg.SeedOwnerEmail, cfg.SeedOwnerPass); err != nil {
		utils.ErrorLogger.Printf("Error seeding owner: %v", err)
	}

	rdb := config.NewRedisClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	// Event: websocket hub, plus RabbitMQ kalau dikonfigurasi
	hub := kds.NewHub()
	notifier := kds.Fanout{hub}
	if cfg.RabbitMQURL != "" {
		publisher := queue.NewPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
		defer publisher.Close()
		notifier = append(notifier, publisher)
	}

	st := store.New(db, policy.NewEngine())
	issuer := otp.NewIssuer(cfg.OTPTTL)

	r := router.SetupRouter(router.Deps{
		Config:   cfg,
		Store:    st,
		Sessions: services.NewSessionManager(st, issuer, notifier, cfg.OTPMaxAttempts),
		Joins:    services.NewJoinHandler(st, notifier),
		Ledger:   services.NewOrderLedger(st, notifier),
		Records:  services.NewRecordService(st, notifier, services.WithOTPIssuer(issuer, cfg.OTPMaxAttempts)),
		Hub:      hub,
		Notifier: notifier,
		Redis:    rdb,
	})

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"bosscode-hub/internal/adapters/http/middleware"
	"bosscode-hub/internal/adapters/http/routes"
	"bosscode-hub/internal/adapters/persistence/models"
	"bosscode-hub/internal/adapters/persistence/repositories"
	"bosscode-hub/internal/config"
	"bosscode-hub/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "bosscode-hub/docs" // Swagger docs
)

// @title BossCode Hub API
// @version 1.0
// @description Self-service boss code distribution API
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed bootstrap superadmin
	seeder := config.NewSeeder(db, cfg)
	if err := seeder.Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed database: %v", err)
	}

	// Start cron service (nightly quota sweep + token cleanup)
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	cronService := services.NewCronService(userRepo, refreshTokenRepo)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron service: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "BossCode Hub API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	routes.Setup(app, db, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}

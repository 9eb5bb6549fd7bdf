package routes

import (
	"bosscode-hub/internal/adapters/http/handlers"
	"bosscode-hub/internal/adapters/http/middleware"
	"bosscode-hub/internal/adapters/persistence/repositories"
	"bosscode-hub/internal/config"
	"bosscode-hub/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	codeRepo := repositories.NewCodeRepository(db)
	recordRepo := repositories.NewRecordRepository(db)

	// Initialize services
	redemptionService := services.NewRedemptionService(db, userRepo)
	authService := services.NewAuthService(userRepo, refreshTokenRepo, redemptionService, cfg)
	userService := services.NewUserService(userRepo)
	codeService := services.NewCodeService(codeRepo)
	recordService := services.NewRecordService(recordRepo)
	dashboardService := services.NewDashboardService(userRepo, codeRepo, recordService)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	codeHandler := handlers.NewCodeHandler(codeService)
	redemptionHandler := handlers.NewRedemptionHandler(redemptionService, recordService)
	recordHandler := handlers.NewRecordHandler(recordService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public, rate limited)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Claim routes (authenticated users, never cached)
	claimRoutes := apiV1.Group("/claims")
	claimRoutes.Use(middleware.AuthMiddleware(cfg))
	claimRoutes.Use(middleware.NoCacheHeaders())
	setupClaimRoutes(claimRoutes, redemptionHandler)

	// User self-service routes (authenticated users)
	meRoutes := apiV1.Group("/users/me")
	meRoutes.Use(middleware.AuthMiddleware(cfg))
	meRoutes.Patch("/password", userHandler.ChangePassword)

	// Code inventory routes (SUBADMIN or SUPERADMIN)
	codeRoutes := apiV1.Group("/codes")
	codeRoutes.Use(middleware.AuthMiddleware(cfg))
	codeRoutes.Use(middleware.SubAdminOrSuper())
	setupCodeRoutes(codeRoutes, codeHandler)

	// User management routes (SUBADMIN or SUPERADMIN; deletes enforce
	// SUPERADMIN inside the service)
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	userRoutes.Use(middleware.SubAdminOrSuper())
	setupUserRoutes(userRoutes, userHandler)

	// Audit trail routes (SUBADMIN or SUPERADMIN)
	recordRoutes := apiV1.Group("/records")
	recordRoutes.Use(middleware.AuthMiddleware(cfg))
	recordRoutes.Use(middleware.SubAdminOrSuper())
	recordRoutes.Get("/", recordHandler.ListAll)

	// Dashboard routes (SUBADMIN or SUPERADMIN)
	dashboardRoutes := apiV1.Group("/dashboard")
	dashboardRoutes.Use(middleware.AuthMiddleware(cfg))
	dashboardRoutes.Use(middleware.SubAdminOrSuper())
	dashboardRoutes.Get("/stats", dashboardHandler.Stats)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (rate limited against brute force)
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)
	router.Post("/reset-password", middleware.StrictRateLimiter(), handler.ResetPassword)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupClaimRoutes configures redemption routes
func setupClaimRoutes(router fiber.Router, handler *handlers.RedemptionHandler) {
	router.Post("/", handler.Claim)
	router.Get("/my", handler.MyClaims)
}

// setupCodeRoutes configures code inventory routes
func setupCodeRoutes(router fiber.Router, handler *handlers.CodeHandler) {
	router.Post("/import", handler.Import)
	router.Post("/import-file", handler.ImportFile)
	router.Get("/", handler.List)
	router.Get("/stats", handler.Stats)
	router.Delete("/range", handler.DeleteRange)
	router.Delete("/:id", handler.Delete)
}

// setupUserRoutes configures user management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.List)
	router.Patch("/quota", handler.SetQuotaList)
	router.Patch("/quota/range", handler.SetQuotaRange)
	router.Patch("/:id/quota", handler.SetQuota)
	router.Patch("/:id/role", handler.SetRole)
	router.Delete("/range", handler.DeleteRange)
	router.Delete("/:id", handler.Delete)
}

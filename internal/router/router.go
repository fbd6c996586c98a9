package router

import (
	"database/sql"

	"timeclock_backend/internal/handlers"
	"timeclock_backend/internal/middleware"
	"timeclock_backend/internal/models"
	"timeclock_backend/internal/repositories"
	"timeclock_backend/internal/services"
	"timeclock_backend/internal/token"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB, laborDefaults models.LaborRules) {
	// Initialize Repositories
	authRepo := repositories.NewAuthRepository(db)
	secretRepo := repositories.NewStoreSecretRepository(db)
	entryRepo := repositories.NewTimeEntryRepository(db)
	shiftRepo := repositories.NewShiftRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)

	clock := token.SystemClock{}

	// Initialize Services
	authService := services.NewAuthService(authRepo, db)
	qrService := services.NewQRSessionService(secretRepo, db, clock)
	checkInService := services.NewCheckInService(secretRepo, entryRepo, shiftRepo, db, clock)
	accountingService := services.NewAccountingService(entryRepo, settingsRepo, db, laborDefaults)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	attendanceHandler := handlers.NewAttendanceHandler(qrService, checkInService)
	summaryHandler := handlers.NewSummaryHandler(accountingService)

	apiV1 := engine.Group("/api/v1")

	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupStoreRoutes(authenticated, attendanceHandler, summaryHandler)
		SetupSettingsRoutes(authenticated, summaryHandler)
	}
}

// SetupPublicAuthRoutes registers the unauthenticated auth endpoints.
func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/register", authHandler.RegisterUser)
	group.POST("/login", authHandler.LoginUser)
	group.POST("/refresh", authHandler.RefreshSession)
}

// SetupAuthenticatedAuthRoutes registers auth endpoints that require a session.
func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", authHandler.GetCurrentUser)
}

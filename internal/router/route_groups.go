package router

import (
	"timeclock_backend/internal/handlers"
	"timeclock_backend/internal/middleware"
	"timeclock_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupStoreRoutes registers the per-store attendance surface.
func SetupStoreRoutes(authenticatedGroup *gin.RouterGroup, attendanceHandler *handlers.AttendanceHandler, summaryHandler *handlers.SummaryHandler) {
	storeRoutes := authenticatedGroup.Group("/stores/:storeId")
	{
		// Display surface: manager or owner renders the rotating code.
		qrRoutes := storeRoutes.Group("/qr")
		qrRoutes.Use(middleware.RoleAuthMiddleware(models.RoleManager, models.RoleOwner))
		{
			qrRoutes.GET("", attendanceHandler.IssueQR)
		}

		// Rotation invalidates every outstanding code; owner only.
		rotateRoutes := storeRoutes.Group("/qr/rotate")
		rotateRoutes.Use(middleware.RoleAuthMiddleware(models.RoleOwner))
		{
			rotateRoutes.POST("", attendanceHandler.RotateSecret)
		}

		// Scanning clients: any authenticated member of the store.
		storeRoutes.POST("/check-ins", attendanceHandler.SubmitCheckIn)
		storeRoutes.GET("/check-ins/latest", attendanceHandler.GetLatestEntry)

		memberRoutes := storeRoutes.Group("/members/:userId")
		{
			memberRoutes.GET("/shifts/today", attendanceHandler.GetTodayShifts)

			reviewRoutes := memberRoutes.Group("")
			reviewRoutes.Use(middleware.SelfOrRoleAuthMiddleware(models.RoleManager, models.RoleOwner))
			{
				reviewRoutes.GET("/summaries", summaryHandler.GetSummaries)
				reviewRoutes.GET("/entries", summaryHandler.GetEntries)
			}
		}
	}
}

// SetupSettingsRoutes registers the labor-rule configuration endpoints.
func SetupSettingsRoutes(authenticatedGroup *gin.RouterGroup, summaryHandler *handlers.SummaryHandler) {
	settingsRoutes := authenticatedGroup.Group("/settings/labor")
	{
		settingsRoutes.GET("", summaryHandler.GetLaborRules)

		ownerRoutes := settingsRoutes.Group("")
		ownerRoutes.Use(middleware.RoleAuthMiddleware(models.RoleOwner))
		{
			ownerRoutes.PUT("", summaryHandler.UpdateLaborRules)
		}
	}
}

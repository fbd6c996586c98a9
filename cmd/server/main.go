package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"timeclock_backend/internal/database"
	"timeclock_backend/internal/models"
	router_pkg "timeclock_backend/internal/router"
	"timeclock_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	utils.InitLogger()
	utils.InitJWT(utils.Getenv("JWT_SECRET", "dev-only-insecure-secret"))

	// Load database configuration from environment variables
	dbHost := utils.Getenv("DB_HOST", "localhost")
	dbPort := utils.Getenv("DB_PORT", "5432")
	dbUser := utils.Getenv("DB_USER", "timeclock_user")
	dbPassword := utils.Getenv("DB_PASSWORD", "timeclock_password")
	dbName := utils.Getenv("DB_NAME", "timeclock_db")
	dbSSLMode := utils.Getenv("DB_SSLMODE", "disable")
	dbSchemaPath := utils.Getenv("DB_SCHEMA_PATH", "")

	database.InitDB(dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode, dbSchemaPath)
	utils.LogInfo("Database initialized", map[string]interface{}{"configured_from_env": true})

	// Labor-rule defaults; persisted settings override these at runtime.
	laborDefaults := models.LaborRules{
		WeekStartsOn:                 utils.GetenvInt("LABOR_WEEK_STARTS_ON", 1),
		WeeklyOvertimeThresholdMins:  utils.GetenvInt("LABOR_WEEKLY_OVERTIME_THRESHOLD_MINS", 2400),
		MonthlyOvertimeThresholdMins: utils.GetenvInt("LABOR_MONTHLY_OVERTIME_THRESHOLD_MINS", 10080),
	}

	engine := gin.Default()

	engine.Use(utils.RequestID())
	engine.Use(utils.GinLogger())

	// CORS configuration
	corsAllowedOriginsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	var allowedOrigins []string
	if corsAllowedOriginsEnv != "" {
		allowedOrigins = strings.Split(corsAllowedOriginsEnv, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	engine.Use(cors.New(config))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Setup all application routes
	dbConn := database.GetDB()
	router_pkg.Setup(engine, dbConn, laborDefaults)

	port := utils.Getenv("PORT", "8080")
	utils.LogInfo("Server starting", map[string]interface{}{"port": port, "configured_from_env": true})

	if err := engine.Run(":" + port); err != nil {
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}

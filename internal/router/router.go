// internal/router/router.go
package router

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/agency-onboarding/internal/config"
	"github.com/javajoker/agency-onboarding/internal/database"
	"github.com/javajoker/agency-onboarding/internal/handlers"
	"github.com/javajoker/agency-onboarding/internal/metrics"
	"github.com/javajoker/agency-onboarding/internal/middleware"
	"github.com/javajoker/agency-onboarding/internal/services"
)

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"backend":        storageService.Backend(),
		"max_file_size":  cfg.Storage.MaxFileSize,
		"max_body_bytes": cfg.Storage.MaxRequestBytes,
	}).Info("Storage initialized")
	onboardingService := services.NewOnboardingService(database.NewStore(db), storageService, cfg)

	return New(onboardingService, cfg), nil
}

// New wires the routes around an already constructed service.
func New(onboardingService *services.OnboardingService, cfg *config.Config) *gin.Engine {
	// Initialize handlers
	onboardingHandler := handlers.NewOnboardingHandler(onboardingService, cfg)
	healthHandler := handlers.NewHealthHandler(onboardingService)

	// Initialize Gin router
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.I18nMiddleware())
	r.Use(metrics.Middleware())

	// Health check
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Onboarding routes
	api := r.Group("/api")
	{
		onboarding := api.Group("/agency-onboarding")
		{
			onboarding.POST("/:request_uuid", middleware.StepSubmissionRateLimit(cfg.RateLimit), onboardingHandler.SubmitStep)
			onboarding.GET("/:request_uuid", onboardingHandler.GetApplication)
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" && cfg.AWS.S3Bucket == "" {
		r.Static("/uploads", cfg.Storage.UploadDir)
	}

	return r
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Accept-Language", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}

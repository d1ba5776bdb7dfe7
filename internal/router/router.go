package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"aria/internal/handler"
	"aria/internal/middleware"
	"aria/internal/service"
)

// Setup configures the Gin engine with all routes and middleware.
// A nil tokenSvc leaves the API unauthenticated.
func Setup(
	log zerolog.Logger,
	corsOrigins []string,
	tokenSvc service.TokenService,
	metricsHandler http.Handler,
	extractionH *handler.ExtractionHandler,
	schemaH *handler.SchemaHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS(corsOrigins))

	// Health checks and operations
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)
	r.GET("/metrics", gin.WrapH(metricsHandler))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	// Schemas are public
	v1.GET("/schemas", schemaH.List)
	v1.GET("/schemas/:type", schemaH.Get)

	protected := v1.Group("")
	if tokenSvc != nil {
		protected.Use(middleware.ServiceAuth(tokenSvc))
	}

	extractions := protected.Group("/extractions")
	extractions.POST("", extractionH.Extract)
	extractions.POST("/batch", extractionH.ExtractBatch)

	conversations := protected.Group("/conversations/:id/extractions")
	conversations.GET("", extractionH.ListByConversation)
	conversations.GET("/latest", extractionH.GetLatest)
	conversations.GET("/export", extractionH.ExportConversation)

	protected.GET("/exports/:type", extractionH.ExportLatest)

	return r
}

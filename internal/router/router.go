package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medaudit/internal/handler"
	"medaudit/internal/middleware"
	"medaudit/internal/port"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	authorizer port.Authorizer,
	auditH *handler.AuditHandler,
	healthH *handler.HealthHandler,
	metricsHandler http.Handler,
	allowedOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	v1 := r.Group("/api/v1")

	// Protected routes - authorizer decides
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authorizer))

	audits := protected.Group("/audits")
	audits.POST("", auditH.Submit)
	audits.GET("/session", auditH.GetSession)
	audits.DELETE("/session", auditH.ResetSession)
	audits.GET("/session/report", auditH.DownloadReport)

	return r
}

package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/config"
	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/consultrec/pkg/metrics"
)

type RouterConfig struct {
	JWT       *auth.JWTManager
	Metrics   *metrics.Collector
	Log       *zap.Logger
	CORS      config.CORSConfig
	RateLimit config.RateLimitConfig
	// Served at /metrics when set.
	MetricsHandler http.Handler
}

func NewRouter(h *Handler, rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		RequestID(),
		Recovery(rc.Log),
		AccessLog(rc.Log),
		Metrics(rc.Metrics),
		Tracing(),
		CORS(rc.CORS),
	)

	r.NoRoute(func(c *gin.Context) { respondError(c, http.StatusNotFound, "route not found") })
	r.NoMethod(func(c *gin.Context) { respondError(c, http.StatusMethodNotAllowed, "method not allowed") })

	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	if rc.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(rc.MetricsHandler))
	}

	api := r.Group("/api/v1", RateLimit(rc.RateLimit))

	authGroup := api.Group("/auth")
	authGroup.POST("/login", AuthRateLimit(rc.RateLimit), h.Login)
	authGroup.POST("/refresh", AuthRateLimit(rc.RateLimit), h.Refresh)
	authGroup.POST("/change-password", RequireAuth(rc.JWT), h.ChangePassword)

	secured := api.Group("", RequireAuth(rc.JWT))

	consultations := secured.Group("/consultations")
	consultations.POST("", h.CreateConsultation)
	consultations.POST("/upload", h.UploadVideo)
	consultations.GET("", h.FilterConsultations)
	consultations.GET("/:id", h.GetConsultation)
	consultations.PUT("/:id", h.UpdateConsultation)
	consultations.DELETE("/:id", RequireRole(domain.RoleAdmin), h.DeleteConsultation)

	videos := secured.Group("/videos")
	videos.GET("/filter", h.FilterConsultations)
	videos.GET("/:date/:filename", h.StreamVideo)
	videos.HEAD("/:date/:filename", h.StreamVideo)

	admin := secured.Group("/admin", RequireRole(domain.RoleAdmin))
	admin.GET("/reconcile", h.Reconcile)

	return r
}

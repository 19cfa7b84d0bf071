package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness runs every check with a shared deadline. Failure details are
// logged, not returned.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.readiness))
	ready := true
	for _, rc := range h.readiness {
		if err := rc.Check(ctx); err != nil {
			ready = false
			checks[rc.Name] = "unavailable"
			h.log.Warn("readiness check failed", zap.String("check", rc.Name), zap.Error(err))
			continue
		}
		checks[rc.Name] = "ok"
	}

	status := http.StatusOK
	body := gin.H{"status": "ready", "checks": checks}
	if !ready {
		status = http.StatusServiceUnavailable
		body["status"] = "not_ready"
	}
	c.JSON(status, body)
}

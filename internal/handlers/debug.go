package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-widget/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints. They stay off the router
// unless explicitly enabled.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}
	router.GET("/debug/audit-test", auditTestHandler(emitter))
}

// auditTestHandler emits one audit record attributed to the caller, so the
// AMQP audit pipeline can be verified end to end.
func auditTestHandler(emitter *telemetry.AuditEmitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

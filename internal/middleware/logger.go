package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// Logger middleware writes one access-log record per request, redacting
// the resource id segment (e.g. /Users/<uuid>) to its length class so the
// log line is stable across requests for the same endpoint.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := redactResourceID(c.Request.URL.Path)
		method := c.Request.Method

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		tenantID := ""
		if v, ok := c.Get(TenantContextKey); ok {
			if t, ok := v.(config.TenantConfig); ok {
				tenantID = t.ID
			}
		}

		fields := map[string]interface{}{
			"method":     method,
			"path":       path,
			"status":     statusCode,
			"bytes":      c.Writer.Size(),
			"latency_ms": latency.Milliseconds(),
			"tenant":     tenantID,
			"request_id": requestID,
		}

		switch {
		case statusCode >= 500:
			log.Error("HTTP request failed", fields)
		case statusCode >= 400:
			log.Warn("HTTP request error", fields)
		default:
			log.Info("HTTP request", fields)
		}
	}
}

// redactResourceID replaces the final path segment of a /Users/{id} or
// /Groups/{id} style path with its length class, so log lines group by
// endpoint shape instead of leaking individual resource ids.
func redactResourceID(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 {
		return path
	}
	last := len(segments) - 1
	switch segments[last-1] {
	case "Users", "Groups":
		segments[last] = fmt.Sprintf("{id:%d}", len(segments[last]))
	}
	return "/" + strings.Join(segments, "/")
}

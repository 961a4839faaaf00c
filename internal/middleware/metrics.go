package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/metrics"
)

// MetricsMiddleware collects HTTP request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		method := c.Request.Method
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		tenantID := ""
		if v, ok := c.Get(TenantContextKey); ok {
			if t, ok := v.(config.TenantConfig); ok {
				tenantID = t.ID
			}
		}

		metrics.RecordHTTPRequest(method, endpoint, tenantID, statusCode, duration)
	}
}

// MetricsErrorMiddleware records error metrics
func MetricsErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		statusCode := c.Writer.Status()
		if statusCode >= 400 {
			severity := "warning"
			if statusCode >= 500 {
				severity = "error"
			}

			errorType := "http"
			if statusCode == 401 || statusCode == 403 {
				errorType = "auth"
			} else if statusCode >= 500 {
				errorType = "server"
			}

			metrics.RecordError(errorType, severity)
		}
	}
}

// MetricsDBMiddleware records database operation metrics (used by the repository layer)
func MetricsDBMiddleware(operation string, duration time.Duration, err error) {
	metrics.RecordDBQuery(operation, duration, err)
}

// Helper function to extract status code from context
func getStatusCode(c *gin.Context) int {
	status, exists := c.Get("status_code")
	if !exists {
		return c.Writer.Status()
	}
	if code, ok := status.(int); ok {
		return code
	}
	if codeStr, ok := status.(string); ok {
		if code, err := strconv.Atoi(codeStr); err == nil {
			return code
		}
	}
	return c.Writer.Status()
}

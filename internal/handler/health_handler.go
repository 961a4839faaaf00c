package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scimkit/scimserver/internal/repository"
)

// HealthHandler reports process and database health; it carries no SCIM
// semantics and is exempt from tenant resolution.
type HealthHandler struct {
	db *repository.Database
}

func NewHealthHandler(db *repository.Database) *HealthHandler {
	return &HealthHandler{db: db}
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health checks the service and its database connection.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := healthResponse{Status: "healthy", Services: map[string]string{}}

	if err := h.db.Health(); err != nil {
		resp.Status = "unhealthy"
		resp.Services["database"] = "unhealthy: " + err.Error()
	} else {
		resp.Services["database"] = "healthy"
	}

	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Readiness reports whether the service is ready to accept traffic.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.db.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Liveness reports whether the process is alive.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

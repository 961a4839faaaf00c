// Package handler renders the SCIM HTTP surface (6): request parsing,
// conditional-request headers and content negotiation live here; every
// business decision is delegated to service.SCIMService.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/middleware"
	"github.com/scimkit/scimserver/internal/models"
	"github.com/scimkit/scimserver/internal/queryopt"
	"github.com/scimkit/scimserver/internal/service"
	"github.com/scimkit/scimserver/internal/utils"
	"github.com/scimkit/scimserver/pkg/logger"
)

const scimContentType = "application/scim+json"

// SCIMHandler handles SCIM 2.0 API requests.
type SCIMHandler struct {
	scimService *service.SCIMService
	logger      *logger.Logger
}

// NewSCIMHandler creates a new SCIM handler.
func NewSCIMHandler(scimService *service.SCIMService, logger *logger.Logger) *SCIMHandler {
	return &SCIMHandler{
		scimService: scimService,
		logger:      logger,
	}
}

func currentTenant(c *gin.Context) config.TenantConfig {
	v, _ := c.Get(middleware.TenantContextKey)
	t, _ := v.(config.TenantConfig)
	return t
}

// baseURL resolves the absolute SCIM root this tenant answers under: its
// configured override, or a scheme+host+path built from the request.
func baseURL(c *gin.Context, t config.TenantConfig) string {
	if t.OverrideBaseURL != "" {
		return strings.TrimSuffix(t.OverrideBaseURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + strings.TrimSuffix(t.Path, "/")
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetUsers handles GET /Users
func (h *SCIMHandler) GetUsers(c *gin.Context) {
	t := currentTenant(c)
	startIndex, count := parseSCIMPaginationParams(c)
	sortOrder := queryopt.SortAscending
	if strings.EqualFold(c.Query("sortOrder"), "descending") {
		sortOrder = queryopt.SortDescending
	}

	resp, err := h.scimService.SearchUsers(c.Request.Context(), t, baseURL(c, t),
		c.Query("filter"), c.Query("sortBy"), sortOrder, startIndex, count,
		splitCSV(c.Query("attributes")), splitCSV(c.Query("excludedAttributes")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderJSON(c, http.StatusOK, resp)
}

// GetUser handles GET /Users/{id}
func (h *SCIMHandler) GetUser(c *gin.Context) {
	t := currentTenant(c)
	doc, err := h.scimService.GetUser(c.Request.Context(), t, baseURL(c, t), c.Param("id"),
		c.GetHeader("If-None-Match"), splitCSV(c.Query("attributes")), splitCSV(c.Query("excludedAttributes")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderResource(c, http.StatusOK, doc)
}

// CreateUser handles POST /Users
func (h *SCIMHandler) CreateUser(c *gin.Context) {
	var u models.SCIMUser
	if err := c.ShouldBindJSON(&u); err != nil {
		h.handleSCIMError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a valid User")
		return
	}
	t := currentTenant(c)
	doc, err := h.scimService.CreateUser(c.Request.Context(), t, baseURL(c, t), &u)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if loc, ok := doc["id"].(string); ok {
		c.Header("Location", baseURL(c, t)+"/Users/"+loc)
	}
	h.renderResource(c, http.StatusCreated, doc)
}

// UpdateUser handles PUT /Users/{id}
func (h *SCIMHandler) UpdateUser(c *gin.Context) {
	var u models.SCIMUser
	if err := c.ShouldBindJSON(&u); err != nil {
		h.handleSCIMError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a valid User")
		return
	}
	t := currentTenant(c)
	doc, err := h.scimService.UpdateUser(c.Request.Context(), t, baseURL(c, t), c.Param("id"), &u, c.GetHeader("If-Match"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderResource(c, http.StatusOK, doc)
}

// PatchUser handles PATCH /Users/{id}
func (h *SCIMHandler) PatchUser(c *gin.Context) {
	var req models.SCIMPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleSCIMError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a valid PatchOp")
		return
	}
	t := currentTenant(c)
	doc, err := h.scimService.PatchUser(c.Request.Context(), t, baseURL(c, t), c.Param("id"), &req, c.GetHeader("If-Match"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderResource(c, http.StatusOK, doc)
}

// DeleteUser handles DELETE /Users/{id}
func (h *SCIMHandler) DeleteUser(c *gin.Context) {
	t := currentTenant(c)
	if err := h.scimService.DeleteUser(c.Request.Context(), t, c.Param("id"), c.GetHeader("If-Match")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetGroups handles GET /Groups
func (h *SCIMHandler) GetGroups(c *gin.Context) {
	t := currentTenant(c)
	startIndex, count := parseSCIMPaginationParams(c)
	sortOrder := queryopt.SortAscending
	if strings.EqualFold(c.Query("sortOrder"), "descending") {
		sortOrder = queryopt.SortDescending
	}

	resp, err := h.scimService.SearchGroups(c.Request.Context(), t, baseURL(c, t),
		c.Query("filter"), c.Query("sortBy"), sortOrder, startIndex, count,
		splitCSV(c.Query("attributes")), splitCSV(c.Query("excludedAttributes")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderJSON(c, http.StatusOK, resp)
}

// GetGroup handles GET /Groups/{id}
func (h *SCIMHandler) GetGroup(c *gin.Context) {
	t := currentTenant(c)
	doc, err := h.scimService.GetGroup(c.Request.Context(), t, baseURL(c, t), c.Param("id"),
		c.GetHeader("If-None-Match"), splitCSV(c.Query("attributes")), splitCSV(c.Query("excludedAttributes")))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderResource(c, http.StatusOK, doc)
}

// CreateGroup handles POST /Groups
func (h *SCIMHandler) CreateGroup(c *gin.Context) {
	var g models.SCIMGroup
	if err := c.ShouldBindJSON(&g); err != nil {
		h.handleSCIMError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a valid Group")
		return
	}
	t := currentTenant(c)
	doc, err := h.scimService.CreateGroup(c.Request.Context(), t, baseURL(c, t), &g)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if loc, ok := doc["id"].(string); ok {
		c.Header("Location", baseURL(c, t)+"/Groups/"+loc)
	}
	h.renderResource(c, http.StatusCreated, doc)
}

// UpdateGroup handles PUT /Groups/{id}
func (h *SCIMHandler) UpdateGroup(c *gin.Context) {
	var g models.SCIMGroup
	if err := c.ShouldBindJSON(&g); err != nil {
		h.handleSCIMError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a valid Group")
		return
	}
	t := currentTenant(c)
	doc, err := h.scimService.UpdateGroup(c.Request.Context(), t, baseURL(c, t), c.Param("id"), &g, c.GetHeader("If-Match"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderResource(c, http.StatusOK, doc)
}

// PatchGroup handles PATCH /Groups/{id}
func (h *SCIMHandler) PatchGroup(c *gin.Context) {
	var req models.SCIMPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleSCIMError(c, http.StatusBadRequest, "invalidSyntax", "request body is not a valid PatchOp")
		return
	}
	t := currentTenant(c)
	doc, err := h.scimService.PatchGroup(c.Request.Context(), t, baseURL(c, t), c.Param("id"), &req, c.GetHeader("If-Match"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderResource(c, http.StatusOK, doc)
}

// DeleteGroup handles DELETE /Groups/{id}
func (h *SCIMHandler) DeleteGroup(c *gin.Context) {
	t := currentTenant(c)
	if err := h.scimService.DeleteGroup(c.Request.Context(), t, c.Param("id"), c.GetHeader("If-Match")); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetServiceProviderConfig handles GET /ServiceProviderConfig
func (h *SCIMHandler) GetServiceProviderConfig(c *gin.Context) {
	t := currentTenant(c)
	h.renderJSON(c, http.StatusOK, h.scimService.GetServiceProviderConfig(baseURL(c, t)))
}

// GetSchemas handles GET /Schemas
func (h *SCIMHandler) GetSchemas(c *gin.Context) {
	t := currentTenant(c)
	h.renderJSON(c, http.StatusOK, h.scimService.GetSchemas(baseURL(c, t)))
}

// GetResourceTypes handles GET /ResourceTypes
func (h *SCIMHandler) GetResourceTypes(c *gin.Context) {
	t := currentTenant(c)
	h.renderJSON(c, http.StatusOK, h.scimService.GetResourceTypes(baseURL(c, t)))
}

// renderResource writes a single-resource map body, setting Location and
// ETag from its meta sub-object when present.
func (h *SCIMHandler) renderResource(c *gin.Context, status int, doc map[string]interface{}) {
	if meta, ok := doc["meta"].(map[string]interface{}); ok {
		if loc, ok := meta["location"].(string); ok && loc != "" {
			c.Header("Location", loc)
		}
		if version, ok := meta["version"].(string); ok && version != "" {
			c.Header("ETag", version)
		}
	}
	h.renderJSON(c, status, doc)
}

func (h *SCIMHandler) renderJSON(c *gin.Context, status int, body interface{}) {
	c.Data(status, scimContentType+"; charset=utf-8", mustMarshal(body))
}

// Helper methods

func (h *SCIMHandler) handleError(c *gin.Context, err error) {
	if err == models.ErrNotModified {
		c.Status(http.StatusNotModified)
		return
	}
	if appErr, ok := err.(*models.AppError); ok {
		statusCode := appErr.Code
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		detail := appErr.Details
		if detail == "" {
			detail = appErr.Message
		}
		h.handleSCIMError(c, statusCode, appErr.ScimType, detail)
		return
	}

	h.logger.Error("unhandled SCIM service error", map[string]interface{}{"error": err.Error()})
	h.handleSCIMError(c, http.StatusInternalServerError, "", "internal server error")
}

func (h *SCIMHandler) handleSCIMError(c *gin.Context, status int, scimType, detail string) {
	h.renderJSON(c, status, models.NewSCIMError(status, scimType, detail))
}

func parseSCIMPaginationParams(c *gin.Context) (int, int) {
	return utils.ParseSCIMPagination(c)
}

// mustMarshal renders body to JSON; every call site passes a map or a
// struct built by this package, so a marshal failure would indicate a
// programmer error rather than bad input.
func mustMarshal(body interface{}) []byte {
	raw, err := json.Marshal(body)
	if err != nil {
		return []byte(`{"schemas":["` + models.SchemaError + `"],"status":"500","detail":"failed to render response"}`)
	}
	return raw
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/metrics"
	"github.com/scimkit/scimserver/internal/models"
	"github.com/scimkit/scimserver/internal/tenant"
)

const (
	TenantContextKey = "scim.tenant"
	TenantPathKey     = "scim.tenantPath"
)

// TenantMiddleware resolves the request's tenant via the configured
// path/host/forwarded routing rules and enforces that tenant's auth
// scheme before handing off to the SCIM handlers.
type TenantMiddleware struct {
	router *tenant.Router
}

func NewTenantMiddleware(router *tenant.Router) *TenantMiddleware {
	return &TenantMiddleware{router: router}
}

// Resolve resolves and authenticates the tenant, aborting with 404 when
// no tenant matches the request and 401 when auth fails. A tenant-relative
// path that matches one of the tenant's custom endpoints is dispatched
// verbatim here, before SCIM routing ever sees it; a custom endpoint's own
// auth scheme overrides the tenant default for that one path.
func (m *TenantMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		t, rest, ok := m.router.Resolve(c.Request)
		if !ok {
			c.JSON(http.StatusNotFound, models.NewSCIMError(http.StatusNotFound, "", "Tenant not found"))
			c.Abort()
			return
		}

		customEndpoint, hasCustomEndpoint := tenant.MatchCustomEndpoint(t, rest)
		authTenant := t
		if hasCustomEndpoint && customEndpoint.Auth != "" {
			authTenant.Auth.Scheme = config.AuthScheme(customEndpoint.Auth)
		}

		if !tenant.Authenticate(authTenant, c.GetHeader("Authorization")) {
			metrics.RecordTenantAuthFailure(t.ID)
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, models.NewSCIMError(http.StatusUnauthorized, "", "authentication failed"))
			c.Abort()
			return
		}

		if hasCustomEndpoint {
			contentType := customEndpoint.ContentType
			if contentType == "" {
				contentType = "application/json"
			}
			status := customEndpoint.Status
			if status == 0 {
				status = http.StatusOK
			}
			c.Data(status, contentType, []byte(customEndpoint.Body))
			c.Abort()
			return
		}

		c.Set(TenantContextKey, t)
		c.Set(TenantPathKey, rest)
		c.Next()
	}
}

package tenant

import "github.com/scimkit/scimserver/internal/config"

// MatchCustomEndpoint finds the tenant's custom endpoint whose path
// exactly matches the tenant-relative request path, if any. Custom
// endpoints are checked before SCIM dispatch and short-circuit it.
func MatchCustomEndpoint(t config.TenantConfig, path string) (config.CustomEndpoint, bool) {
	for _, ce := range t.CustomEndpoints {
		if ce.Path == path {
			return ce, true
		}
	}
	return config.CustomEndpoint{}, false
}

package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimkit/scimserver/internal/config"
)

func testDoc() *config.TenantDocument {
	return &config.TenantDocument{
		Tenants: []config.TenantConfig{
			{ID: "acme", Path: "/scim/v2/acme"},
			{ID: "acme-eu", Path: "/scim/v2/acme/eu"},
			{
				ID:   "globex",
				Host: "globex.example.com",
				HostResolution: config.HostResolution{
					ResolutionType: config.ResolveByHost,
				},
			},
		},
	}
}

func forwardedDoc() *config.TenantDocument {
	return &config.TenantDocument{
		Tenants: []config.TenantConfig{
			{
				ID:   "initech",
				Host: "initech.example.com",
				HostResolution: config.HostResolution{
					ResolutionType: config.ResolveByForwarded,
					TrustedProxies: []string{"10.0.0.0/8", "192.168.1.1"},
				},
			},
		},
	}
}

func TestRouter_ResolveByPath_PrefersLongestPrefix(t *testing.T) {
	r := NewRouter(testDoc())

	req := httptest.NewRequest(http.MethodGet, "/scim/v2/acme/eu/Users", nil)
	tenant, rest, ok := r.Resolve(req)
	require.True(t, ok)
	assert.Equal(t, "acme-eu", tenant.ID)
	assert.Equal(t, "/Users", rest)
}

func TestRouter_ResolveByPath_ShorterTenantStillMatches(t *testing.T) {
	r := NewRouter(testDoc())

	req := httptest.NewRequest(http.MethodGet, "/scim/v2/acme/Groups/1", nil)
	tenant, rest, ok := r.Resolve(req)
	require.True(t, ok)
	assert.Equal(t, "acme", tenant.ID)
	assert.Equal(t, "/Groups/1", rest)
}

func TestRouter_ResolveByHost(t *testing.T) {
	r := NewRouter(testDoc())

	req := httptest.NewRequest(http.MethodGet, "/Users", nil)
	req.Host = "globex.example.com"
	tenant, rest, ok := r.Resolve(req)
	require.True(t, ok)
	assert.Equal(t, "globex", tenant.ID)
	assert.Equal(t, "/Users", rest)
}

func TestRouter_Resolve_UnknownTenant(t *testing.T) {
	r := NewRouter(testDoc())

	req := httptest.NewRequest(http.MethodGet, "/scim/v2/unknown/Users", nil)
	_, _, ok := r.Resolve(req)
	assert.False(t, ok)
}

func TestRouter_CompatibilityDefaults(t *testing.T) {
	show := true
	doc := testDoc()
	doc.CompatibilityDefaults = config.CompatOverrides{ShowEmptyGroupsMembers: &show}
	r := NewRouter(doc)

	defaults := r.CompatibilityDefaults()
	require.NotNil(t, defaults.ShowEmptyGroupsMembers)
	assert.True(t, *defaults.ShowEmptyGroupsMembers)
}

func TestRouter_ResolveByHost_TrustedProxyForwardedHeaderHonored(t *testing.T) {
	r := NewRouter(forwardedDoc())

	req := httptest.NewRequest(http.MethodGet, "/Users", nil)
	req.Host = "10.0.0.5:8080"
	req.RemoteAddr = "10.1.2.3:54321"
	req.Header.Set("X-Forwarded-Host", "initech.example.com")

	tenant, _, ok := r.Resolve(req)
	require.True(t, ok)
	assert.Equal(t, "initech", tenant.ID)
}

func TestRouter_ResolveByHost_UntrustedPeerForwardedHeaderIgnored(t *testing.T) {
	r := NewRouter(forwardedDoc())

	req := httptest.NewRequest(http.MethodGet, "/Users", nil)
	req.Host = "attacker.example.com"
	req.RemoteAddr = "203.0.113.9:54321"
	req.Header.Set("X-Forwarded-Host", "initech.example.com")

	_, _, ok := r.Resolve(req)
	assert.False(t, ok, "forwarded header from an untrusted peer must not resolve a tenant")
}

func TestRouter_ResolveByHost_HostModeIgnoresForwardedHeaderEvenFromTrustedPeer(t *testing.T) {
	doc := testDoc()
	r := NewRouter(doc)

	req := httptest.NewRequest(http.MethodGet, "/Users", nil)
	req.Host = "attacker.example.com"
	req.RemoteAddr = "10.1.2.3:54321"
	req.Header.Set("X-Forwarded-Host", "globex.example.com")

	_, _, ok := r.Resolve(req)
	assert.False(t, ok, "plain host resolution must never consult forwarded headers")
}

func TestRouter_Tenant_LooksUpByID(t *testing.T) {
	r := NewRouter(testDoc())

	tenant, ok := r.Tenant("globex")
	require.True(t, ok)
	assert.Equal(t, "globex.example.com", tenant.Host)

	_, ok = r.Tenant("does-not-exist")
	assert.False(t, ok)
}

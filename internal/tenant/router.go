// Package tenant resolves an inbound HTTP request to a configured tenant
// and enforces that tenant's authentication scheme.
package tenant

import (
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/scimkit/scimserver/internal/config"
)

// Router resolves requests to tenants using each tenant's configured
// resolution mode (path / host / forwarded / x-forwarded), preferring
// the longest matching path prefix when several tenants share a mode.
type Router struct {
	doc             *config.TenantDocument
	byID            map[string]config.TenantConfig
	byPath          []config.TenantConfig // sorted by path length, longest first
	byHostDirect    map[string]config.TenantConfig
	byHostForwarded map[string]config.TenantConfig
	trustedProxies  []trustMatcher
}

// trustMatcher is a single trusted_proxies entry: either a literal peer
// address or a CIDR block.
type trustMatcher struct {
	literal string
	network *net.IPNet
}

func NewRouter(doc *config.TenantDocument) *Router {
	r := &Router{
		doc:             doc,
		byID:            make(map[string]config.TenantConfig, len(doc.Tenants)),
		byHostDirect:    make(map[string]config.TenantConfig, len(doc.Tenants)),
		byHostForwarded: make(map[string]config.TenantConfig, len(doc.Tenants)),
	}
	for _, t := range doc.Tenants {
		r.byID[t.ID] = t
		switch t.HostResolution.ResolutionType {
		case config.ResolveByHost:
			if t.Host != "" {
				r.byHostDirect[strings.ToLower(t.Host)] = t
			}
		case config.ResolveByForwarded, config.ResolveByXForward:
			if t.Host != "" {
				r.byHostForwarded[strings.ToLower(t.Host)] = t
			}
			r.trustedProxies = append(r.trustedProxies, parseTrustedProxies(t.HostResolution.TrustedProxies)...)
		default:
			r.byPath = append(r.byPath, t)
		}
	}
	sort.Slice(r.byPath, func(i, j int) bool {
		return len(r.byPath[i].Path) > len(r.byPath[j].Path)
	})
	return r
}

func parseTrustedProxies(entries []string) []trustMatcher {
	matchers := make([]trustMatcher, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			matchers = append(matchers, trustMatcher{network: network})
			continue
		}
		matchers = append(matchers, trustMatcher{literal: entry})
	}
	return matchers
}

func (r *Router) Tenant(id string) (config.TenantConfig, bool) {
	t, ok := r.byID[id]
	return t, ok
}

func (r *Router) CompatibilityDefaults() config.CompatOverrides {
	return r.doc.CompatibilityDefaults
}

// Resolve determines the tenant for req, returning the tenant, the
// request path with the tenant's path prefix stripped, and whether a
// tenant was found.
func (r *Router) Resolve(req *http.Request) (config.TenantConfig, string, bool) {
	if t, rest, ok := r.resolveByPath(req.URL.Path); ok {
		return t, rest, true
	}
	if t, ok := r.resolveByHost(req); ok {
		return t, req.URL.Path, true
	}
	return config.TenantConfig{}, req.URL.Path, false
}

func (r *Router) resolveByPath(path string) (config.TenantConfig, string, bool) {
	for _, t := range r.byPath {
		if t.Path == "" {
			continue
		}
		if path == t.Path || strings.HasPrefix(path, strings.TrimSuffix(t.Path, "/")+"/") {
			rest := strings.TrimPrefix(path, strings.TrimSuffix(t.Path, "/"))
			if rest == "" {
				rest = "/"
			}
			return t, rest, true
		}
	}
	return config.TenantConfig{}, "", false
}

// resolveByHost matches the request's own Host header against tenants
// configured for plain host resolution first. Only once that fails, and
// only when the immediate peer is in a forwarded-mode tenant's
// trusted_proxies list, does it fall back to X-Forwarded-Host/Forwarded
// — an untrusted peer's forwarded header is never consulted, so it can't
// be used to spoof its way into another tenant.
func (r *Router) resolveByHost(req *http.Request) (config.TenantConfig, bool) {
	if host := directHost(req); host != "" {
		if t, ok := r.byHostDirect[strings.ToLower(host)]; ok {
			return t, true
		}
	}
	if r.isTrustedPeer(req.RemoteAddr) {
		if host := forwardedHost(req); host != "" {
			if t, ok := r.byHostForwarded[strings.ToLower(host)]; ok {
				return t, true
			}
		}
	}
	return config.TenantConfig{}, false
}

func (r *Router) isTrustedPeer(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	for _, m := range r.trustedProxies {
		if m.network != nil {
			if ip != nil && m.network.Contains(ip) {
				return true
			}
			continue
		}
		if m.literal == host {
			return true
		}
	}
	return false
}

func directHost(req *http.Request) string {
	if req.Host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(req.Host); err == nil {
		return h
	}
	return req.Host
}

func forwardedHost(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-Host"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return stripPort(strings.TrimSpace(parts[0]))
	}
	if fwd := req.Header.Get("Forwarded"); fwd != "" {
		for _, kv := range strings.Split(fwd, ";") {
			kv = strings.TrimSpace(kv)
			if strings.HasPrefix(strings.ToLower(kv), "host=") {
				return stripPort(strings.TrimSpace(kv[len("host="):]))
			}
		}
	}
	return ""
}

func stripPort(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}

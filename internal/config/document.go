package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TenantDocument is the declarative multi-tenant configuration document:
// one file describing every tenant's path/host binding, auth scheme and
// compatibility overrides. Loaded via read -> os.ExpandEnv -> unmarshal
// -> per-tenant defaulting.
type TenantDocument struct {
	Server                ServerDoc       `yaml:"server"`
	Storage               StorageDoc      `yaml:"storage"`
	Tenants               []TenantConfig  `yaml:"tenants"`
	CompatibilityDefaults CompatOverrides `yaml:"compatibility_defaults"`
}

type ServerDoc struct {
	BindAddr       string `yaml:"bind_addr"`
	RequestTimeout string `yaml:"request_timeout"`
}

type StorageDoc struct {
	Driver string `yaml:"driver"`
	DSNEnv string `yaml:"dsn_env"`
}

// HostResolutionMode selects how a request is bound to a tenant.
type HostResolutionMode string

const (
	ResolveByPath      HostResolutionMode = "path"
	ResolveByHost      HostResolutionMode = "host"
	ResolveByForwarded HostResolutionMode = "forwarded"
	ResolveByXForward  HostResolutionMode = "x-forwarded"
)

type HostResolution struct {
	ResolutionType HostResolutionMode `yaml:"resolution_type"`
	TrustedProxies []string           `yaml:"trusted_proxies"`
}

// AuthScheme selects how a tenant authenticates inbound requests.
type AuthScheme string

const (
	AuthNone   AuthScheme = "unauthenticated"
	AuthBearer AuthScheme = "bearer"
	AuthBasic  AuthScheme = "basic"
	AuthToken  AuthScheme = "token"
)

type TenantAuth struct {
	Scheme   AuthScheme `yaml:"scheme"`
	TokenEnv string     `yaml:"token_env"`
}

// CompatOverrides are the per-tenant boolean quirks from 4.6. Pointers so
// "unset" (fall through to the tenant-document default, then the
// hardcoded default) is distinguishable from an explicit false.
type CompatOverrides struct {
	ShowEmptyGroupsMembers         *bool `yaml:"show_empty_groups_members"`
	IncludeUserGroups              *bool `yaml:"include_user_groups"`
	SupportPatchReplaceEmptyArray  *bool `yaml:"support_patch_replace_empty_array"`
	SupportPatchReplaceEmptyValue  *bool `yaml:"support_patch_replace_empty_value"`
}

// ResolvedCompat is the flattened three-way merge: tenant ?? global ?? default.
type ResolvedCompat struct {
	ShowEmptyGroupsMembers        bool
	IncludeUserGroups             bool
	SupportPatchReplaceEmptyArray bool
	SupportPatchReplaceEmptyValue bool
}

type CustomEndpoint struct {
	Path        string `yaml:"path"`
	Auth        string `yaml:"auth"`
	Status      int    `yaml:"status"`
	ContentType string `yaml:"content_type"`
	Body        string `yaml:"body"`
}

type TenantConfig struct {
	ID              string          `yaml:"id"`
	Path            string          `yaml:"path"`
	Host            string          `yaml:"host"`
	OverrideBaseURL string          `yaml:"override_base_url"`
	HostResolution  HostResolution  `yaml:"host_resolution"`
	Auth            TenantAuth      `yaml:"auth"`
	Compatibility   CompatOverrides `yaml:"compatibility"`
	CustomEndpoints []CustomEndpoint `yaml:"custom_endpoints"`
}

// Resolve merges this tenant's overrides over the document-wide defaults,
// falling back to the hardcoded SCIM defaults (all false) last.
func (t TenantConfig) Resolve(defaults CompatOverrides) ResolvedCompat {
	return ResolvedCompat{
		ShowEmptyGroupsMembers:         pickBool(t.Compatibility.ShowEmptyGroupsMembers, defaults.ShowEmptyGroupsMembers, false),
		IncludeUserGroups:              pickBool(t.Compatibility.IncludeUserGroups, defaults.IncludeUserGroups, false),
		SupportPatchReplaceEmptyArray:  pickBool(t.Compatibility.SupportPatchReplaceEmptyArray, defaults.SupportPatchReplaceEmptyArray, false),
		SupportPatchReplaceEmptyValue:  pickBool(t.Compatibility.SupportPatchReplaceEmptyValue, defaults.SupportPatchReplaceEmptyValue, false),
	}
}

func pickBool(tenant, global *bool, fallback bool) bool {
	if tenant != nil {
		return *tenant
	}
	if global != nil {
		return *global
	}
	return fallback
}

// ResolvedToken returns the bearer/token credential configured for this
// tenant's auth scheme, read from the environment variable it names.
// Secrets are referenced by name in the document and never inlined.
func (t TenantConfig) ResolvedToken() string {
	if t.Auth.TokenEnv == "" {
		return ""
	}
	return os.Getenv(t.Auth.TokenEnv)
}

// LoadDocument loads and expands the tenant configuration document:
// read file -> os.ExpandEnv -> yaml.Unmarshal -> defaulting.
func LoadDocument(path string) (*TenantDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading tenant document: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	var doc TenantDocument
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("config: parsing tenant document: %w", err)
	}

	if doc.Server.BindAddr == "" {
		doc.Server.BindAddr = ":8080"
	}
	if doc.Server.RequestTimeout == "" {
		doc.Server.RequestTimeout = "30s"
	}
	if doc.Storage.Driver == "" {
		doc.Storage.Driver = "postgres"
	}
	for i := range doc.Tenants {
		if doc.Tenants[i].HostResolution.ResolutionType == "" {
			doc.Tenants[i].HostResolution.ResolutionType = ResolveByPath
		}
		if doc.Tenants[i].Auth.Scheme == "" {
			doc.Tenants[i].Auth.Scheme = AuthNone
		}
	}

	if len(doc.Tenants) == 0 {
		return nil, fmt.Errorf("config: tenant document %s defines no tenants", path)
	}
	seen := make(map[string]bool, len(doc.Tenants))
	for _, t := range doc.Tenants {
		if t.ID == "" {
			return nil, fmt.Errorf("config: tenant entry missing id")
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("config: duplicate tenant id %q", t.ID)
		}
		seen[t.ID] = true
	}

	return &doc, nil
}

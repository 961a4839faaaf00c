package tenant

import (
	"encoding/base64"
	"strings"

	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/utils"
)

// Authenticate checks the inbound Authorization header against t's
// configured auth scheme, using constant-time comparison for bearer and
// token secrets to avoid timing side channels.
func Authenticate(t config.TenantConfig, authHeader string) bool {
	switch t.Auth.Scheme {
	case config.AuthNone, "":
		return true

	case config.AuthBearer:
		expected := t.ResolvedToken()
		if expected == "" {
			return false
		}
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			return false
		}
		got := strings.TrimPrefix(authHeader, prefix)
		return utils.CompareHashConstantTime(utils.HashToken(got), utils.HashToken(expected))

	case config.AuthToken:
		expected := t.ResolvedToken()
		if expected == "" {
			return false
		}
		const prefix = "Token "
		if !strings.HasPrefix(authHeader, prefix) {
			return false
		}
		got := strings.TrimPrefix(authHeader, prefix)
		return utils.CompareHashConstantTime(utils.HashToken(got), utils.HashToken(expected))

	case config.AuthBasic:
		expected := t.ResolvedToken() // "user:pass" stored behind the env var
		if expected == "" {
			return false
		}
		const prefix = "Basic "
		if !strings.HasPrefix(authHeader, prefix) {
			return false
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(authHeader, prefix))
		if err != nil {
			return false
		}
		return utils.CompareHashConstantTime(utils.HashToken(string(decoded)), utils.HashToken(expected))
	}
	return false
}

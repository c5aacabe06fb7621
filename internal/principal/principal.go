// Package principal carries the authenticated caller through a request
// (spec §4.2): identity plus the permission scopes granted by the access
// token, extracted once by the Auth Gate middleware and read by every
// downstream handler and graph engine operation.
package principal

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Principal struct {
	Subject     string
	Email       string
	Permissions []string
	ClientIP    string
	UserAgent   string
}

// FromClaims builds a Principal from verified JWT claims. The permissions
// claim is accepted either as a JSON array of strings or as a single
// string value, optionally comma-separated — providers observed in
// practice emit a bare scalar like "acme:write" with no comma at all.
func FromClaims(claims jwt.MapClaims) Principal {
	p := Principal{}
	if sub, ok := claims["sub"].(string); ok {
		p.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	p.Permissions = normalizePermissions(claims["permissions"])
	return p
}

func normalizePermissions(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
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
	default:
		return nil
	}
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

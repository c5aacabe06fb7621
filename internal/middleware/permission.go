package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/authz"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/apierr"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/ctxutil"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/respond"
	"github.com/ganesh47/cf-metadata-sys/internal/principal"
)

// RequireLevel enforces that the request's Principal holds a scope
// authorizing `required` for the org bound to the `:org` path parameter
// (spec §4.2 Authorization). Must run after RequireAuth.
func RequireLevel(required authz.Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := ctxutil.RequestID(c.Request.Context())
		p, ok := principal.FromContext(c.Request.Context())
		if !ok {
			respond.Error(c, requestID, apierr.New(http.StatusUnauthorized, "auth_missing", errors.New("Missing authentication token")))
			return
		}
		org := c.Param("org")
		if !authz.Allows(p.Permissions, org, required) {
			respond.Error(c, requestID, apierr.New(http.StatusForbidden, "forbidden", errors.New("Insufficient permissions")))
			return
		}
		c.Next()
	}
}

// Package handlers adapts the Graph Engine services onto gin request/
// response plumbing (spec §6.1): JSON in, JSON out, the {error,
// requestId} envelope on failure (spec §7).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/graph"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/apierr"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/ctxutil"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/respond"
	"github.com/ganesh47/cf-metadata-sys/internal/principal"
)

func requestID(c *gin.Context) string {
	return ctxutil.RequestID(c.Request.Context())
}

func principalOf(c *gin.Context) principal.Principal {
	p, _ := principal.FromContext(c.Request.Context())
	return p
}

func requestMeta(c *gin.Context) graph.RequestMeta {
	p := principalOf(c)
	return graph.RequestMeta{PrincipalID: p.Subject, UserAgent: p.UserAgent, ClientIP: p.ClientIP}
}

// respondError maps a service-layer error to the spec's taxonomy
// (§7): ErrNotFound -> 404, everything else -> 500 with {error, requestId}.
func respondError(c *gin.Context, err error, notFoundMessage string) {
	reqID := requestID(c)
	if errors.Is(err, graph.ErrNotFound) {
		respond.Error(c, reqID, apierr.New(http.StatusNotFound, "not_found", errors.New(notFoundMessage)))
		return
	}
	if errors.Is(err, graph.ErrMissingRequiredField) {
		respond.Error(c, reqID, apierr.New(http.StatusBadRequest, "bad_request", err))
		return
	}
	respond.Error(c, reqID, apierr.New(http.StatusInternalServerError, "internal_error", err))
}

// respondBadRequest writes a malformed-request failure (spec §7's
// BadRequest) through the same envelope helper as every other handler
// error path.
func respondBadRequest(c *gin.Context, code, message string) {
	respond.Error(c, requestID(c), apierr.New(http.StatusBadRequest, code, errors.New(message)))
}

// Package respond is the single response-writing helper SPEC_FULL.md's
// Error handling section describes: handlers and middleware hand it an
// *apierr.Error and it writes the {error, code, requestId} envelope, never
// building that JSON inline at the call site.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/apierr"
)

// Error writes apiErr's status and message as spec §7's failure envelope,
// aborting the gin context so no further handler in the chain runs. A nil
// apiErr is treated as an unlabeled internal error.
func Error(c *gin.Context, requestID string, apiErr *apierr.Error) {
	if apiErr == nil {
		apiErr = apierr.New(http.StatusInternalServerError, "internal_error", nil)
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error":     apiErr.Error(),
		"code":      apiErr.Code,
		"requestId": requestID,
	})
}

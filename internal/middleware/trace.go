package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/ctxutil"
)

const headerRequestID = "X-Request-Id"

// AttachRequestContext stamps every request — including ones that never
// reach a route handler (404/405) — with a request id, readable
// downstream via ctxutil.GetTraceData/RequestID and echoed back in every
// error envelope (spec §7). Registered once as global middleware so it
// runs ahead of routing, not per matched route.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{RequestID: requestID})
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Next()
	}
}

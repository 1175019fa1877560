package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// IdentityKey is the context key for the authenticated identity
	IdentityKey = "identity"
)

// EnrichContext adds trace ID to each request, propagating an incoming
// header or generating a fresh one.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetIdentity retrieves the authenticated identity stored by RequireAuth.
func GetIdentity(c *gin.Context) (domain.AuthenticatedIdentity, bool) {
	raw, exists := c.Get(IdentityKey)
	if !exists {
		return domain.AuthenticatedIdentity{}, false
	}

	identity, ok := raw.(domain.AuthenticatedIdentity)
	return identity, ok
}

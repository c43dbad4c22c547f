package adminkit

import (
	"context"
)

// Context keys for adminkit values.
type contextKey string

const (
	contextKeyIdentityID    contextKey = "adminkit:identity_id"
	contextKeyIPAddress     contextKey = "adminkit:ip_address"
	contextKeyUserAgent     contextKey = "adminkit:user_agent"
	contextKeyRequestID     contextKey = "adminkit:request_id"
	contextKeyAuthorization contextKey = "adminkit:authorization"
)

// WithIdentityID adds the authenticated identity to the context.
// ContextResolver reads it back when resolving the request principal.
func WithIdentityID(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, contextKeyIdentityID, identityID)
}

// GetIdentityID retrieves the identity from context.
// Returns empty string if not set.
func GetIdentityID(ctx context.Context) string {
	return stringValue(ctx, contextKeyIdentityID)
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	return stringValue(ctx, contextKeyIPAddress)
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserAgent)
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, contextKeyRequestID)
}

// WithAuthorization carries the decided AuthorizationContext of a request.
// The middleware sets it; handlers read it with AuthorizationFrom.
func WithAuthorization(ctx context.Context, authz *AuthorizationContext) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, authz)
}

// AuthorizationFrom retrieves the AuthorizationContext from context.
// Returns nil if not set; every AuthorizationContext method is nil-safe,
// so the result can be queried directly.
//
// Example:
//
//	func listingHandler(w http.ResponseWriter, r *http.Request) {
//	    authz := adminkit.AuthorizationFrom(r.Context())
//	    showApprove := authz.Has(adminkit.PermListingsApprove)
//	    ...
//	}
func AuthorizationFrom(ctx context.Context) *AuthorizationContext {
	if v := ctx.Value(contextKeyAuthorization); v != nil {
		if c, ok := v.(*AuthorizationContext); ok {
			return c
		}
	}
	return nil
}

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// AuditContext holds the request metadata stored on audit entries.
type AuditContext struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}

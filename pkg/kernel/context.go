package kernel

import "context"

// AuthContext is the authenticated identity injected into each request after
// token validation.
type AuthContext struct {
	UserID UserID   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// IsValid reports whether the context carries an authenticated identity.
func (ac *AuthContext) IsValid() bool {
	return !ac.UserID.IsEmpty() && len(ac.Roles) > 0
}

// HasRole reports whether the identity holds the given role name.
func (ac *AuthContext) HasRole(role string) bool {
	for _, r := range ac.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity holds at least one of the roles.
func (ac *AuthContext) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if ac.HasRole(role) {
			return true
		}
	}
	return false
}

type contextKey string

const (
	authContextKey contextKey = "auth_context"
	clientInfoKey  contextKey = "client_info"
)

// ClientInfo carries the caller's network identity, captured at the transport
// edge and read by services that record it.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// WithClientInfo stores client info in ctx.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey, info)
}

// ClientInfoFromContext extracts client info from ctx.
func ClientInfoFromContext(ctx context.Context) (ClientInfo, bool) {
	info, ok := ctx.Value(clientInfoKey).(ClientInfo)
	return info, ok
}

// WithAuthContext stores the authenticated identity in ctx.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// AuthContextFromContext extracts the authenticated identity from ctx.
func AuthContextFromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(*AuthContext)
	return ac, ok
}

package auth

import (
	"context"
)

// AuthType identifies how a caller was authenticated
type AuthType string

const (
	AuthTypeAPIKey AuthType = "api_key"
	AuthTypeJWT    AuthType = "jwt"
)

// Caller holds authenticated caller information
type Caller struct {
	ID          string
	DisplayName string
	Email       string
	Roles       []string
	Scopes      []string
	AuthType    AuthType
}

type contextKey string

const callerContextKey contextKey = "caller"

// WithCaller adds the caller to the context
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// FromContext extracts the caller from the context
func FromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(*Caller)
	return caller, ok && caller != nil
}

// DisplayNameFromContext returns the authenticated display name, or "" for anonymous requests
func DisplayNameFromContext(ctx context.Context) string {
	if caller, ok := FromContext(ctx); ok {
		return caller.DisplayName
	}
	return ""
}

// HasRole checks if the caller has a specific role
func (c *Caller) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

package auth

import (
	"slices"
	"time"
)

// Method indicates how a request was authenticated.
type Method string

const (
	MethodJWT       Method = "jwt"
	MethodAPIKey    Method = "api_key"
	MethodAnonymous Method = "anonymous"
)

// Identity represents an authenticated principal.
type Identity struct {
	// Principal is the unique identifier (e.g., user ID, email).
	Principal string

	// TenantID is the tenant this identity belongs to.
	TenantID string

	// Roles are the roles assigned to this identity.
	Roles []string

	// Method indicates how authentication was performed.
	Method Method

	// Claims contains the raw token claims or key metadata.
	Claims map[string]any

	// ExpiresAt is when this identity expires.
	ExpiresAt time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// IsAnonymous returns true if this is an anonymous identity.
func (id *Identity) IsAnonymous() bool {
	return id.Method == MethodAnonymous || id.Principal == ""
}

// AnonymousIdentity creates the identity given to requests that carry no
// credentials when authentication is optional.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: "anonymous",
		Method:    MethodAnonymous,
		Claims:    make(map[string]any),
	}
}

package auth

import "net/http"

// Authenticator verifies the credentials carried by a request.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: blocking work honors the request context.
//   - Errors: Authenticate returns one of the rejection sentinels (see
//     IsRejection) when the credentials are bad, and any other error when it
//     could not decide.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries credentials of this kind.
	Supports(r *http.Request) bool

	// Authenticate verifies the credentials and returns the caller's identity.
	Authenticate(r *http.Request) (*Identity, error)
}

// AuthenticatorFunc adapts ordinary functions to Authenticator.
type AuthenticatorFunc struct {
	name     string
	supports func(r *http.Request) bool
	auth     func(r *http.Request) (*Identity, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc.
func NewAuthenticatorFunc(
	name string,
	supports func(r *http.Request) bool,
	auth func(r *http.Request) (*Identity, error),
) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, supports: supports, auth: auth}
}

// Name returns the authenticator name.
func (f *AuthenticatorFunc) Name() string { return f.name }

// Supports calls the supports func.
func (f *AuthenticatorFunc) Supports(r *http.Request) bool { return f.supports(r) }

// Authenticate calls the auth func.
func (f *AuthenticatorFunc) Authenticate(r *http.Request) (*Identity, error) { return f.auth(r) }

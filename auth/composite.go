package auth

import "net/http"

// CompositeAuthenticator tries several authenticators in order. The first
// one that supports the request and accepts it wins.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{authenticators: auths}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Supports returns true if any authenticator supports the request.
func (c *CompositeAuthenticator) Supports(r *http.Request) bool {
	for _, a := range c.authenticators {
		if a.Supports(r) {
			return true
		}
	}
	return false
}

// Authenticate returns the first accepted identity. Errors that are not
// rejections stop the search; otherwise the last rejection is returned.
func (c *CompositeAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	err := ErrMissingCredentials
	for _, a := range c.authenticators {
		if !a.Supports(r) {
			continue
		}

		id, authErr := a.Authenticate(r)
		if authErr == nil {
			return id, nil
		}
		if !IsRejection(authErr) {
			return nil, authErr
		}
		err = authErr
	}
	return nil, err
}

var _ Authenticator = (*CompositeAuthenticator)(nil)

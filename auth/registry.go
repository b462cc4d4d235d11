package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Factory creates an authenticator from configuration.
type Factory func(cfg map[string]any) (Authenticator, error)

// Registry maps authenticator type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return errors.New("auth: invalid authenticator registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("auth: authenticator %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates an authenticator by type name.
func (r *Registry) Create(name string, cfg map[string]any) (Authenticator, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAuthenticatorNotFound, name)
	}
	return factory(cfg)
}

// Composite instantiates every configured type, keyed by type name, and
// combines them in sorted name order.
func (r *Registry) Composite(cfgs map[string]map[string]any) (*CompositeAuthenticator, error) {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	auths := make([]Authenticator, 0, len(names))
	for _, name := range names {
		a, err := r.Create(name, cfgs[name])
		if err != nil {
			return nil, err
		}
		auths = append(auths, a)
	}
	return NewCompositeAuthenticator(auths...), nil
}

// List returns registered type names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in "jwt" and "api_key" authenticators.
var DefaultRegistry = NewRegistry()

func init() {
	_ = DefaultRegistry.Register("jwt", newJWTFromConfig)
	_ = DefaultRegistry.Register("api_key", newAPIKeyFromConfig)
}

// newJWTFromConfig reads issuer, audience, header_name, token_prefix,
// principal_claim, tenant_claim, roles_claim and either jwks_url (with
// optional cache_ttl) or secret.
func newJWTFromConfig(cfg map[string]any) (Authenticator, error) {
	config := JWTConfig{
		Issuer:         str(cfg, "issuer"),
		Audience:       str(cfg, "audience"),
		HeaderName:     str(cfg, "header_name"),
		TokenPrefix:    str(cfg, "token_prefix"),
		PrincipalClaim: str(cfg, "principal_claim"),
		TenantClaim:    str(cfg, "tenant_claim"),
		RolesClaim:     str(cfg, "roles_claim"),
		Methods:        strs(cfg, "methods"),
	}

	var keys KeyProvider
	switch {
	case str(cfg, "jwks_url") != "":
		jwks := JWKSConfig{URL: str(cfg, "jwks_url")}
		if ttl := str(cfg, "cache_ttl"); ttl != "" {
			d, err := time.ParseDuration(ttl)
			if err != nil {
				return nil, fmt.Errorf("auth: jwt cache_ttl: %w", err)
			}
			jwks.CacheTTL = d
		}
		keys = NewJWKSKeyProvider(jwks)
	case str(cfg, "secret") != "":
		keys = NewStaticKeyProvider([]byte(str(cfg, "secret")))
	default:
		return nil, errors.New("auth: jwt requires jwks_url or secret")
	}

	return NewJWTAuthenticator(config, keys), nil
}

// newAPIKeyFromConfig reads header_name and keys, a list of entries with id,
// principal, tenant_id, roles and either key (plain) or hash.
func newAPIKeyFromConfig(cfg map[string]any) (Authenticator, error) {
	store := NewMemoryAPIKeyStore()

	entries, _ := cfg["keys"].([]any)
	for i, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("auth: api_key keys[%d]: not a mapping", i)
		}

		info := &APIKeyInfo{
			ID:        str(entry, "id"),
			KeyHash:   str(entry, "hash"),
			Principal: str(entry, "principal"),
			TenantID:  str(entry, "tenant_id"),
			Roles:     strs(entry, "roles"),
		}
		if key := str(entry, "key"); key != "" {
			info.KeyHash = HashAPIKey(key)
		}
		if info.KeyHash == "" {
			return nil, fmt.Errorf("auth: api_key keys[%d]: key or hash required", i)
		}
		store.Add(info)
	}

	return NewAPIKeyAuthenticator(APIKeyConfig{HeaderName: str(cfg, "header_name")}, store), nil
}

func str(cfg map[string]any, key string) string {
	s, _ := cfg[key].(string)
	return s
}

func strs(cfg map[string]any, key string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		return stringList(v)
	default:
		return nil
	}
}

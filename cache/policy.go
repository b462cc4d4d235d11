package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Policy configures caching behavior.
type Policy struct {
	// DefaultTTL applies when the response carries no max-age.
	// If zero, caching is disabled.
	DefaultTTL time.Duration

	// MaxTTL clamps every TTL. If zero, no maximum is enforced.
	MaxTTL time.Duration

	// MaxBodyBytes is the largest body stored. Larger responses are served
	// but not cached. Default: 1 MiB
	MaxBodyBytes int
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 1 minute, MaxTTL: 1 hour, MaxBodyBytes: 1 MiB
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL:   time.Minute,
		MaxTTL:       time.Hour,
		MaxBodyBytes: 1 << 20,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}

// SkipRule reports whether a request must bypass the cache.
type SkipRule func(r *http.Request) bool

// DefaultSkipRule bypasses the cache for anything but GET and HEAD, for
// protocol upgrades and for requests sent with Cache-Control no-cache or
// no-store.
func DefaultSkipRule(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return true
	}
	if r.Header.Get("Upgrade") != "" {
		return true
	}
	directives := parseCacheControl(r.Header.Get("Cache-Control"))
	_, noCache := directives["no-cache"]
	_, noStore := directives["no-store"]
	return noCache || noStore
}

// responseTTL reads a response's Cache-Control. It returns the max-age, if
// any, and whether the response may be stored at all.
func responseTTL(h http.Header) (time.Duration, bool) {
	directives := parseCacheControl(h.Get("Cache-Control"))
	for _, d := range []string{"no-store", "no-cache", "private"} {
		if _, ok := directives[d]; ok {
			return 0, false
		}
	}
	if v, ok := directives["max-age"]; ok {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	return 0, true
}

func parseCacheControl(v string) map[string]string {
	directives := make(map[string]string)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		directives[strings.ToLower(strings.TrimSpace(name))] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return directives
}

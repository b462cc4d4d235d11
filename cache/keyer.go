package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
)

// Keyer derives cache keys from requests.
//
// Contract:
//   - Determinism: equivalent requests produce the same key regardless of
//     query parameter or header order.
//   - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(r *http.Request) (string, error)
}

// DefaultKeyer hashes the method, path, sorted query and the values of the
// Vary headers.
type DefaultKeyer struct {
	vary []string
}

// NewDefaultKeyer creates a keyer that separates responses by the given
// request headers.
func NewDefaultKeyer(vary ...string) *DefaultKeyer {
	names := make([]string, len(vary))
	for i, v := range vary {
		names[i] = http.CanonicalHeaderKey(v)
	}
	sort.Strings(names)
	return &DefaultKeyer{vary: names}
}

// Key returns "http:<METHOD>:<hash>", where hash is the first 16 hex
// characters of SHA-256 over the canonical request form.
func (k *DefaultKeyer) Key(r *http.Request) (string, error) {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte('\n')
	b.WriteString(r.URL.EscapedPath())
	b.WriteByte('\n')
	// Encode sorts by key; values keep their order.
	b.WriteString(r.URL.Query().Encode())
	for _, name := range k.vary {
		b.WriteByte('\n')
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(r.Header.Values(name), ","))
	}

	hash := sha256.Sum256([]byte(b.String()))
	key := "http:" + r.Method + ":" + hex.EncodeToString(hash[:8])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

var _ Keyer = (*DefaultKeyer)(nil)

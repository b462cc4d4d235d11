package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestKeyStore() *MemoryAPIKeyStore {
	store := NewMemoryAPIKeyStore()
	store.Add(&APIKeyInfo{
		ID:        "key-1",
		KeyHash:   HashAPIKey("valid-key"),
		Principal: "svc@example.com",
		TenantID:  "tenant-1",
		Roles:     []string{"writer"},
	})
	store.Add(&APIKeyInfo{
		ID:        "key-2",
		KeyHash:   HashAPIKey("expired-key"),
		Principal: "old@example.com",
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	return store
}

func TestNewAPIKeyAuthenticator_Defaults(t *testing.T) {
	a := NewAPIKeyAuthenticator(APIKeyConfig{}, NewMemoryAPIKeyStore())

	if a.Name() != "api_key" {
		t.Errorf("Name() = %v, want api_key", a.Name())
	}
	if a.config.HeaderName != "X-API-Key" {
		t.Errorf("HeaderName = %q, want X-API-Key", a.config.HeaderName)
	}
}

func TestAPIKeyAuthenticator_Supports(t *testing.T) {
	a := NewAPIKeyAuthenticator(APIKeyConfig{HeaderName: "X-Key"}, NewMemoryAPIKeyStore())

	if a.Supports(request(nil)) {
		t.Error("Supports() = true without header")
	}
	if a.Supports(request(map[string]string{"X-API-Key": "k"})) {
		t.Error("Supports() = true for default header when a custom one is configured")
	}
	if !a.Supports(request(map[string]string{"X-Key": "k"})) {
		t.Error("Supports() = false with configured header")
	}
}

func TestAPIKeyAuthenticator_Authenticate(t *testing.T) {
	a := NewAPIKeyAuthenticator(APIKeyConfig{}, newTestKeyStore())

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid", "valid-key", nil},
		{"valid with whitespace", "  valid-key ", nil},
		{"unknown", "nope", ErrInvalidCredentials},
		{"expired", "expired-key", ErrTokenExpired},
		{"blank", "   ", ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := a.Authenticate(request(map[string]string{"X-API-Key": tt.key}))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			if id.Principal != "svc@example.com" {
				t.Errorf("Principal = %q", id.Principal)
			}
			if id.TenantID != "tenant-1" {
				t.Errorf("TenantID = %q", id.TenantID)
			}
			if id.Method != MethodAPIKey {
				t.Errorf("Method = %q, want api_key", id.Method)
			}
			if id.Claims["key_id"] != "key-1" {
				t.Errorf("Claims[key_id] = %v, want key-1", id.Claims["key_id"])
			}
		})
	}
}

type brokenStore struct{ err error }

func (s brokenStore) Lookup(context.Context, string) (*APIKeyInfo, error) { return nil, s.err }

func TestAPIKeyAuthenticator_StoreError(t *testing.T) {
	errDown := errors.New("store down")
	a := NewAPIKeyAuthenticator(APIKeyConfig{}, brokenStore{err: errDown})

	_, err := a.Authenticate(request(map[string]string{"X-API-Key": "k"}))
	if !errors.Is(err, errDown) {
		t.Fatalf("Authenticate() error = %v, want %v", err, errDown)
	}
	if IsRejection(err) {
		t.Error("IsRejection() = true for a store failure")
	}
}

func TestMemoryAPIKeyStore(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	ctx := context.Background()
	hash := HashAPIKey("k")

	store.Add(&APIKeyInfo{ID: "1", KeyHash: hash})
	info, err := store.Lookup(ctx, hash)
	if err != nil || info == nil || info.ID != "1" {
		t.Fatalf("Lookup() = %v, %v; want key 1", info, err)
	}

	store.Remove(hash)
	if info, _ := store.Lookup(ctx, hash); info != nil {
		t.Errorf("Lookup() after Remove = %v, want nil", info)
	}
}

func TestHashAPIKey(t *testing.T) {
	// sha256("test")
	const want = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
	if got := HashAPIKey("test"); got != want {
		t.Errorf("HashAPIKey() = %s, want %s", got, want)
	}
	if HashAPIKey("a") == HashAPIKey("b") {
		t.Error("distinct keys hash equal")
	}
}


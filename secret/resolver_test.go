package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name    string
	values  map[string]string
	resolve func(ref string) (string, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	if s.resolve != nil {
		return s.resolve(ref)
	}
	if s.values == nil {
		return "", nil
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error { return nil }

func TestParseSecretRef(t *testing.T) {
	provider, ref, ok := ParseSecretRef("secretref:stub:alpha")
	if !ok {
		t.Fatalf("expected secretref to parse")
	}
	if provider != "stub" || ref != "alpha" {
		t.Fatalf("unexpected values: %q %q", provider, ref)
	}

	_, _, ok = ParseSecretRef("not-a-secretref")
	if ok {
		t.Fatalf("expected non-secretref to fail")
	}
}

func TestResolver_ResolvesFullSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:alpha")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "one" {
		t.Fatalf("ResolveValue() = %q, want %q", got, "one")
	}
}

func TestResolver_ResolvesInlineSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"beta": "two"}})

	got, err := r.ResolveValue(context.Background(), "Bearer secretref:stub:beta")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "Bearer two" {
		t.Fatalf("ResolveValue() = %q, want %q", got, "Bearer two")
	}
}

func TestResolver_StrictEmptyProviderValueErrors(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"empty": ""}})

	_, err := r.ResolveValue(context.Background(), "secretref:stub:empty")
	if !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

func TestResolver_ResolveMap(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one"}})

	m, err := r.ResolveMap(context.Background(), map[string]string{"k": "Bearer secretref:stub:alpha", "plain": "a"})
	if err != nil {
		t.Fatalf("ResolveMap() error = %v", err)
	}
	if m["k"] != "Bearer one" {
		t.Fatalf("ResolveMap()[\"k\"] = %q, want %q", m["k"], "Bearer one")
	}
	if m["plain"] != "a" {
		t.Fatalf("ResolveMap()[\"plain\"] = %q, want %q", m["plain"], "a")
	}

	nilMap, err := r.ResolveMap(context.Background(), nil)
	if err != nil || nilMap != nil {
		t.Fatalf("ResolveMap(nil) = %#v, %v", nilMap, err)
	}
}

func TestResolver_UnknownProvider(t *testing.T) {
	r := NewResolver(true)

	_, err := r.ResolveValue(context.Background(), "secretref:vault:token")
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("expected ErrProviderNotRegistered, got %v", err)
	}
}

func TestResolver_NilExpandsEnvOnly(t *testing.T) {
	t.Setenv("COLLECTOR", "otel:4317")

	var r *Resolver
	got, err := r.ResolveValue(context.Background(), "${COLLECTOR}")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "otel:4317" {
		t.Fatalf("ResolveValue() = %q, want %q", got, "otel:4317")
	}
}

func TestEnvProvider(t *testing.T) {
	t.Setenv("INSIGHTS_TEST_TOKEN", "abc")
	r := NewResolver(true, NewEnvProvider())

	got, err := r.ResolveValue(context.Background(), "secretref:env:INSIGHTS_TEST_TOKEN")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "abc" {
		t.Fatalf("ResolveValue() = %q, want %q", got, "abc")
	}

	_, err = r.ResolveValue(context.Background(), "secretref:env:INSIGHTS_TEST_UNSET")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("expected ErrMissingEnv, got %v", err)
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "token"), []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	r := NewResolver(true, NewFileProvider(dir))

	got, err := r.ResolveValue(context.Background(), "secretref:file:token")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "from-file" {
		t.Fatalf("ResolveValue() = %q, want %q", got, "from-file")
	}

	if _, err := r.ResolveValue(context.Background(), "secretref:file:absent"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestResolver_ProviderResolveErrorPropagates(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", resolve: func(ref string) (string, error) {
		if ref == "boom" {
			return "", errors.New("explode")
		}
		return "ok", nil
	}})

	_, err := r.ResolveValue(context.Background(), "secretref:stub:boom")
	if err == nil {
		t.Fatalf("expected error")
	}
}

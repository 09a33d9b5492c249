package secretsalt_test

import (
	"context"
	"testing"

	"github.com/gimelauth/tokensvc/internal/secretsalt"
)

func TestResolveFallsBackWithoutVaultAddress(t *testing.T) {
	r, err := secretsalt.NewResolver(secretsalt.Config{})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	got, err := r.Resolve(context.Background(), "configured-salt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "configured-salt" {
		t.Errorf("Resolve = %q, want %q", got, "configured-salt")
	}
}

func TestResolveOnNilResolverFallsBack(t *testing.T) {
	var r *secretsalt.Resolver
	got, err := r.Resolve(context.Background(), "fallback")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "fallback" {
		t.Errorf("Resolve = %q, want %q", got, "fallback")
	}
}

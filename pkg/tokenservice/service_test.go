package tokenservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gimelauth/tokensvc/internal/columnstore/memcolumns"
	"github.com/gimelauth/tokensvc/pkg/tokencategory"
	"github.com/gimelauth/tokensvc/pkg/tokenconfig"
	"github.com/gimelauth/tokensvc/pkg/tokenerrors"
	"github.com/gimelauth/tokensvc/pkg/tokenrecord"
	"github.com/gimelauth/tokensvc/pkg/tokenservice"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func newTestConfig() tokenconfig.Config {
	return tokenconfig.Config{
		TokenSecretSalt:    "salt",
		PersistenceExpires: time.Hour,
		AccessExpires:      24 * time.Hour,
		RefreshExpires:     7 * 24 * time.Hour,
		EmailExpires:       7 * 24 * time.Hour,
		OfflineExpires:     7 * 24 * time.Hour,
		RefreshReusesID:    true,
		ExpiresFromLastUse: false,
	}
}

func newTestService(cfg tokenconfig.Config, clock *fixedClock) *tokenservice.Service {
	adapter := tokenrecord.NewAdapter(memcolumns.New(), cfg.PersistenceExpires)
	return tokenservice.New(cfg, adapter, tokenservice.WithClock(clock))
}

// S1: issue Access, validate immediately.
func TestIssueThenValidate(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	svc := newTestService(newTestConfig(), clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	info, err := svc.Validate(ctx, opaque)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if info.Type != "access" {
		t.Errorf("Type = %q, want %q", info.Type, "access")
	}
	if info.Created != 0 || info.Accessed != 0 || info.Inactive != 0 {
		t.Errorf("info = %+v, want created=accessed=inactive=0", info)
	}
}

// S2: validate twice, second after 10s — inactive becomes 10000ms.
func TestValidateTwiceTracksInactiveGap(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	svc := newTestService(newTestConfig(), clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := svc.Validate(ctx, opaque); err != nil {
		t.Fatalf("first Validate: %v", err)
	}

	clock.t = time.UnixMilli(10_000)
	info, err := svc.Validate(ctx, opaque)
	if err != nil {
		t.Fatalf("second Validate: %v", err)
	}
	if info.Accessed != 10_000 {
		t.Errorf("Accessed = %d, want 10000", info.Accessed)
	}
	if info.Inactive != 10_000 {
		t.Errorf("Inactive = %d, want 10000", info.Inactive)
	}
}

// S3: tampering the last base64 character yields BadToken.
func TestValidateRejectsTamperedToken(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	svc := newTestService(newTestConfig(), clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := []byte(opaque)
	last := tampered[len(tampered)-1]
	replacement := byte('A')
	if last == replacement {
		replacement = 'B'
	}
	tampered[len(tampered)-1] = replacement

	if _, err := svc.Validate(ctx, string(tampered)); !errors.Is(err, tokenerrors.BadToken) {
		t.Errorf("expected BadToken, got %v", err)
	}
}

// S4: absolute expiry.
func TestValidateRejectsExpiredAccessToken(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	cfg := newTestConfig()
	svc := newTestService(cfg, clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.t = time.UnixMilli(cfg.AccessExpires.Milliseconds() + 1)
	if _, err := svc.Validate(ctx, opaque); !errors.Is(err, tokenerrors.ExpiredToken) {
		t.Errorf("expected ExpiredToken, got %v", err)
	}
}

// S5: Offline token never expires at the codec layer.
func TestMaxTokenAgeOffline(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	svc := newTestService(newTestConfig(), clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Offline, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	age, err := svc.MaxTokenAge(opaque)
	if err != nil {
		t.Fatalf("MaxTokenAge: %v", err)
	}
	if age != int64(1<<63-1) {
		t.Errorf("MaxTokenAge = %d, want MaxInt64", age)
	}
}

func TestMaxTokenAgeAccessMatchesConfiguredExpiration(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	cfg := newTestConfig()
	svc := newTestService(cfg, clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	age, err := svc.MaxTokenAge(opaque)
	if err != nil {
		t.Fatalf("MaxTokenAge: %v", err)
	}
	if age != cfg.AccessExpires.Milliseconds() {
		t.Errorf("MaxTokenAge = %d, want %d", age, cfg.AccessExpires.Milliseconds())
	}
}

// S6: refresh reuses the identifier and preserves created/state.
func TestRefreshReusesIDByDefault(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	svc := newTestService(newTestConfig(), clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.t = time.UnixMilli(5_000)
	refreshed, err := svc.Refresh(ctx, opaque)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	before, err := svc.Validate(ctx, opaque)
	if err != nil {
		t.Fatalf("Validate(original): %v", err)
	}
	after, err := svc.Validate(ctx, refreshed)
	if err != nil {
		t.Fatalf("Validate(refreshed): %v", err)
	}

	if before.UUID != after.UUID {
		t.Errorf("refresh should reuse the identifier: %v != %v", before.UUID, after.UUID)
	}
	if after.Created != 0 {
		t.Errorf("Created should be preserved across refresh, got %d", after.Created)
	}
	if after.State["k"] != "v" {
		t.Errorf("State should be preserved across refresh, got %+v", after.State)
	}
}

func TestRefreshAllocatesNewIDWhenConfigured(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	cfg := newTestConfig()
	cfg.RefreshReusesID = false
	svc := newTestService(cfg, clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, opaque)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	before, err := svc.Validate(ctx, opaque)
	if err != nil {
		t.Fatalf("Validate(original): %v", err)
	}
	after, err := svc.Validate(ctx, refreshed)
	if err != nil {
		t.Fatalf("Validate(refreshed): %v", err)
	}
	if before.UUID == after.UUID {
		t.Error("expected a new identifier when RefreshReusesID is false")
	}
}

func TestValidateUnknownRecordIsInvalidToken(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	cfg := newTestConfig()
	svc1 := newTestService(cfg, clock)
	ctx := context.Background()

	opaque, err := svc1.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// A second service with its own (empty) store never saw the record.
	svc2 := newTestService(cfg, clock)
	if _, err := svc2.Validate(ctx, opaque); !errors.Is(err, tokenerrors.InvalidToken) {
		t.Errorf("expected InvalidToken, got %v", err)
	}
}

func TestExpiresFromLastUseExtendsOnValidation(t *testing.T) {
	clock := &fixedClock{t: time.UnixMilli(0)}
	cfg := newTestConfig()
	cfg.ExpiresFromLastUse = true
	cfg.AccessExpires = time.Second
	svc := newTestService(cfg, clock)
	ctx := context.Background()

	opaque, err := svc.Issue(ctx, tokencategory.Access, "", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Validate just before the original deadline to slide accessed forward.
	clock.t = time.UnixMilli(900)
	if _, err := svc.Validate(ctx, opaque); err != nil {
		t.Fatalf("Validate at 900ms: %v", err)
	}

	// Without ExpiresFromLastUse this would already be past the original
	// 1000ms deadline; with it, the deadline slides to accessed+age.
	clock.t = time.UnixMilli(1_500)
	if _, err := svc.Validate(ctx, opaque); err != nil {
		t.Errorf("expected validation to succeed under expires-from-last-use, got %v", err)
	}
}

package credentials

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	keys  map[string]string
	calls int
	err   error
}

func (f *fakeSource) Fetch(ctx context.Context, provider string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.keys[provider], nil
}

func TestPoolCachesWithinTTL(t *testing.T) {
	src := &fakeSource{keys: map[string]string{ProviderGemini: "key-1"}}
	p := NewPool(src, time.Minute)

	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		key, err := p.Key(ctx, ProviderGemini)
		if err != nil {
			t.Fatalf("key lookup failed: %v", err)
		}
		if key != "key-1" {
			t.Fatalf("expected key-1, got %q", key)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected a single source fetch, got %d", src.calls)
	}
}

func TestPoolRefreshesAfterExpiry(t *testing.T) {
	src := &fakeSource{keys: map[string]string{ProviderGemini: "key-1"}}
	p := NewPool(src, time.Minute)

	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := p.Key(ctx, ProviderGemini); err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}

	src.keys[ProviderGemini] = "key-2"
	now = now.Add(2 * time.Minute)

	key, err := p.Key(ctx, ProviderGemini)
	if err != nil {
		t.Fatalf("lookup after expiry failed: %v", err)
	}
	if key != "key-2" {
		t.Fatalf("expected rotated key-2, got %q", key)
	}
	if src.calls != 2 {
		t.Fatalf("expected 2 fetches, got %d", src.calls)
	}
}

func TestPoolRefreshOnMissPropagatesError(t *testing.T) {
	src := &fakeSource{err: errors.New("store unavailable")}
	p := NewPool(src, time.Minute)

	if _, err := p.Key(context.Background(), ProviderGemini); err == nil {
		t.Fatal("expected error from source")
	}
}

func TestPoolExplicitRefresh(t *testing.T) {
	src := &fakeSource{keys: map[string]string{ProviderFlux: "old"}}
	p := NewPool(src, time.Hour)

	ctx := context.Background()
	if _, err := p.Key(ctx, ProviderFlux); err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	src.keys[ProviderFlux] = "new"
	key, err := p.Refresh(ctx, ProviderFlux)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if key != "new" {
		t.Fatalf("expected refreshed key, got %q", key)
	}
}

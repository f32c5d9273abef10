// Package credentials caches upstream provider keys with an explicit TTL and
// refresh-on-miss, so the submission components never reach for ambient
// global state.
package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ProviderGemini   = "gemini"
	ProviderSeedream = "seedream"
	ProviderFlux     = "flux"
)

// Source fetches the current key for a provider.
type Source interface {
	Fetch(ctx context.Context, provider string) (string, error)
}

// Pool caches keys per provider for a fixed TTL.
type Pool struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]poolEntry
}

type poolEntry struct {
	key     string
	expires time.Time
}

// NewPool creates a pool over the given source. A non-positive ttl disables
// caching and every lookup hits the source.
func NewPool(source Source, ttl time.Duration) *Pool {
	return &Pool{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]poolEntry),
	}
}

// TTL returns the configured cache lifetime.
func (p *Pool) TTL() time.Duration { return p.ttl }

// Key returns the cached key for the provider, refreshing from the source
// when the entry is missing or expired.
func (p *Pool) Key(ctx context.Context, provider string) (string, error) {
	p.mu.Lock()
	e, ok := p.entries[provider]
	if ok && p.ttl > 0 && p.now().Before(e.expires) {
		p.mu.Unlock()
		return e.key, nil
	}
	p.mu.Unlock()
	return p.Refresh(ctx, provider)
}

// Refresh fetches the key from the source and replaces the cached entry.
func (p *Pool) Refresh(ctx context.Context, provider string) (string, error) {
	key, err := p.source.Fetch(ctx, provider)
	if err != nil {
		return "", fmt.Errorf("credentials: fetch %s key: %w", provider, err)
	}
	key = strings.TrimSpace(key)
	p.mu.Lock()
	p.entries[provider] = poolEntry{key: key, expires: p.now().Add(p.ttl)}
	p.mu.Unlock()
	return key, nil
}

// EnvSource reads keys from environment variables (GEMINI_API_KEY and the
// like), matching the local development setup.
type EnvSource struct{}

func (EnvSource) Fetch(ctx context.Context, provider string) (string, error) {
	name := strings.ToUpper(provider) + "_API_KEY"
	return strings.TrimSpace(os.Getenv(name)), nil
}

var _ Source = EnvSource{}

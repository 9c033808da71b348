// Package decay provides per-category heat decay parameters with a
// short-TTL process-local cache. Configuration must never block the
// ingestion path: when the store is unreachable the built-in defaults
// are served instead.
package decay

import (
	"log"
	"sync"
	"time"

	"github.com/storyheat/storyheat/internal/store"
)

// DefaultTTL is the cache lifetime used when the caller does not supply one.
const DefaultTTL = 5 * time.Minute

// genericCategory keys the fallback defaults for categories without a
// dedicated profile.
const genericCategory = "GENERIC"

// builtinDefaults are the per-category parameters used when no row exists.
// Half-lives are ln(2)/decayConstant.
var builtinDefaults = map[string]store.HeatDecayConfig{
	store.CategoryCrypto: {
		Category: store.CategoryCrypto, DecayConstant: 0.08, ActivityBoostHours: 6,
		SpikeMultiplier: 2.0, BaseHalfLifeHours: 8.7,
		Description: "Crypto news burns hot and fades fast",
	},
	store.CategoryStocks: {
		Category: store.CategoryStocks, DecayConstant: 0.06, ActivityBoostHours: 8,
		SpikeMultiplier: 1.8, BaseHalfLifeHours: 11.6,
		Description: "Equities track the trading day",
	},
	store.CategoryEconomics: {
		Category: store.CategoryEconomics, DecayConstant: 0.04, ActivityBoostHours: 12,
		SpikeMultiplier: 1.6, BaseHalfLifeHours: 17.3,
		Description: "Macro stories develop over days",
	},
	store.CategoryGeopolitics: {
		Category: store.CategoryGeopolitics, DecayConstant: 0.03, ActivityBoostHours: 24,
		SpikeMultiplier: 1.8, BaseHalfLifeHours: 23.1,
		Description: "Geopolitical events have long tails",
	},
	store.CategorySports: {
		Category: store.CategorySports, DecayConstant: 0.10, ActivityBoostHours: 4,
		SpikeMultiplier: 1.5, BaseHalfLifeHours: 6.9,
		Description: "Match coverage dies with the final whistle",
	},
	genericCategory: {
		Category: genericCategory, DecayConstant: 0.05, ActivityBoostHours: 8,
		SpikeMultiplier: 1.5, BaseHalfLifeHours: 13.9,
		Description: "Default decay profile",
	},
}

type cacheEntry struct {
	cfg       store.HeatDecayConfig
	fetchedAt time.Time
}

// Provider serves decay configs from the store through a TTL cache.
type Provider struct {
	store *store.Store
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewProvider creates a provider over the store. A non-positive ttl falls
// back to DefaultTTL.
func NewProvider(s *store.Store, ttl time.Duration) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Provider{
		store: s,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
}

// SetClock overrides the provider clock for tests.
func (p *Provider) SetClock(now func() time.Time) {
	p.now = now
}

// Default returns the built-in default config for a category without
// touching the store.
func Default(category string) store.HeatDecayConfig {
	if cfg, ok := builtinDefaults[category]; ok {
		return cfg
	}
	cfg := builtinDefaults[genericCategory]
	cfg.Category = category
	return cfg
}

// Get returns the decay config for a category. Fresh cache entries are
// served directly; otherwise the config is loaded from the store, and if
// no row exists the built-in default is persisted and returned. Store
// failures degrade to the built-in default without an error.
func (p *Provider) Get(category string) store.HeatDecayConfig {
	now := p.now()

	p.mu.Lock()
	if entry, ok := p.cache[category]; ok && now.Sub(entry.fetchedAt) < p.ttl {
		cfg := entry.cfg
		p.mu.Unlock()
		return cfg
	}
	p.mu.Unlock()

	cfg, err := p.store.GetDecayConfig(category)
	if err != nil {
		log.Printf("decay config load failed for %s, using defaults: %v", category, err)
		return Default(category)
	}

	if cfg == nil {
		def := Default(category)
		if err := p.store.SaveDecayConfig(&def); err != nil {
			log.Printf("persisting default decay config for %s: %v", category, err)
		}
		cfg = &def
	}

	p.mu.Lock()
	p.cache[category] = cacheEntry{cfg: *cfg, fetchedAt: now}
	p.mu.Unlock()
	return *cfg
}

// Save upserts a config and refreshes the cache entry.
func (p *Provider) Save(cfg *store.HeatDecayConfig) error {
	if err := p.store.SaveDecayConfig(cfg); err != nil {
		return err
	}
	p.mu.Lock()
	p.cache[cfg.Category] = cacheEntry{cfg: *cfg, fetchedAt: p.now()}
	p.mu.Unlock()
	return nil
}

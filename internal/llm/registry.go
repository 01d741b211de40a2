package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tradeswarm/tradeswarm/internal/config"
)

// Registry holds the configured LLM providers and knows which one is
// primary. There is deliberately no retry or fallback chain: a model
// invocation either succeeds or fails once, and the caller decides what
// the failure means.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	primary   string
}

// NewRegistry creates an empty registry with the given primary provider name.
func NewRegistry(primary string) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		primary:   primary,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get returns a registered provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Primary returns the primary provider.
func (r *Registry) Primary() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[r.primary]
	if !ok {
		return nil, fmt.Errorf("%w: primary provider %q not registered", ErrNoProviders, r.primary)
	}
	return p, nil
}

// ProviderNames returns the names of all registered providers.
func (r *Registry) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Models returns the union of models from all registered providers.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []string
	seen := make(map[string]bool)
	for _, p := range r.providers {
		for _, m := range p.Models() {
			if !seen[m] {
				seen[m] = true
				all = append(all, m)
			}
		}
	}
	return all
}

// HealthCheck pings all registered providers and returns their status.
func (r *Registry) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]Provider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(providers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, provider := range providers {
		wg.Add(1)
		go func(n string, p Provider) {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := p.Ping(pingCtx)
			mu.Lock()
			results[n] = err
			mu.Unlock()
		}(name, provider)
	}

	wg.Wait()
	return results
}

// NewRegistryFromConfig creates a fully configured Registry from the
// application config, instantiating providers for every key present.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	reg := NewRegistry(cfg.LLM.Primary)
	registered := 0

	if cfg.LLM.GeminiKey != "" {
		p, err := NewGeminiProvider(cfg.LLM.GeminiKey,
			WithGeminiModel(defaultGeminiModel(cfg.LLM.Model)),
		)
		if err == nil {
			reg.Register(p)
			registered++
		}
	}

	if cfg.LLM.OpenAIKey != "" {
		p, err := NewOpenAIProvider(cfg.LLM.OpenAIKey,
			WithOpenAIModel(defaultOpenAIModel(cfg.LLM.Model)),
		)
		if err == nil {
			reg.Register(p)
			registered++
		}
	}

	if registered == 0 {
		return nil, ErrNoProviders
	}
	return reg, nil
}

// NewProviderForKey builds a one-off provider for a caller-supplied API
// key, used when an API request overrides the configured credentials.
func NewProviderForKey(cfg *config.Config, apiKey string) (Provider, error) {
	switch cfg.LLM.Primary {
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, WithOpenAIModel(defaultOpenAIModel(cfg.LLM.Model)))
	default:
		return NewGeminiProvider(apiKey, WithGeminiModel(defaultGeminiModel(cfg.LLM.Model)))
	}
}

func defaultGeminiModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return model
	}
	return "gemini-2.0-flash"
}

func defaultOpenAIModel(model string) string {
	if strings.HasPrefix(model, "gpt") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") {
		return model
	}
	return "gpt-4o"
}

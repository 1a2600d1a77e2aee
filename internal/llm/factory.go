// Package llm adapts hosted language models to port.Generator.
package llm

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"agrofin/internal/config"
	"agrofin/internal/port"
)

// ProviderFactory creates a Generator from a provider config.
type ProviderFactory func(cfg *config.LLMProviderConfig) (port.Generator, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// Registered returns the names of all registered providers, sorted.
func Registered() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewGenerator creates a Generator from a provider config using the registered factory.
func NewGenerator(cfg *config.LLMProviderConfig) (port.Generator, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// Build assembles the configured providers into one Generator. Each provider
// is wrapped in a RetryGenerator; more than one provider adds a
// FallbackGenerator in configuration order.
func Build(cfg *config.LLMConfig, log *zap.Logger) (port.Generator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	configured := cfg.Providers()
	if len(configured) == 0 {
		return nil, fmt.Errorf("no llm provider configured")
	}

	gens := make([]port.Generator, 0, len(configured))
	names := make([]string, 0, len(configured))
	for _, pc := range configured {
		g, err := NewGenerator(pc)
		if err != nil {
			return nil, err
		}
		gens = append(gens, NewRetryGenerator(g, pc.MaxRetries, WithRetryLogger(log.Named(pc.Provider))))
		names = append(names, pc.Provider)
	}

	if len(gens) == 1 {
		return gens[0], nil
	}
	return NewFallbackGenerator(gens, names, log), nil
}

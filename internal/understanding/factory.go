package understanding

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"aria/internal/config"
	"aria/internal/port"
	"aria/internal/schema"
)

// ProviderFactory creates an Understander from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig, registry *schema.Registry) (port.Understander, error)

// registry of provider factories, populated by providers.RegisterAll or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// RegisteredProviders returns the registered provider names in sorted order.
func RegisteredProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewUnderstander creates an Understander from a provider config using the registered factory.
// A positive RateLimit wraps the provider in a Throttled understander, and a positive
// MaxRetries wraps that in a Retrying one.
func NewUnderstander(cfg *config.ProviderConfig, registry *schema.Registry, log zerolog.Logger) (port.Understander, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown understanding provider: %s", cfg.Provider)
	}
	u, err := factory(cfg, registry)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", cfg.Provider, err)
	}
	if cfg.RateLimit > 0 {
		u = NewThrottled(u, cfg.RateLimit)
	}
	if cfg.MaxRetries > 0 {
		u = NewRetrying(u, cfg.Provider, cfg.MaxRetries, log)
	}
	return u, nil
}

// Build assembles the configured understanding chain: a MergeUnderstander in merge mode,
// otherwise a FallbackUnderstander over the primary, secondary and tertiary providers.
func Build(cfg *config.UnderstandingConfig, registry *schema.Registry, log zerolog.Logger) (port.Understander, error) {
	primary, err := NewUnderstander(&cfg.Primary, registry, log)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}

	if cfg.Mode == "merge" {
		sc := cfg.SecondaryConfig()
		if sc == nil {
			return nil, fmt.Errorf("merge mode requires a secondary provider")
		}
		secondary, err := NewUnderstander(sc, registry, log)
		if err != nil {
			return nil, fmt.Errorf("secondary: %w", err)
		}
		return NewMergeUnderstander(primary, secondary, log), nil
	}

	chain := []port.Understander{primary}
	names := []string{cfg.Primary.Provider}
	for _, pc := range []*config.ProviderConfig{cfg.SecondaryConfig(), cfg.TertiaryConfig()} {
		if pc == nil {
			continue
		}
		u, err := NewUnderstander(pc, registry, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pc.Provider, err)
		}
		chain = append(chain, u)
		names = append(names, pc.Provider)
	}
	if len(chain) == 1 {
		return primary, nil
	}
	return NewFallbackUnderstander(chain, names, log), nil
}

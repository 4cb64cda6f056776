package provider

import (
	"fmt"
	"sync"
)

// Factory creates and caches provider instances, resolving the
// configured base URL override (§6.1 config.base_url) to the Anthropic
// provider at construction time rather than threading it through
// agents.Registry.
type Factory struct {
	mu            sync.RWMutex
	providers     map[string]Provider
	anthropicBase string
}

// NewFactory creates a new provider factory. anthropicBaseURL overrides
// the default Anthropic API endpoint when non-empty (proxying or testing
// against a non-production endpoint); pass "" to use the vendor default.
func NewFactory(anthropicBaseURL string) *Factory {
	return &Factory{
		providers:     make(map[string]Provider),
		anthropicBase: anthropicBaseURL,
	}
}

// GetProvider returns a provider by name, creating it if necessary.
func (f *Factory) GetProvider(name string) (Provider, error) {
	f.mu.RLock()
	if p, ok := f.providers[name]; ok {
		f.mu.RUnlock()
		return p, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring write lock
	if p, ok := f.providers[name]; ok {
		return p, nil
	}

	var p Provider
	var err error

	switch name {
	case "anthropic":
		p, err = NewAnthropicProvider(f.anthropicBase)
	case "openai":
		p, err = NewOpenAIProvider()
	case "google":
		p, err = NewGoogleProvider()
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %s: %w", name, err)
	}

	f.providers[name] = p
	return p, nil
}

// Status reports one provider's name and credential availability, for
// cmd/catalyst status's operator-facing summary.
type Status struct {
	Name      string
	Available bool
}

// AllStatus returns availability for every known provider, creating each
// lazily (a provider with no API key still reports Available: false
// rather than erroring).
func (f *Factory) AllStatus() []Status {
	names := []string{"anthropic", "openai", "google"}
	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		p, err := f.GetProvider(name)
		statuses = append(statuses, Status{Name: name, Available: err == nil && p.Available()})
	}
	return statuses
}

// AllUsage returns token usage for every provider constructed so far.
func (f *Factory) AllUsage() map[string]TokenUsage {
	f.mu.RLock()
	defer f.mu.RUnlock()

	usage := make(map[string]TokenUsage)
	for name, p := range f.providers {
		usage[name] = p.GetUsage()
	}
	return usage
}

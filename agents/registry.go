package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/madhatter5501/catalyst/agents/provider"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/internal/store"
)

// ProviderFactory resolves a provider by name. *provider.Factory
// satisfies this; tests supply a fake to avoid real vendor HTTP calls.
type ProviderFactory interface {
	GetProvider(name string) (provider.Provider, error)
}

// Registry resolves the tagged-variant Provider and prompt template for
// each agent type, and performs the structured-output call every adapter
// shares: render system prompt, call the provider, parse JSON, retry once
// on SchemaViolation (§4.6 retry policy).
type Registry struct {
	store    *store.Store
	factory  ProviderFactory
	fallback string // provider name used when no per-agent override is stored
}

// NewRegistry builds a Registry. fallback is the provider name used for any
// agent type without a stored AgentProviderConfig override (e.g. "anthropic").
func NewRegistry(st *store.Store, factory ProviderFactory, fallback string) *Registry {
	return &Registry{store: st, factory: factory, fallback: fallback}
}

// resolve picks the Provider + model + optional system-prompt override for
// one agent type, per the tagged-variant dispatch pattern: a stored
// AgentProviderConfig pins the triple; absent one, the fallback provider
// and its default model apply.
func (r *Registry) resolve(agentType string) (provider.Provider, string, string, error) {
	providerName := r.fallback
	model := ""
	override := ""

	if cfg, err := r.store.GetAgentProviderConfig(agentType); err == nil {
		providerName = cfg.Provider
		model = cfg.Model
		override = cfg.SystemPromptOverride
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return nil, "", "", err
	}

	p, err := r.factory.GetProvider(providerName)
	if err != nil {
		return nil, "", "", domain.NewError(domain.KindConfiguration, "resolve provider for "+agentType, err)
	}
	if !p.Available() {
		return nil, "", "", domain.NewError(domain.KindConfiguration, "provider "+providerName+" not available for "+agentType, nil)
	}
	if model == "" {
		model = provider.DefaultModels[providerName]
	}
	return p, model, override, nil
}

// systemPrompt loads the prompt_templates row for slug, applying any
// per-agent override stored in AgentProviderConfig.
func (r *Registry) systemPrompt(slug, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return r.store.GetPrompt(slug)
}

// callStructured renders the system prompt for slug, sends userPrompt, and
// unmarshals the response text into out. On the first JSON decode failure
// it retries once with a corrective follow-up message, per §4.6's "at most
// one structural retry on SchemaViolation" policy; a second failure
// escalates to LLMFailure.
func (r *Registry) callStructured(ctx context.Context, agentType, slug, userPrompt string, out any) error {
	p, model, override, err := r.resolve(agentType)
	if err != nil {
		return err
	}
	system, err := r.systemPrompt(slug, override)
	if err != nil {
		return err
	}

	messages := []provider.Message{{Role: "user", Content: userPrompt}}
	text, err := r.send(ctx, p, model, system, messages)
	if err != nil {
		return domain.NewError(domain.KindLLMFailure, agentType+": transport error", err)
	}

	if err := decodeJSON(text, out); err != nil {
		messages = append(messages,
			provider.Message{Role: "assistant", Content: text},
			provider.Message{Role: "user", Content: "Your previous response was not valid JSON matching the required schema: " + err.Error() + ". Reply again with ONLY the corrected JSON object."},
		)
		text, sendErr := r.send(ctx, p, model, system, messages)
		if sendErr != nil {
			return domain.NewError(domain.KindLLMFailure, agentType+": transport error on retry", sendErr)
		}
		if err := decodeJSON(text, out); err != nil {
			return domain.NewError(domain.KindLLMFailure, agentType+": "+err.Error(), err)
		}
	}
	return nil
}

func (r *Registry) send(ctx context.Context, p provider.Provider, model, system string, messages []provider.Message) (string, error) {
	resp, err := p.CreateMessage(ctx, &provider.MessageRequest{
		Model:    model,
		System:   system,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// decodeJSON extracts and unmarshals the first JSON object/array found in
// text, tolerating surrounding prose or markdown code fences — LLMs
// routinely wrap structured output this way.
func decodeJSON(text string, out any) error {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON object or array found in response")
	}
	candidate := trimmed[start:]
	if err := json.Unmarshal([]byte(candidate), out); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

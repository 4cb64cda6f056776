package provider

import (
	"context"
	"os"

	"github.com/madhatter5501/catalyst/agents/anthropic"
)

// AnthropicProvider is the live HTTP leg behind the Provider interface
// for the "anthropic" tag: it wraps agents/anthropic.Client and is what
// agents.Registry actually calls for any adapter without an override
// pinning it to a different vendor.
type AnthropicProvider struct {
	BaseProvider
	client *anthropic.Client
	apiKey string
}

// NewAnthropicProvider creates a new Anthropic provider. baseURL
// overrides the vendor's default endpoint (config.Config.BaseURL) when
// non-empty.
func NewAnthropicProvider(baseURL string) (*AnthropicProvider, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		// Return provider even without key (Available() will return false)
		return &AnthropicProvider{apiKey: ""}, nil
	}

	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(apiKey, opts...)
	return &AnthropicProvider{
		client: client,
		apiKey: apiKey,
	}, nil
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Available returns true if the API key is configured.
func (p *AnthropicProvider) Available() bool {
	return p.apiKey != ""
}

// CreateMessage sends a message to the Anthropic API.
func (p *AnthropicProvider) CreateMessage(ctx context.Context, req *MessageRequest) (*MessageResponse, error) {
	if p.client == nil {
		return nil, ErrProviderNotAvailable("anthropic")
	}

	// Agent system prompts (agents/registry.go's systemPrompt) are
	// per-agent-type templates reused across every call for that adapter,
	// so mark them for prompt caching rather than re-billing the same
	// instructions on every request.
	anthropicReq := &anthropic.CreateMessageRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System: []anthropic.SystemBlock{
			{Type: "text", Text: req.System, CacheControl: anthropic.Ephemeral()},
		},
		Messages:      convertToAnthropicMessages(req.Messages),
		Temperature:   req.Temperature,
		StopSequences: req.StopSequences,
	}

	// Set defaults
	if anthropicReq.Model == "" {
		anthropicReq.Model = ModelAnthropicSonnet4
	}
	if anthropicReq.MaxTokens == 0 {
		anthropicReq.MaxTokens = 16384
	}

	// Call API
	resp, err := p.client.CreateMessage(ctx, anthropicReq)
	if err != nil {
		return nil, err
	}

	// Track usage
	p.TrackUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	// Convert response
	return &MessageResponse{
		ID:         resp.ID,
		Content:    resp.GetText(),
		Model:      resp.Model,
		StopReason: resp.StopReason,
		Usage: ResponseUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// convertToAnthropicMessages converts provider messages to Anthropic format.
func convertToAnthropicMessages(messages []Message) []anthropic.Message {
	result := make([]anthropic.Message, len(messages))
	for i, msg := range messages {
		result[i] = anthropic.Message{
			Role: msg.Role,
			Content: []anthropic.ContentBlock{
				{Type: "text", Text: msg.Content},
			},
		}
	}
	return result
}

package agents

import (
	"context"
	"encoding/json"

	"github.com/madhatter5501/catalyst/domain"
)

// Critic wraps the Critic adapter (§4.6): produces a Verdict for one
// Decision. Confidence is advisory.
type Critic struct {
	registry *Registry
}

// NewCritic builds a Critic adapter.
func NewCritic(registry *Registry) *Critic {
	return &Critic{registry: registry}
}

// Run produces a Verdict for decision.
func (c *Critic) Run(ctx context.Context, decision domain.Decision, specContext string, mode domain.Mode) (domain.Verdict, error) {
	decisionJSON, err := json.Marshal(decision)
	if err != nil {
		return domain.Verdict{}, domain.NewError(domain.KindConfiguration, "critic: encode decision", err)
	}

	userPrompt := "Decision (JSON):\n" + string(decisionJSON) + "\n\nSpec context:\n" + specContext +
		"\n\nMode: " + string(mode) +
		"\n\nRespond with a JSON Verdict: {unknown_id, verdict: approved|needs_changes|rejected, confidence: 0..1, concerns:[{severity,description}]}."

	var verdict domain.Verdict
	if err := c.registry.callStructured(ctx, "critic", "critic", userPrompt, &verdict); err != nil {
		return domain.Verdict{}, err
	}
	verdict.UnknownID = decision.UnknownID
	return verdict, nil
}

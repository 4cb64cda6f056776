package agents

import (
	"context"
	"encoding/json"

	"github.com/madhatter5501/catalyst/domain"
)

// Parse wraps the Parse adapter (§4.6): given a goal's free-form text and
// the current codebase profile, produce the open Ambiguity list. Any
// question the profile already answers is reported separately as an
// InferredKnown and dropped from the open list.
type Parse struct {
	registry *Registry
}

// NewParse builds a Parse adapter bound to registry.
func NewParse(registry *Registry) *Parse {
	return &Parse{registry: registry}
}

type parseOutput struct {
	Unknowns       []domain.Ambiguity `json:"unknowns"`
	InferredKnowns []domain.Ambiguity `json:"inferred_knowns"`
}

// Run returns (open unknowns, inferred knowns, error). An empty goal text
// yields an empty open list (B1), short-circuiting the pipeline to
// Building.
func (a *Parse) Run(ctx context.Context, goalText string, profile map[string]any) ([]domain.Ambiguity, []domain.Ambiguity, error) {
	if goalText == "" {
		return nil, nil, nil
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, nil, domain.NewError(domain.KindConfiguration, "parse: encode profile", err)
	}

	userPrompt := "Goal:\n" + goalText + "\n\nCodebase profile (JSON):\n" + string(profileJSON) +
		"\n\nRespond with a JSON object: {\"unknowns\": [...], \"inferred_knowns\": [...]}, each entry shaped " +
		"{id, category, question, criticality, context}."

	var out parseOutput
	if err := a.registry.callStructured(ctx, "parse", "parse", userPrompt, &out); err != nil {
		return nil, nil, err
	}
	return out.Unknowns, out.InferredKnowns, nil
}

package agents

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/madhatter5501/catalyst/domain"
)

// Atomizer wraps the Atomizer adapter (§4.6): once all Verdicts for a
// feature are terminal, plans the file/module breakdown, suggesting
// per-module max_lines to keep each module "agent-sized".
type Atomizer struct {
	registry *Registry
}

// NewAtomizer builds an Atomizer adapter.
func NewAtomizer(registry *Registry) *Atomizer {
	return &Atomizer{registry: registry}
}

// Run produces an Atomization for featureID given the aggregated,
// terminal Decisions.
func (a *Atomizer) Run(ctx context.Context, featureID, featureRequest string, decisions []domain.Decision, maxModuleLines int) (domain.Atomization, error) {
	decisionsJSON, err := json.Marshal(decisions)
	if err != nil {
		return domain.Atomization{}, domain.NewError(domain.KindConfiguration, "atomizer: encode decisions", err)
	}

	limit := maxModuleLines
	if limit <= 0 {
		limit = 150
	}
	userPrompt := "Feature request:\n" + featureRequest + "\n\nDecisions (JSON):\n" + string(decisionsJSON) +
		"\n\nSuggest max_lines per module no greater than " + strconv.Itoa(limit) +
		".\n\nRespond with a JSON Atomization: {feature_id, modules:[{path,responsibility,max_lines}], test_modules:[...], integration_points:[...]}."

	var atomization domain.Atomization
	if err := a.registry.callStructured(ctx, "atomizer", "atomizer", userPrompt, &atomization); err != nil {
		return domain.Atomization{}, err
	}
	atomization.FeatureID = featureID
	return atomization, nil
}

package agents

import (
	"context"
	"encoding/json"

	"github.com/madhatter5501/catalyst/domain"
)

// Taskmaster wraps the Taskmaster adapter (§4.6): turns feature context
// into an ordered Mission, optionally with parallel drafting missions.
type Taskmaster struct {
	registry *Registry
}

// NewTaskmaster builds a Taskmaster adapter.
func NewTaskmaster(registry *Registry) *Taskmaster {
	return &Taskmaster{registry: registry}
}

// Run produces a Mission for the given feature context.
func (t *Taskmaster) Run(ctx context.Context, featureName, objective string, atomization domain.Atomization) (domain.Mission, error) {
	atomizationJSON, err := json.Marshal(atomization)
	if err != nil {
		return domain.Mission{}, domain.NewError(domain.KindConfiguration, "taskmaster: encode atomization", err)
	}

	userPrompt := "Feature: " + featureName + "\nObjective: " + objective + "\n\nAtomization (JSON):\n" + string(atomizationJSON) +
		"\n\nRespond with a JSON Mission: {feature_name, objective, tasks:[{number,action,file_path,implementation,hints}], " +
		"constraints, drafting_missions:[{file_path,prompt}], existing_signatures, verification}."

	var mission domain.Mission
	if err := t.registry.callStructured(ctx, "taskmaster", "taskmaster", userPrompt, &mission); err != nil {
		return domain.Mission{}, err
	}
	mission.FeatureName = featureName
	return mission, nil
}

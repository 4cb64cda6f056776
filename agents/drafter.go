package agents

import (
	"context"

	"github.com/madhatter5501/catalyst/domain"
)

// Drafter wraps the Drafter adapter (§4.6): a single-shot, tool-less call
// producing source for one DraftingMission.
type Drafter struct {
	registry *Registry
}

// NewDrafter builds a Drafter adapter.
func NewDrafter(registry *Registry) *Drafter {
	return &Drafter{registry: registry}
}

// Run produces a DraftingOutput for one mission.
func (d *Drafter) Run(ctx context.Context, mission domain.DraftingMission) (domain.DraftingOutput, error) {
	userPrompt := "File: " + mission.FilePath + "\n\nTask:\n" + mission.Prompt +
		"\n\nRespond with a JSON object: {file_path, source_code}."

	var out domain.DraftingOutput
	if err := d.registry.callStructured(ctx, "drafter", "drafter", userPrompt, &out); err != nil {
		return domain.DraftingOutput{}, err
	}
	out.FilePath = mission.FilePath
	return out, nil
}

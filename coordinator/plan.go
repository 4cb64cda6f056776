package coordinator

import (
	"context"

	"github.com/madhatter5501/catalyst/domain"
)

// PlanExecution drives the Atomizing and TaskGeneration states named in
// §4.7's state enum: once Run has produced terminal Decisions for every
// Ambiguity, Atomizer plans the module breakdown and Taskmaster turns it
// into an ordered Mission. Kept separate from Run so SwarmResult's shape
// stays exactly as spec'd, and so a caller (the feature worker pool, C8)
// can invoke planning only for features that reached execution_ready.
func (c *Coordinator) PlanExecution(ctx context.Context, featureID, featureName, featureRequest string, decisions []domain.Decision) (domain.Atomization, domain.Mission, error) {
	c.setState(StateAtomizing)
	atomization, err := c.atomizer.Run(ctx, featureID, featureRequest, decisions, c.cfg.MaxModuleLines)
	if err != nil {
		c.setState(StateFailed)
		return domain.Atomization{}, domain.Mission{}, err
	}

	c.setState(StateTaskGeneration)
	mission, err := c.taskmaster.Run(ctx, featureName, featureRequest, atomization)
	if err != nil {
		c.setState(StateFailed)
		return atomization, domain.Mission{}, err
	}

	c.setState(StateComplete)
	return atomization, mission, nil
}

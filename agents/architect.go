package agents

import (
	"context"
	"encoding/json"

	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/inbox"
)

// Architect wraps the Architect adapter (§4.6): produces a Decision for
// one ResearchResult, optionally suspending for human approval via C3
// before yielding the final artifact.
type Architect struct {
	registry *Registry
	inbox    *inbox.Inbox
}

// NewArchitect builds an Architect adapter. inboxClient may be nil if
// approval gating is disabled.
func NewArchitect(registry *Registry, inboxClient *inbox.Inbox) *Architect {
	return &Architect{registry: registry, inbox: inboxClient}
}

// Run produces a Decision. When requireApproval is true, it suspends via
// inbox.AskUser on commands before returning. A "reject" response
// triggers one more draft carrying a fixed rejection note (the text of
// the human's response is not passed to it); any other response
// approves the first decision. An interaction resolved with an empty
// response makes AskUser fail, and Run returns that error.
func (a *Architect) Run(ctx context.Context, research domain.ResearchResult, specContext string, mode domain.Mode, requireApproval bool, commands <-chan inbox.Command) (domain.Decision, error) {
	decision, err := a.draft(ctx, research, specContext, mode, "")
	if err != nil {
		return domain.Decision{}, err
	}
	if !requireApproval || a.inbox == nil {
		return decision, nil
	}

	decisionJSON, _ := json.Marshal(decision)
	response, err := a.inbox.AskUser(ctx, commands, domain.Interaction{
		ID:        "architect-" + research.UnknownID,
		Kind:      domain.InteractionDecision,
		FromAgent: "architect",
		Title:     "Approve architecture decision for " + research.UnknownID,
		Description: string(decisionJSON),
	})
	if err != nil {
		return domain.Decision{}, err
	}
	if response == "reject" || response == "" {
		return a.draft(ctx, research, specContext, mode, "The previous decision was rejected by a human reviewer; propose a different approach.")
	}
	return decision, nil
}

func (a *Architect) draft(ctx context.Context, research domain.ResearchResult, specContext string, mode domain.Mode, feedback string) (domain.Decision, error) {
	researchJSON, err := json.Marshal(research)
	if err != nil {
		return domain.Decision{}, domain.NewError(domain.KindConfiguration, "architect: encode research", err)
	}

	userPrompt := "Research (JSON):\n" + string(researchJSON) + "\n\nSpec context:\n" + specContext +
		"\n\nMode: " + string(mode)
	if feedback != "" {
		userPrompt += "\n\nReviewer feedback:\n" + feedback
	}
	userPrompt += "\n\nRespond with a JSON Decision: {unknown_id, chosen_option, rationale, spec_updates:[{section,action}], dependencies:[...]}."

	var decision domain.Decision
	if err := a.registry.callStructured(ctx, "architect", "architect", userPrompt, &decision); err != nil {
		return domain.Decision{}, err
	}
	decision.UnknownID = research.UnknownID
	return decision, nil
}

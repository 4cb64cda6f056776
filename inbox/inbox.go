// Package inbox implements the Interaction Inbox (C3): a durable queue of
// pending human questions paired with the coordinator's blocking ask_user
// call. Grounded directly in original_source's swarm/coordinator.rs
// ask_user method (persist → emit → block on command channel → Resume/
// Abort/closed/ignored-other-id) and state/interaction.rs.
package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/madhatter5501/catalyst/internal/store"
)

// CommandKind enumerates the two control-plane commands a coordinator
// obeys while suspended on ask_user (§6.4).
type CommandKind string

const (
	CommandResume CommandKind = "resume"
	CommandAbort  CommandKind = "abort"
)

// Command is one instruction sent over a coordinator's command channel.
type Command struct {
	Kind   CommandKind
	ID     string // interaction id, for Resume
	Reason string // for Abort
}

// Inbox is the C3 component: a store-backed pending queue plus the
// ask_user blocking primitive.
type Inbox struct {
	store *store.Store
	bus   *eventbus.Bus
}

// New builds an Inbox over the given store and event bus.
func New(st *store.Store, bus *eventbus.Bus) *Inbox {
	return &Inbox{store: st, bus: bus}
}

// Save upserts an Interaction by id.
func (i *Inbox) Save(in domain.Interaction) error {
	return i.store.SaveInteraction(in)
}

// Resolve fails if id is absent; otherwise sets status=Responded, stamps
// resolved_at, and stores the response.
func (i *Inbox) Resolve(id, response string) error {
	return i.store.ResolveInteraction(id, response)
}

// ListPending returns pending interactions, newest-first.
func (i *Inbox) ListPending() ([]domain.Interaction, error) {
	return i.store.ListPendingInteractions()
}

// ListHistory returns the most recent `limit` interactions of any status,
// newest-first.
func (i *Inbox) ListHistory(limit int) ([]domain.Interaction, error) {
	return i.store.ListInteractionHistory(limit)
}

// AskUser blocks the calling coordinator task until a matching Resume(id)
// arrives on commands, or Abort/closed-channel short-circuits with an
// error. Persists the interaction as Pending, emits InteractionRequired,
// and on resume reloads the stored response. Unrelated Resume ids are
// ignored — this enforces at-most-one suspended ask per coordinator.
func (i *Inbox) AskUser(ctx context.Context, commands <-chan Command, in domain.Interaction) (string, error) {
	if commands == nil {
		return "", domain.NewError(domain.KindChannelClosed, "inbox channel not configured - use with_inbox_channel()", nil)
	}

	in.Status = domain.InteractionPending
	if err := i.Save(in); err != nil {
		return "", err
	}

	i.bus.Publish(domain.EventInteractionRequired, in.FromAgent, "", map[string]any{
		"interaction_id": in.ID,
		"title":          in.Title,
		"kind":           in.Kind,
	})
	if err := i.store2AppendEvent(domain.EventInteractionRequired, in.FromAgent, in.ID); err != nil {
		return "", err
	}

	for {
		select {
		case <-ctx.Done():
			return "", domain.NewError(domain.KindInteractionAborted, "context cancelled while awaiting interaction", ctx.Err())
		case cmd, ok := <-commands:
			if !ok {
				return "", domain.NewError(domain.KindChannelClosed, "coordinator command channel closed", nil)
			}
			switch cmd.Kind {
			case CommandAbort:
				return "", domain.NewError(domain.KindInteractionAborted, "user aborted operation", nil)
			case CommandResume:
				if cmd.ID != in.ID {
					continue // unrelated Resume id: ignored
				}
				updated, err := i.store.GetInteraction(in.ID)
				if err != nil {
					return "", err
				}
				i.bus.Publish(domain.EventInteractionResolved, in.FromAgent, "", map[string]any{
					"interaction_id": in.ID,
				})
				if updated.Response == "" {
					return "", domain.NewError(domain.KindNotFound, "interaction resolved but no response found", nil)
				}
				return updated.Response, nil
			default:
				continue
			}
		}
	}
}

// store2AppendEvent mirrors the Inbox's emitted event to the durable
// audit trail, per DESIGN NOTES (the bus alone is advisory).
func (i *Inbox) store2AppendEvent(kind domain.EventKind, agent, interactionID string) error {
	return i.store.AppendEvent(domain.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Agent:     agent,
		Data:      map[string]any{"interaction_id": interactionID},
	})
}

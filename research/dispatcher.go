// Package research implements the Research Dispatcher (C5): a long-lived
// task that consumes research missions from a bounded channel, invokes
// the Research adapter synchronously per mission, and replies once via a
// per-mission reply channel. Grounded in original_source's
// swarm/a2a_bridge.rs ResearchMission dispatch loop.
package research

import (
	"context"

	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
)

// missionCapacity and progressCapacity are the bounded channel sizes
// named in §4.5.
const (
	missionCapacity  = 32
	progressCapacity = 64
)

// Adapter is the Research agent (C6) as seen by the dispatcher: given an
// Ambiguity's unknown_id/question/context, produce a ResearchResult.
type Adapter interface {
	Research(ctx context.Context, unknownID, question, researchContext string) (domain.ResearchResult, error)
}

// Reply is what a mission's ReplyChannel receives: exactly one of Result
// or Err is populated.
type Reply struct {
	Result domain.ResearchResult
	Err    error
}

// Mission is one unit of research work submitted to the Dispatcher.
type Mission struct {
	UnknownID    string
	Question     string
	Context      string
	ReplyChannel chan<- Reply
}

// Progress is one incremental update a caller may drain opportunistically
// while awaiting a mission's reply, per §4.5.
type Progress struct {
	UnknownID string
	Message   string
	Kind      domain.EventKind
}

// Dispatcher is the C5 component.
type Dispatcher struct {
	adapter  Adapter
	bus      *eventbus.Bus
	missions chan Mission
	progress chan Progress
	done     chan struct{}
}

// New builds a Dispatcher bound to one Research adapter and event bus.
// Call Run in its own goroutine to start consuming missions.
func New(adapter Adapter, bus *eventbus.Bus) *Dispatcher {
	return &Dispatcher{
		adapter:  adapter,
		bus:      bus,
		missions: make(chan Mission, missionCapacity),
		progress: make(chan Progress, progressCapacity),
		done:     make(chan struct{}),
	}
}

// Progress returns the channel a caller drains for incremental updates.
func (d *Dispatcher) Progress() <-chan Progress { return d.progress }

// Submit enqueues a mission. Blocks if the mission channel is at
// capacity — callers that must not block should select on ctx.Done()
// alongside this send.
func (d *Dispatcher) Submit(ctx context.Context, m Mission) error {
	select {
	case d.missions <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes missions until ctx is cancelled or Stop is called. Each
// mission's Started→Progress*→(Completed|Failed) sequence is strictly
// ordered; across missions, ordering is unspecified (§4.5).
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-d.missions:
			if !ok {
				return
			}
			d.process(ctx, m)
		}
	}
}

// Stop closes the mission channel, letting Run drain and exit.
func (d *Dispatcher) Stop() {
	close(d.missions)
}

// Wait blocks until Run has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

func (d *Dispatcher) process(ctx context.Context, m Mission) {
	d.emit(m.UnknownID, "", domain.EventResearchStarted)
	d.emit(m.UnknownID, "Searching...", domain.EventResearchProgress)

	result, err := d.adapter.Research(ctx, m.UnknownID, m.Question, m.Context)
	if err != nil {
		d.emit(m.UnknownID, err.Error(), domain.EventAgentFailed)
		if m.ReplyChannel != nil {
			m.ReplyChannel <- Reply{Err: err}
		}
		return
	}

	d.emit(m.UnknownID, "", domain.EventResearchCompleted)
	if m.ReplyChannel != nil {
		m.ReplyChannel <- Reply{Result: result}
	}
}

func (d *Dispatcher) emit(unknownID, message string, kind domain.EventKind) {
	data := map[string]any{}
	if message != "" {
		data["message"] = message
	}
	d.bus.Publish(kind, "research", unknownID, data)
	select {
	case d.progress <- Progress{UnknownID: unknownID, Message: message, Kind: kind}:
	default:
		// Progress channel full: the coordinator is expected to drain it
		// opportunistically (§4.5); a lagging consumer observes loss here
		// the same way it would on the event bus.
	}
}

package eventbus_test

import (
	"testing"
	"time"

	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	bus.Publish(domain.EventPipelineStarted, "coordinator", "", nil)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, domain.EventPipelineStarted, ev.Kind)
		assert.Equal(t, "coordinator", ev.Agent)
		assert.NotEmpty(t, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("expected event, got none")
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	// Fill the subscriber's bounded channel past capacity without ever
	// reading from it; Publish must still return promptly (producer never
	// blocks, per §4.2).
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			bus.Publish(domain.EventAgentStarted, "parse", "", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe()
	sub.Unsubscribe()

	_, open := <-sub.Events()
	require.False(t, open)
}

func TestZeroSubscribersNeverBlocks(t *testing.T) {
	bus := eventbus.New()
	ev := bus.Publish(domain.EventPipelineCompleted, "coordinator", "", nil)
	assert.Equal(t, domain.EventPipelineCompleted, ev.Kind)
}

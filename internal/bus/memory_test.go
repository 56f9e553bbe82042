package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dib506676/TicketMate/internal/events"
	"github.com/dib506676/TicketMate/internal/workflow"
)

func newTestEvent(t *testing.T, eventType events.EventType) events.Event {
	t.Helper()
	evt, err := events.New(eventType, map[string]string{"ticket_id": "t-1"})
	require.NoError(t, err)
	return evt
}

func TestInMemoryBusSuccess(t *testing.T) {
	b := NewInMemoryBus(NewMemoryStepLog(), nil, nil, 0)

	invocations := 0
	b.Subscribe(Workflow{
		Name:       "triage",
		Event:      events.EventTicketCreated,
		MaxRetries: DefaultMaxRetries,
		Handler: func(ctx context.Context, run *workflow.Run, evt events.Event) error {
			invocations++
			return nil
		},
	})

	evt := newTestEvent(t, events.EventTicketCreated)
	require.NoError(t, b.Publish(context.Background(), evt))

	assert.Equal(t, 1, invocations)
	out, ok := b.Outcome("triage", evt.ID)
	require.True(t, ok)
	assert.True(t, out.Success)
}

func TestInMemoryBusRetriesUntilBudgetExhausted(t *testing.T) {
	b := NewInMemoryBus(NewMemoryStepLog(), nil, nil, 0)

	attempts := 0
	b.Subscribe(Workflow{
		Name:       "triage",
		Event:      events.EventTicketCreated,
		MaxRetries: 2,
		Handler: func(ctx context.Context, run *workflow.Run, evt events.Event) error {
			attempts++
			return errors.New("store hiccup")
		},
	})

	evt := newTestEvent(t, events.EventTicketCreated)
	require.NoError(t, b.Publish(context.Background(), evt))

	// first attempt plus two re-deliveries
	assert.Equal(t, 3, attempts)
	out, ok := b.Outcome("triage", evt.ID)
	require.True(t, ok)
	assert.False(t, out.Success)
}

func TestInMemoryBusNonRetriableNeverRetried(t *testing.T) {
	b := NewInMemoryBus(NewMemoryStepLog(), nil, nil, 0)

	attempts := 0
	b.Subscribe(Workflow{
		Name:       "triage",
		Event:      events.EventTicketCreated,
		MaxRetries: 5,
		Handler: func(ctx context.Context, run *workflow.Run, evt events.Event) error {
			attempts++
			return workflow.NewNonRetriable("ticket not found")
		},
	})

	evt := newTestEvent(t, events.EventTicketCreated)
	require.NoError(t, b.Publish(context.Background(), evt))

	assert.Equal(t, 1, attempts)
	out, ok := b.Outcome("triage", evt.ID)
	require.True(t, ok)
	assert.False(t, out.Success)
}

func TestInMemoryBusResumesFromStepLog(t *testing.T) {
	b := NewInMemoryBus(NewMemoryStepLog(), nil, nil, 0)

	firstStepRuns := 0
	secondStepRuns := 0
	b.Subscribe(Workflow{
		Name:       "triage",
		Event:      events.EventTicketCreated,
		MaxRetries: 2,
		Handler: func(ctx context.Context, run *workflow.Run, evt events.Event) error {
			if err := workflow.RunEffect(ctx, run, "first", func(context.Context) error {
				firstStepRuns++
				return nil
			}); err != nil {
				return err
			}
			return workflow.RunEffect(ctx, run, "second", func(context.Context) error {
				secondStepRuns++
				if secondStepRuns < 3 {
					return errors.New("transient")
				}
				return nil
			})
		},
	})

	evt := newTestEvent(t, events.EventTicketCreated)
	require.NoError(t, b.Publish(context.Background(), evt))

	// the first step completed on attempt one and never re-executed, while
	// the second step ran on every delivery until it succeeded
	assert.Equal(t, 1, firstStepRuns)
	assert.Equal(t, 3, secondStepRuns)
	out, ok := b.Outcome("triage", evt.ID)
	require.True(t, ok)
	assert.True(t, out.Success)
}

func TestInMemoryBusIsolatesWorkflows(t *testing.T) {
	b := NewInMemoryBus(NewMemoryStepLog(), nil, nil, 0)

	delivered := []string{}
	handler := func(name string, fail bool) Handler {
		return func(ctx context.Context, run *workflow.Run, evt events.Event) error {
			delivered = append(delivered, name)
			if fail {
				return workflow.NewNonRetriable("broken")
			}
			return nil
		}
	}
	b.Subscribe(Workflow{Name: "a", Event: events.EventTicketCreated, Handler: handler("a", true)})
	b.Subscribe(Workflow{Name: "b", Event: events.EventTicketCreated, Handler: handler("b", false)})

	evt := newTestEvent(t, events.EventTicketCreated)
	require.NoError(t, b.Publish(context.Background(), evt))

	assert.Equal(t, []string{"a", "b"}, delivered)
	outA, _ := b.Outcome("a", evt.ID)
	outB, _ := b.Outcome("b", evt.ID)
	assert.False(t, outA.Success)
	assert.True(t, outB.Success)
}

func TestInMemoryBusIgnoresUnsubscribedEvents(t *testing.T) {
	b := NewInMemoryBus(NewMemoryStepLog(), nil, nil, 0)
	evt := newTestEvent(t, events.EventUserSignedUp)
	require.NoError(t, b.Publish(context.Background(), evt))
	_, ok := b.Outcome("triage", evt.ID)
	assert.False(t, ok)
}

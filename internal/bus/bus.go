package bus

import (
	"context"

	"github.com/dib506676/TicketMate/internal/events"
	"github.com/dib506676/TicketMate/internal/workflow"
)

// DefaultMaxRetries is the number of extra delivery attempts a workflow gets
// after its first attempt fails with a retriable error.
const DefaultMaxRetries = 2

// Handler executes one delivery attempt of a workflow run. A nil return means
// the run reached a successful terminal outcome. A non-retriable error marks
// the run permanently failed; any other error makes the event eligible for
// re-delivery within the workflow's retry budget.
type Handler func(ctx context.Context, run *workflow.Run, event events.Event) error

// Workflow binds a named handler to an event type with its retry budget.
type Workflow struct {
	Name       string
	Event      events.EventType
	MaxRetries int
	Handler    Handler
}

// Bus delivers published events to subscribed workflows with at-least-once
// semantics. Durability of the per-run step log is the bus's responsibility,
// so workflow handlers can rely on resume-without-repeat across deliveries.
type Bus interface {
	Publish(ctx context.Context, event events.Event) error
	Subscribe(wf Workflow)
}

package bus

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dib506676/TicketMate/internal/events"
	"github.com/dib506676/TicketMate/internal/observability"
	"github.com/dib506676/TicketMate/internal/workflow"
)

// InMemoryBus delivers events synchronously inside Publish, retrying a
// retriable handler failure inline until the workflow's budget runs out.
// It backs tests and single-process deployments without Redis.
type InMemoryBus struct {
	mu        sync.RWMutex
	workflows map[events.EventType][]Workflow
	outcomes  map[string]workflow.Outcome

	stepLog    workflow.StepLog
	logger     *zap.Logger
	metrics    *observability.Metrics
	retryDelay time.Duration
}

// NewInMemoryBus creates a bus backed by the given step log. retryDelay is
// the pause before each re-delivery; tests pass zero.
func NewInMemoryBus(stepLog workflow.StepLog, logger *zap.Logger, metrics *observability.Metrics, retryDelay time.Duration) *InMemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryBus{
		workflows:  make(map[events.EventType][]Workflow),
		outcomes:   make(map[string]workflow.Outcome),
		stepLog:    stepLog,
		logger:     logger,
		metrics:    metrics,
		retryDelay: retryDelay,
	}
}

// Subscribe registers a workflow for its event type.
func (b *InMemoryBus) Subscribe(wf Workflow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workflows[wf.Event] = append(b.workflows[wf.Event], wf)
}

// Publish delivers the event to every subscribed workflow, one after the
// other. A failing workflow never blocks delivery to the others.
func (b *InMemoryBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	subscribed := append([]Workflow{}, b.workflows[event.Type]...)
	b.mu.RUnlock()

	for _, wf := range subscribed {
		outcome := b.deliver(ctx, wf, event)
		b.mu.Lock()
		b.outcomes[outcomeKey(wf.Name, event.ID)] = outcome
		b.mu.Unlock()
	}
	return nil
}

// Outcome returns the recorded terminal outcome for a run, if delivery has
// finished.
func (b *InMemoryBus) Outcome(workflowName, runID string) (workflow.Outcome, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out, ok := b.outcomes[outcomeKey(workflowName, runID)]
	return out, ok
}

func (b *InMemoryBus) deliver(ctx context.Context, wf Workflow, event events.Event) workflow.Outcome {
	b.metrics.RecordRunStart(wf.Name)

	for attempt := 0; ; attempt++ {
		run := workflow.NewRun(event.ID, wf.Name, attempt, b.stepLog, b.logger, b.metrics)
		err := wf.Handler(ctx, run, event)
		if err == nil {
			b.metrics.RecordRunOutcome(wf.Name, true)
			return workflow.Outcome{Success: true}
		}

		if workflow.IsNonRetriable(err) {
			run.Logger().Error("run permanently failed", zap.Error(err))
			b.metrics.RecordRunOutcome(wf.Name, false)
			return workflow.Outcome{Success: false}
		}

		if attempt >= wf.MaxRetries {
			run.Logger().Error("retry budget exhausted", zap.Error(err))
			b.metrics.RecordRunOutcome(wf.Name, false)
			return workflow.Outcome{Success: false}
		}

		run.Logger().Warn("run attempt failed, re-delivering", zap.Error(err))
		b.metrics.RecordRetry(wf.Name)
		if b.retryDelay > 0 {
			select {
			case <-time.After(b.retryDelay):
			case <-ctx.Done():
				b.metrics.RecordRunOutcome(wf.Name, false)
				return workflow.Outcome{Success: false}
			}
		}
	}
}

func outcomeKey(workflowName, runID string) string {
	return workflowName + "/" + runID
}

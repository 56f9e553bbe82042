package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dib506676/TicketMate/internal/observability"
)

// StepLog is the durable per-run record of completed steps. The bus layer
// owns the storage; the framework only needs get/put. A step present in the
// log is treated as completed and is never executed again for that run.
type StepLog interface {
	Get(ctx context.Context, runID, step string) ([]byte, bool, error)
	Put(ctx context.Context, runID, step string, result []byte) error
}

// Outcome is the terminal result of one workflow run.
type Outcome struct {
	Success bool `json:"success"`
}

// Run is the execution context for one delivered event. Re-deliveries of the
// same event share the run ID and therefore the step log, so completed steps
// resume from their memoized results instead of re-executing.
type Run struct {
	ID       string
	Workflow string
	Attempt  int

	log     StepLog
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRun builds the execution context for one delivery attempt.
func NewRun(id, workflowName string, attempt int, log StepLog, logger *zap.Logger, metrics *observability.Metrics) *Run {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Run{
		ID:       id,
		Workflow: workflowName,
		Attempt:  attempt,
		log:      log,
		logger:   logger.With(zap.String("workflow", workflowName), zap.String("run_id", id), zap.Int("attempt", attempt)),
		metrics:  metrics,
	}
}

// Logger returns the run-scoped logger.
func (r *Run) Logger() *zap.Logger {
	return r.logger
}

// RunStep executes fn at most once per run under the given step name. If the
// step already completed in an earlier attempt, the stored result is decoded
// and returned without invoking fn. A result is persisted before it is
// returned, so a crash after persistence can only replay the cheap read path.
func RunStep[T any](ctx context.Context, run *Run, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, ok, err := run.log.Get(ctx, run.ID, name)
	if err != nil {
		return zero, fmt.Errorf("step %q: read log: %w", name, err)
	}
	if ok {
		var memoized T
		if err := json.Unmarshal(raw, &memoized); err != nil {
			return zero, fmt.Errorf("step %q: decode memoized result: %w", name, err)
		}
		run.metrics.RecordStep(run.Workflow, name, true)
		run.logger.Debug("step resumed from log", zap.String("step", name))
		return memoized, nil
	}

	result, err := fn(ctx)
	if err != nil {
		return zero, fmt.Errorf("step %q: %w", name, err)
	}

	raw, err = json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("step %q: encode result: %w", name, err)
	}
	if err := run.log.Put(ctx, run.ID, name, raw); err != nil {
		return zero, fmt.Errorf("step %q: write log: %w", name, err)
	}

	run.metrics.RecordStep(run.Workflow, name, false)
	run.logger.Debug("step completed", zap.String("step", name))
	return result, nil
}

// RunEffect is RunStep for side-effect-only steps with no meaningful result.
func RunEffect(ctx context.Context, run *Run, name string, fn func(context.Context) error) error {
	_, err := RunStep(ctx, run, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

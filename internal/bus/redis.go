package bus

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dib506676/TicketMate/internal/events"
	"github.com/dib506676/TicketMate/internal/observability"
	"github.com/dib506676/TicketMate/internal/workflow"
)

const (
	queueKey         = "bus:queue"
	scheduledKey     = "bus:scheduled"
	outcomeKeyPrefix = "bus:outcome:"

	popTimeout    = time.Second
	schedulerTick = 250 * time.Millisecond
)

// RedisBusConfig tunes the Redis-backed bus.
type RedisBusConfig struct {
	Workers    int
	RetryDelay time.Duration
	OutcomeTTL time.Duration
}

// delivery is the queue envelope: one attempt of one workflow for one event.
type delivery struct {
	Event    events.Event `json:"event"`
	Workflow string       `json:"workflow"`
	Attempt  int          `json:"attempt"`
}

// RedisBus queues deliveries in a Redis list and re-schedules retriable
// failures through a sorted set keyed by ready time. Workers pop and execute
// deliveries concurrently; each run's step log keeps re-deliveries from
// repeating completed work.
type RedisBus struct {
	client  *redis.Client
	stepLog workflow.StepLog
	logger  *zap.Logger
	metrics *observability.Metrics
	cfg     RedisBusConfig

	mu        sync.RWMutex
	workflows map[events.EventType][]Workflow

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewRedisBus creates the bus. Call Start to begin consuming.
func NewRedisBus(client *redis.Client, stepLog workflow.StepLog, logger *zap.Logger, metrics *observability.Metrics, cfg RedisBusConfig) *RedisBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &RedisBus{
		client:    client,
		stepLog:   stepLog,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		workflows: make(map[events.EventType][]Workflow),
	}
}

// Subscribe registers a workflow for its event type. Subscriptions must be in
// place before Start.
func (b *RedisBus) Subscribe(wf Workflow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workflows[wf.Event] = append(b.workflows[wf.Event], wf)
}

// Publish enqueues one delivery per subscribed workflow.
func (b *RedisBus) Publish(ctx context.Context, event events.Event) error {
	b.mu.RLock()
	subscribed := append([]Workflow{}, b.workflows[event.Type]...)
	b.mu.RUnlock()

	if len(subscribed) == 0 {
		b.logger.Warn("no workflow subscribed for event type", zap.String("event_type", string(event.Type)))
		return nil
	}

	for _, wf := range subscribed {
		if err := b.enqueue(ctx, delivery{Event: event, Workflow: wf.Name, Attempt: 0}); err != nil {
			return err
		}
		b.metrics.RecordRunStart(wf.Name)
	}
	return nil
}

// Start launches the worker pool and the retry scheduler.
func (b *RedisBus) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.group, ctx = errgroup.WithContext(ctx)

	for i := 0; i < b.cfg.Workers; i++ {
		b.group.Go(func() error {
			b.consume(ctx)
			return nil
		})
	}
	b.group.Go(func() error {
		b.moveScheduled(ctx)
		return nil
	})
}

// Close stops workers and waits for in-flight deliveries to finish.
func (b *RedisBus) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.group != nil {
		_ = b.group.Wait()
	}
}

// Outcome returns the recorded terminal outcome for a run, if any.
func (b *RedisBus) Outcome(ctx context.Context, workflowName, runID string) (workflow.Outcome, bool, error) {
	raw, err := b.client.Get(ctx, outcomeKeyPrefix+outcomeKey(workflowName, runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return workflow.Outcome{}, false, nil
	}
	if err != nil {
		return workflow.Outcome{}, false, err
	}
	var out workflow.Outcome
	if err := json.Unmarshal(raw, &out); err != nil {
		return workflow.Outcome{}, false, err
	}
	return out, true, nil
}

func (b *RedisBus) enqueue(ctx context.Context, d delivery) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.client.LPush(ctx, queueKey, raw).Err()
}

func (b *RedisBus) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := b.client.BLPop(ctx, popTimeout, queueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("queue pop failed", zap.Error(err))
			time.Sleep(popTimeout)
			continue
		}
		// BLPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		var d delivery
		if err := json.Unmarshal([]byte(res[1]), &d); err != nil {
			b.logger.Error("dropping malformed delivery", zap.Error(err))
			continue
		}
		b.handle(ctx, d)
	}
}

func (b *RedisBus) handle(ctx context.Context, d delivery) {
	wf, ok := b.lookup(d.Event.Type, d.Workflow)
	if !ok {
		b.logger.Error("delivery for unknown workflow",
			zap.String("workflow", d.Workflow),
			zap.String("event_type", string(d.Event.Type)))
		return
	}

	run := workflow.NewRun(d.Event.ID, wf.Name, d.Attempt, b.stepLog, b.logger, b.metrics)
	err := wf.Handler(ctx, run, d.Event)
	switch {
	case err == nil:
		b.recordOutcome(ctx, wf.Name, d.Event.ID, workflow.Outcome{Success: true})

	case workflow.IsNonRetriable(err):
		run.Logger().Error("run permanently failed", zap.Error(err))
		b.recordOutcome(ctx, wf.Name, d.Event.ID, workflow.Outcome{Success: false})

	case d.Attempt >= wf.MaxRetries:
		run.Logger().Error("retry budget exhausted", zap.Error(err))
		b.recordOutcome(ctx, wf.Name, d.Event.ID, workflow.Outcome{Success: false})

	default:
		run.Logger().Warn("run attempt failed, scheduling re-delivery", zap.Error(err))
		b.metrics.RecordRetry(wf.Name)
		if err := b.schedule(ctx, delivery{Event: d.Event, Workflow: d.Workflow, Attempt: d.Attempt + 1}); err != nil {
			run.Logger().Error("failed to schedule re-delivery", zap.Error(err))
		}
	}
}

func (b *RedisBus) schedule(ctx context.Context, d delivery) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	readyAt := float64(time.Now().Add(b.cfg.RetryDelay).UnixMilli())
	return b.client.ZAdd(ctx, scheduledKey, redis.Z{Score: readyAt, Member: raw}).Err()
}

// moveScheduled shifts due re-deliveries from the scheduled set back onto the
// main queue.
func (b *RedisBus) moveScheduled(ctx context.Context) {
	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		due, err := b.client.ZRangeByScore(ctx, scheduledKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Warn("scheduled scan failed", zap.Error(err))
			}
			continue
		}
		for _, member := range due {
			removed, err := b.client.ZRem(ctx, scheduledKey, member).Result()
			if err != nil || removed == 0 {
				// another worker claimed it
				continue
			}
			if err := b.client.LPush(ctx, queueKey, member).Err(); err != nil {
				b.logger.Error("failed to requeue scheduled delivery", zap.Error(err))
			}
		}
	}
}

func (b *RedisBus) recordOutcome(ctx context.Context, workflowName, runID string, out workflow.Outcome) {
	b.metrics.RecordRunOutcome(workflowName, out.Success)
	raw, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := b.client.Set(ctx, outcomeKeyPrefix+outcomeKey(workflowName, runID), raw, b.cfg.OutcomeTTL).Err(); err != nil {
		b.logger.Warn("failed to record outcome", zap.Error(err), zap.String("run_id", runID))
	}
}

func (b *RedisBus) lookup(eventType events.EventType, name string) (Workflow, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, wf := range b.workflows[eventType] {
		if wf.Name == name {
			return wf, true
		}
	}
	return Workflow{}, false
}

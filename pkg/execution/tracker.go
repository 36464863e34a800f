// Package execution contains the workflow-execution orchestrator: the
// in-memory execution tracker, the engine payload builder and the
// orchestration entry points (execute, confirm, cancel, retry, status).
package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/noahsatkunam/chatflow/pkg/eventbus"
	"github.com/noahsatkunam/chatflow/pkg/events"
	"github.com/noahsatkunam/chatflow/pkg/models"
	"github.com/noahsatkunam/chatflow/pkg/protocol"
)

// DefaultGracePeriod is how long a terminal execution stays queryable before
// cleanup removes it.
const DefaultGracePeriod = 5 * time.Minute

const dayFormat = "2006-01-02"

// Tracker is the in-memory registry of in-flight and recently terminal
// executions. All state transitions are forward-only; the concurrency cap is
// enforced through atomic slot reservation so concurrent submissions can
// never overrun it.
type Tracker struct {
	mu         sync.Mutex
	executions map[string]*models.ExecutionResult
	pending    map[string]int            // reserved-but-not-yet-tracked slots per tenant:user
	started    map[string]map[string]int // day -> tenant:user -> executions started

	grace     time.Duration
	publisher eventbus.EventPublisher
	responder protocol.ResponseGenerator
	logger    *slog.Logger

	now func() time.Time
}

// NewTracker creates an empty tracker. The publisher receives one event per
// state transition; pass nil to disable publication.
func NewTracker(grace time.Duration, publisher eventbus.EventPublisher, responder protocol.ResponseGenerator, logger *slog.Logger) *Tracker {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	return &Tracker{
		executions: make(map[string]*models.ExecutionResult),
		pending:    make(map[string]int),
		started:    make(map[string]map[string]int),
		grace:      grace,
		publisher:  publisher,
		responder:  responder,
		logger:     logger.With("module", "execution_tracker"),
		now:        time.Now,
	}
}

func slotKey(tenantID, userID string) string {
	return tenantID + ":" + userID
}

// Reserve atomically claims an execution slot for the user when active plus
// already-reserved executions are below max. The reservation is consumed by
// Track or returned by CancelReservation.
func (t *Tracker) Reserve(tenantID, userID string, max int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := slotKey(tenantID, userID)

	if t.activeCountLocked(tenantID, userID)+t.pending[key] >= max {
		return false
	}

	t.pending[key]++

	return true
}

// CancelReservation returns an unused slot, e.g. after a failed engine submission.
func (t *Tracker) CancelReservation(tenantID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := slotKey(tenantID, userID)
	if t.pending[key] > 0 {
		t.pending[key]--
	}

	if t.pending[key] == 0 {
		delete(t.pending, key)
	}
}

// Track inserts a new execution, consuming the caller's reservation when one
// is outstanding, and publishes the started event.
func (t *Tracker) Track(ctx context.Context, execution *models.ExecutionResult) {
	t.mu.Lock()

	key := slotKey(execution.TenantID, execution.UserID)
	if t.pending[key] > 0 {
		t.pending[key]--

		if t.pending[key] == 0 {
			delete(t.pending, key)
		}
	}

	t.executions[execution.ID] = execution

	day := execution.StartedAt.Format(dayFormat)
	if t.started[day] == nil {
		t.started[day] = make(map[string]int)
	}

	t.started[day][key]++
	t.mu.Unlock()

	t.publish(ctx, execution.WorkflowID, events.ExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent, execution),
		UserID:    execution.UserID,
		RetryOf:   execution.RetryOf,
	})
}

// Get returns a snapshot of the execution, or nil when unknown or already
// purged. Terminal entries past the grace period are purged lazily here.
func (t *Tracker) Get(executionID string) *models.ExecutionResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	execution, ok := t.executions[executionID]
	if !ok {
		return nil
	}

	if t.purgeableLocked(execution) {
		delete(t.executions, executionID)

		return nil
	}

	snapshot := *execution

	return &snapshot
}

// ActiveCount returns the number of non-terminal executions for the user.
func (t *Tracker) ActiveCount(tenantID, userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.activeCountLocked(tenantID, userID)
}

// StartedToday returns how many executions the user started on now's calendar
// day. The count is kept in per-day counters rather than derived from tracked
// executions, so quota usage survives the purge of terminal entries.
func (t *Tracker) StartedToday(tenantID, userID string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.started[now.Format(dayFormat)][slotKey(tenantID, userID)]
}

// OnStarted is the engine's start callback: started -> running.
func (t *Tracker) OnStarted(ctx context.Context, executionID string) {
	execution := t.transition(executionID, models.ExecutionStatusRunning, nil)
	if execution == nil {
		return
	}

	t.publish(ctx, execution.WorkflowID, events.ExecutionRunning{
		BaseEvent: events.NewBaseEvent(events.ExecutionRunningEvent, execution),
	})
}

// OnProgress merges engine progress into the tracked result without a state change.
func (t *Tracker) OnProgress(_ context.Context, executionID string, progress map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	execution, ok := t.executions[executionID]
	if !ok || execution.Status.IsTerminal() {
		return
	}

	if execution.Result == nil {
		execution.Result = make(map[string]any)
	}

	for k, v := range progress {
		execution.Result[k] = v
	}
}

// OnCompleted is the engine's completion callback.
func (t *Tracker) OnCompleted(ctx context.Context, executionID string, result map[string]any) {
	execution := t.transition(executionID, models.ExecutionStatusCompleted, func(e *models.ExecutionResult) {
		e.Result = result
	})
	if execution == nil {
		return
	}

	t.attachResponse(ctx, executionID, func(ctx context.Context) *models.ChatResponse {
		return t.responder.SuccessResponse(ctx, execution)
	})

	t.publish(ctx, execution.WorkflowID, events.ExecutionCompleted{
		BaseEvent: events.NewBaseEvent(events.ExecutionCompletedEvent, execution),
		Result:    result,
		Duration:  execution.Duration,
	})
}

// OnFailed is the engine's failure callback.
func (t *Tracker) OnFailed(ctx context.Context, executionID string, reason string) {
	execution := t.transition(executionID, models.ExecutionStatusFailed, func(e *models.ExecutionResult) {
		e.Error = reason
	})
	if execution == nil {
		return
	}

	t.attachResponse(ctx, executionID, func(ctx context.Context) *models.ChatResponse {
		return t.responder.ErrorResponse(ctx, execution, reason)
	})

	t.publish(ctx, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, execution),
		Error:     reason,
		Duration:  execution.Duration,
	})
}

// MarkCancelled transitions the execution to cancelled. The tracked state is
// marked immediately on a successful cancel request, independent of whether
// the engine has actually halted.
func (t *Tracker) MarkCancelled(ctx context.Context, executionID, cancelledBy string) {
	execution := t.transition(executionID, models.ExecutionStatusCancelled, nil)
	if execution == nil {
		return
	}

	t.attachResponse(ctx, executionID, func(ctx context.Context) *models.ChatResponse {
		return t.responder.CancellationResponse(ctx, execution)
	})

	t.publish(ctx, execution.WorkflowID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution),
		CancelledBy: cancelledBy,
		Duration:    execution.Duration,
	})
}

// Sweep eagerly purges terminal executions past the grace period and returns
// how many were removed. Lazy purging in Get keeps correctness independent of
// the sweep firing.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	purged := 0

	for id, execution := range t.executions {
		if t.purgeableLocked(execution) {
			delete(t.executions, id)

			purged++
		}
	}

	today := t.now().Format(dayFormat)
	for day := range t.started {
		if day != today {
			delete(t.started, day)
		}
	}

	return purged
}

// transition applies a forward-only state change and returns a snapshot, or
// nil when the execution is unknown or the transition is illegal.
func (t *Tracker) transition(executionID string, next models.ExecutionStatus, mutate func(*models.ExecutionResult)) *models.ExecutionResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	execution, ok := t.executions[executionID]
	if !ok {
		return nil
	}

	if !execution.Status.CanTransitionTo(next) {
		t.logger.Warn("Ignoring illegal execution state transition",
			"execution_id", executionID,
			"from", execution.Status,
			"to", next)

		return nil
	}

	execution.Status = next

	if mutate != nil {
		mutate(execution)
	}

	if next.IsTerminal() {
		finished := t.now()
		execution.FinishedAt = &finished
		execution.Duration = finished.Sub(execution.StartedAt)
	}

	snapshot := *execution

	return &snapshot
}

func (t *Tracker) attachResponse(ctx context.Context, executionID string, generate func(context.Context) *models.ChatResponse) {
	t.mu.Lock()
	execution, ok := t.executions[executionID]
	fromChat := ok && execution.FromChat
	t.mu.Unlock()

	if !fromChat || t.responder == nil {
		return
	}

	response := generate(ctx)

	t.mu.Lock()
	if execution, ok := t.executions[executionID]; ok {
		execution.ChatResponse = response
	}
	t.mu.Unlock()
}

func (t *Tracker) publish(ctx context.Context, key string, event eventbus.Event) {
	if t.publisher == nil {
		return
	}

	err := t.publisher.Publish(ctx, key, event)
	if err != nil {
		t.logger.Warn("Failed to publish execution event",
			"event_type", event.GetType(),
			"error", err)
	}
}

func (t *Tracker) activeCountLocked(tenantID, userID string) int {
	count := 0

	for _, execution := range t.executions {
		if execution.TenantID == tenantID && execution.UserID == userID && !execution.Status.IsTerminal() {
			count++
		}
	}

	return count
}

func (t *Tracker) purgeableLocked(execution *models.ExecutionResult) bool {
	return execution.Status.IsTerminal() &&
		execution.FinishedAt != nil &&
		t.now().Sub(*execution.FinishedAt) >= t.grace
}

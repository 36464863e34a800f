// Package events defines the execution-lifecycle event types the tracker
// publishes on every state transition. Consumers subscribe through the event
// bus instead of relying on a process-wide emitter.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/noahsatkunam/chatflow/pkg/models"
)

type EventType string

// Topic is the event-bus topic carrying execution lifecycle events.
const Topic = "chatflow.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionRunningEvent   EventType = "execution.running"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	TenantID    string         `json:"tenant_id"`
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates the shared portion of a lifecycle event.
func NewBaseEvent(eventType EventType, execution *models.ExecutionResult) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now(),
		TenantID:    execution.TenantID,
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	UserID  string `json:"user_id"`
	RetryOf string `json:"retry_of,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionRunning struct {
	BaseEvent
}

func (e ExecutionRunning) GetType() EventType {
	return ExecutionRunningEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Result   map[string]any `json:"result,omitempty"`
	Duration time.Duration  `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	CancelledBy string        `json:"cancelled_by"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

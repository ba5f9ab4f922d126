package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns "category.action", e.g. "sentinel.armed".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypePhaseChanged      = "phase.changed"
	TypeSentinelArmed     = "sentinel.armed"
	TypeSentinelDisarmed  = "sentinel.disarmed"
	TypeStaleDetected     = "sentinel.stale_detected"
	TypeRecoveryCompleted = "recovery.completed"
	TypeIOFailed          = "io.failed"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// PhaseChangedEvent is emitted after every sequencer transition.
type PhaseChangedEvent struct {
	baseEvent
	WorkspaceID string
	Trigger     string // Lifecycle event that caused the transition
	From        string
	To          string
	InOrder     bool // False when the trigger was not valid from From
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(workspaceID, trigger, from, to string, inOrder bool) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent:   newBaseEvent(TypePhaseChanged),
		WorkspaceID: workspaceID,
		Trigger:     trigger,
		From:        from,
		To:          to,
		InOrder:     inOrder,
	}
}

// SentinelArmedEvent is emitted when a sentinel was written.
type SentinelArmedEvent struct {
	baseEvent
	WorkspaceID string
	Path        string
	AttemptID   string
}

// NewSentinelArmedEvent creates a SentinelArmedEvent.
func NewSentinelArmedEvent(workspaceID, path, attemptID string) SentinelArmedEvent {
	return SentinelArmedEvent{
		baseEvent:   newBaseEvent(TypeSentinelArmed),
		WorkspaceID: workspaceID,
		Path:        path,
		AttemptID:   attemptID,
	}
}

// SentinelDisarmedEvent is emitted when a sentinel was removed (or was already absent).
type SentinelDisarmedEvent struct {
	baseEvent
	WorkspaceID string
	Path        string
}

// NewSentinelDisarmedEvent creates a SentinelDisarmedEvent.
func NewSentinelDisarmedEvent(workspaceID, path string) SentinelDisarmedEvent {
	return SentinelDisarmedEvent{
		baseEvent:   newBaseEvent(TypeSentinelDisarmed),
		WorkspaceID: workspaceID,
		Path:        path,
	}
}

// StaleDetectedEvent is emitted when a primary load begins with the sentinel
// still present from an earlier attempt.
type StaleDetectedEvent struct {
	baseEvent
	WorkspaceID string
	Path        string
}

// NewStaleDetectedEvent creates a StaleDetectedEvent.
func NewStaleDetectedEvent(workspaceID, path string) StaleDetectedEvent {
	return StaleDetectedEvent{
		baseEvent:   newBaseEvent(TypeStaleDetected),
		WorkspaceID: workspaceID,
		Path:        path,
	}
}

// RecoveryCompletedEvent is emitted after a recovery pass, successful or not.
type RecoveryCompletedEvent struct {
	baseEvent
	WorkspaceID string
	Root        string
	Deleted     int
	Failed      int
	Duration    time.Duration
}

// NewRecoveryCompletedEvent creates a RecoveryCompletedEvent.
func NewRecoveryCompletedEvent(workspaceID, root string, deleted, failed int, d time.Duration) RecoveryCompletedEvent {
	return RecoveryCompletedEvent{
		baseEvent:   newBaseEvent(TypeRecoveryCompleted),
		WorkspaceID: workspaceID,
		Root:        root,
		Deleted:     deleted,
		Failed:      failed,
		Duration:    d,
	}
}

// IOFailedEvent is emitted for every absorbed filesystem failure.
type IOFailedEvent struct {
	baseEvent
	WorkspaceID string
	Op          string
	Path        string
	Kind        string
}

// NewIOFailedEvent creates an IOFailedEvent.
func NewIOFailedEvent(workspaceID, op, path, kind string) IOFailedEvent {
	return IOFailedEvent{
		baseEvent:   newBaseEvent(TypeIOFailed),
		WorkspaceID: workspaceID,
		Op:          op,
		Path:        path,
		Kind:        kind,
	}
}

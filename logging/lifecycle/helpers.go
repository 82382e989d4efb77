package lifecycle

import (
	"context"

	"floorcrawl/logging"
)

const (
	// EventSessionCreated is emitted when a client joins and a session is allocated.
	EventSessionCreated logging.EventType = "lifecycle.session_created"
	// EventSessionClosed is emitted when a session's connection goes away.
	EventSessionClosed logging.EventType = "lifecycle.session_closed"
	// EventRunStarted is emitted when a run begins from the menu or a restart.
	EventRunStarted logging.EventType = "lifecycle.run_started"
	// EventRunEnded is emitted when a run reaches game over.
	EventRunEnded logging.EventType = "lifecycle.run_ended"
)

// SessionCreatedPayload captures the allocation details for a new session.
type SessionCreatedPayload struct {
	RemoteAddr string `json:"remoteAddr,omitempty"`
}

// SessionClosedPayload captures why a session went away.
type SessionClosedPayload struct {
	Reason string `json:"reason"`
}

// RunStartedPayload captures the opening state of a run.
type RunStartedPayload struct {
	Seed  string `json:"seed,omitempty"`
	Floor int    `json:"floor"`
}

// RunEndedPayload captures the final tally of a run.
type RunEndedPayload struct {
	Floor          int   `json:"floor"`
	EnemiesKilled  int   `json:"enemiesKilled"`
	TimeSurvivedMS int64 `json:"timeSurvivedMs"`
}

// SessionCreated publishes a session allocation event.
func SessionCreated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SessionCreatedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSessionCreated,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// SessionClosed publishes a session teardown event.
func SessionClosed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SessionClosedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventSessionClosed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// RunStarted publishes a run start event.
func RunStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, runID string, payload RunStartedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRunStarted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		RunID:    runID,
	}
	pub.Publish(ctx, event)
}

// RunEnded publishes a run end event.
func RunEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, runID string, payload RunEndedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventRunEnded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: "lifecycle",
		Payload:  payload,
		RunID:    runID,
	}
	pub.Publish(ctx, event)
}

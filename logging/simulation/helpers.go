package simulation

import (
	"context"

	"floorcrawl/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a tick exceeds its time budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventCommandDropped is emitted when the command queue rejects an intent.
	EventCommandDropped logging.EventType = "simulation.command_dropped"
	// EventQueuePressure is emitted when the staged command queue keeps growing.
	EventQueuePressure logging.EventType = "simulation.queue_pressure"
	// EventWallOverlap is emitted when the player's position lands inside a
	// wall tile. Movement is not clamped, so this traces how often it happens.
	EventWallOverlap logging.EventType = "simulation.wall_overlap"
)

// TickBudgetOverrunPayload captures timing details for a budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
}

// CommandDroppedPayload captures the rejected command.
type CommandDroppedPayload struct {
	CommandType string `json:"commandType"`
	Reason      string `json:"reason"`
}

// QueuePressurePayload captures the queue length at warning time.
type QueuePressurePayload struct {
	Length int `json:"length"`
}

// TickBudgetOverrun publishes a warning when the loop exceeds its budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// CommandDropped publishes a dropped-command event.
func CommandDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandDroppedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventCommandDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// QueuePressure publishes a growing-queue warning.
func QueuePressure(ctx context.Context, pub logging.Publisher, tick uint64, payload QueuePressurePayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventQueuePressure,
		Tick:     tick,
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// WallOverlapPayload captures where the player overlapped a wall.
type WallOverlapPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WallOverlap publishes a debug-severity wall overlap trace.
func WallOverlap(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload WallOverlapPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventWallOverlap,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: "simulation",
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

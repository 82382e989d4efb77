package engine

import (
	"time"

	"floorcrawl/internal/telemetry"
	"floorcrawl/logging"
)

// Deps carries shared infrastructure dependencies required by the engine.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}

// TickContext describes one fixed-timestep frame.
type TickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// Core is the simulation surface the loop drives. The hub implements it by
// fanning commands and steps out to its sessions.
type Core interface {
	Deps() Deps
	Apply([]Command) error
	Step(ctx TickContext)
}

package combat

import (
	"context"

	"floorcrawl/logging"
)

const (
	// EventDamage is emitted when an attack deals damage to a target.
	EventDamage logging.EventType = "combat.damage"
	// EventProjectileHit is emitted when a projectile connects with a body.
	EventProjectileHit logging.EventType = "combat.projectile_hit"
	// EventEnemyDefeated is emitted when an enemy is removed from the roster.
	EventEnemyDefeated logging.EventType = "combat.enemy_defeated"
	// EventPlayerDefeated is emitted when the player's health reaches zero.
	EventPlayerDefeated logging.EventType = "combat.player_defeated"
)

// DamagePayload captures the amount dealt to a single target.
type DamagePayload struct {
	Source       string  `json:"source"`
	Amount       float64 `json:"amount"`
	TargetHealth float64 `json:"targetHealth"`
}

// ProjectileHitPayload describes a projectile impact.
type ProjectileHitPayload struct {
	ProjectileID string  `json:"projectileId"`
	Damage       float64 `json:"damage"`
}

// EnemyDefeatedPayload records the reward granted for a kill.
type EnemyDefeatedPayload struct {
	EnemyType string `json:"enemyType"`
	XPAwarded int    `json:"xpAwarded"`
	Floor     int    `json:"floor"`
}

// PlayerDefeatedPayload records the final blow context.
type PlayerDefeatedPayload struct {
	Floor          int    `json:"floor"`
	EnemiesKilled  int    `json:"enemiesKilled"`
	TimeSurvivedMS int64  `json:"timeSurvivedMs"`
	KilledBy       string `json:"killedBy,omitempty"`
}

// Damage publishes a damage event.
func Damage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload DamagePayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventDamage,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// ProjectileHit publishes a projectile impact event.
func ProjectileHit(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, target logging.EntityRef, payload ProjectileHitPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventProjectileHit,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryCombat,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// EnemyDefeated publishes a kill event.
func EnemyDefeated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload EnemyDefeatedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEnemyDefeated,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// PlayerDefeated publishes the player's death event.
func PlayerDefeated(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDefeatedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventPlayerDefeated,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

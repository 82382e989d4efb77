package game

import (
	"fmt"
	"math"
	"time"

	"floorcrawl/content"
	"floorcrawl/internal/stats"
)

// PlayerHooks notify the session about player milestones. Hooks fire at most
// once per event and may be nil.
type PlayerHooks struct {
	OnDeath   func()
	OnLevelUp func()
}

// PlayerController owns the player actor and its projectiles. It never talks
// to the enemy roster directly; the session feeds it targets and damage.
type PlayerController struct {
	level  LevelQuery
	camera CameraQuery
	hooks  PlayerHooks

	state       playerState
	component   stats.Component
	projectiles []projectileState
	nextShotID  uint64
	alive       bool
}

type playerState struct {
	Player

	input      InputState
	lastAttack time.Time
	lastRegen  time.Time
}

// NewPlayerController returns a controller in its reset state at the origin.
func NewPlayerController(level LevelQuery, camera CameraQuery, hooks PlayerHooks) *PlayerController {
	c := &PlayerController{
		level:  level,
		camera: camera,
		hooks:  hooks,
	}
	c.Reset(0, 0)
	return c
}

// Reset restores the player to run-start defaults at the given spawn point.
// Calling it repeatedly always produces the same state.
func (c *PlayerController) Reset(spawnX, spawnY float64) {
	c.component = stats.NewComponent(stats.PlayerBase())
	c.state = playerState{
		Player: Player{
			ID:     PlayerID,
			X:      spawnX,
			Y:      spawnY,
			Facing: 0,
			XP:     0,
			Level:  1,
		},
	}
	c.syncStats()
	c.state.Health = c.state.MaxHealth
	c.projectiles = nil
	c.alive = true
}

// syncStats copies resolved stat values into the wire struct.
func (c *PlayerController) syncStats() {
	c.component.Resolve()
	c.state.Speed = c.component.Value(stats.StatMoveSpeed)
	c.state.Damage = c.component.Value(stats.StatAttackDamage)
	c.state.AttackSpeed = c.component.Value(stats.StatAttackSpeed)
	c.state.MaxHealth = c.component.Value(stats.StatMaxHealth)
	if c.state.Health > c.state.MaxHealth {
		c.state.Health = c.state.MaxHealth
	}
}

// SetInput replaces the held input sampled on the next Update.
func (c *PlayerController) SetInput(input InputState) {
	c.state.input = input
}

// Update advances the player by dt seconds: movement, facing, firing,
// regeneration and projectile flight, in that order.
func (c *PlayerController) Update(now time.Time, dt float64) {
	if !c.alive {
		return
	}
	c.applyMovement(dt)
	c.updateFacing()
	c.fireIfReady(now)
	c.regenerate(now)
	c.advanceProjectiles(dt)
}

func (c *PlayerController) applyMovement(dt float64) {
	input := c.state.input
	dx, dy := 0.0, 0.0
	if input.Left {
		dx -= 1
	}
	if input.Right {
		dx += 1
	}
	if input.Up {
		dy -= 1
	}
	if input.Down {
		dy += 1
	}
	if dx == 0 && dy == 0 {
		return
	}
	if dx != 0 && dy != 0 {
		dx *= stats.DiagonalFactor
		dy *= stats.DiagonalFactor
	}
	c.state.X += dx * c.state.Speed * dt
	c.state.Y += dy * c.state.Speed * dt
}

// updateFacing converts the raw pointer position to world space using the
// previous frame's camera offset. The exact origin is skipped so a player who
// has never moved the pointer keeps the default facing.
func (c *PlayerController) updateFacing() {
	input := c.state.input
	if input.PointerX == 0 && input.PointerY == 0 {
		return
	}
	offsetX, offsetY := 0.0, 0.0
	if c.camera != nil {
		offsetX, offsetY = c.camera.Offset()
	}
	worldX := input.PointerX + offsetX
	worldY := input.PointerY + offsetY
	c.state.Facing = math.Atan2(worldY-c.state.Y, worldX-c.state.X)
}

func (c *PlayerController) fireIfReady(now time.Time) {
	if !c.state.input.Attack {
		return
	}
	cooldown := stats.AttackCooldown(c.state.AttackSpeed)
	if !c.state.lastAttack.IsZero() && now.Sub(c.state.lastAttack) < cooldown {
		return
	}
	c.state.lastAttack = now

	c.nextShotID++
	c.projectiles = append(c.projectiles, projectileState{
		Projectile: Projectile{
			ID:          fmt.Sprintf("shot-%d", c.nextShotID),
			X:           c.state.X,
			Y:           c.state.Y,
			VelX:        math.Cos(c.state.Facing) * stats.PlayerProjectileSpeed,
			VelY:        math.Sin(c.state.Facing) * stats.PlayerProjectileSpeed,
			Damage:      c.state.Damage,
			RemainingMS: stats.ProjectileLifetimeMS,
		},
		ownerID: c.state.ID,
	})
}

func (c *PlayerController) regenerate(now time.Time) {
	if !c.state.Regeneration {
		return
	}
	if !c.state.lastRegen.IsZero() && now.Sub(c.state.lastRegen) < stats.RegenInterval {
		return
	}
	c.state.lastRegen = now
	applyHealthDelta(&c.state.Health, c.state.MaxHealth, stats.RegenAmount)
}

func (c *PlayerController) advanceProjectiles(dt float64) {
	kept := c.projectiles[:0]
	for _, shot := range c.projectiles {
		shot.X += shot.VelX * dt
		shot.Y += shot.VelY * dt
		shot.RemainingMS -= dt * 1000
		if shot.RemainingMS <= 0 {
			continue
		}
		if c.level != nil && !c.level.IsWalkable(shot.X, shot.Y) {
			continue
		}
		kept = append(kept, shot)
	}
	c.projectiles = kept
}

// SweepTargets collides live shots against the given targets. Each shot is
// consumed by the first target whose padded hit circle contains it; hits are
// reported in shot order.
func (c *PlayerController) SweepTargets(targets []EnemyTarget) []ProjectileHit {
	if len(c.projectiles) == 0 || len(targets) == 0 {
		return nil
	}
	var hits []ProjectileHit
	kept := c.projectiles[:0]
	for _, shot := range c.projectiles {
		consumed := false
		for _, target := range targets {
			if distance(shot.X, shot.Y, target.X, target.Y) < target.Radius+stats.ProjectileHitSlack {
				hits = append(hits, ProjectileHit{
					ProjectileID: shot.ID,
					TargetID:     target.ID,
					Damage:       shot.Damage,
				})
				consumed = true
				break
			}
		}
		if !consumed {
			kept = append(kept, shot)
		}
	}
	c.projectiles = kept
	return hits
}

// TakeDamage reduces health, clamped at zero, and fires OnDeath exactly once
// when the player dies.
func (c *PlayerController) TakeDamage(amount float64) {
	if amount <= 0 || !c.alive {
		return
	}
	applyHealthDelta(&c.state.Health, c.state.MaxHealth, -amount)
	if c.state.Health > 0 {
		return
	}
	c.alive = false
	if c.hooks.OnDeath != nil {
		c.hooks.OnDeath()
	}
}

// GainXP credits experience and steps up at most one level per call,
// resetting accumulated XP on level-up.
func (c *PlayerController) GainXP(amount int) {
	if amount <= 0 || !c.alive {
		return
	}
	c.state.XP += amount
	if c.state.XP < stats.XPThreshold(c.state.Level) {
		return
	}
	c.state.Level++
	c.state.XP = 0
	if c.hooks.OnLevelUp != nil {
		c.hooks.OnLevelUp()
	}
}

// ApplyUpgrade applies one catalog upgrade to the player's stats.
func (c *PlayerController) ApplyUpgrade(upgrade content.Upgrade, now time.Time) error {
	switch upgrade.Kind {
	case content.UpgradeMaxHealth:
		c.component.Apply(stats.StatChange{Layer: stats.LayerUpgrade, Stat: stats.StatMaxHealth, Add: upgrade.Amount})
		c.syncStats()
		applyHealthDelta(&c.state.Health, c.state.MaxHealth, upgrade.Amount)
	case content.UpgradeDamage:
		c.component.Apply(stats.StatChange{Layer: stats.LayerUpgrade, Stat: stats.StatAttackDamage, Add: upgrade.Amount})
		c.syncStats()
	case content.UpgradeSpeed:
		c.component.Apply(stats.StatChange{Layer: stats.LayerUpgrade, Stat: stats.StatMoveSpeed, Mul: upgrade.Factor})
		c.syncStats()
	case content.UpgradeAttackSpeed:
		c.component.Apply(stats.StatChange{Layer: stats.LayerUpgrade, Stat: stats.StatAttackSpeed, Mul: upgrade.Factor})
		c.syncStats()
	case content.UpgradeRegeneration:
		c.state.Regeneration = true
		c.state.lastRegen = now
	default:
		return fmt.Errorf("game: unknown upgrade kind %q", upgrade.Kind)
	}
	return nil
}

// MoveTo teleports the player, used on floor transitions.
func (c *PlayerController) MoveTo(x, y float64) {
	c.state.X = x
	c.state.Y = y
}

// ClearProjectiles discards every shot in flight.
func (c *PlayerController) ClearProjectiles() {
	c.projectiles = nil
}

// Position returns the player's world coordinates.
func (c *PlayerController) Position() (float64, float64) {
	return c.state.X, c.state.Y
}

// HalfExtent returns half the player's collision box.
func (c *PlayerController) HalfExtent() float64 {
	return PlayerHalfExtent
}

// Alive reports whether the player still has health.
func (c *PlayerController) Alive() bool {
	return c.alive
}

// Snapshot returns the player's wire representation.
func (c *PlayerController) Snapshot() Player {
	return c.state.Player
}

// Projectiles returns the wire representation of every shot in flight.
func (c *PlayerController) Projectiles() []Projectile {
	out := make([]Projectile, 0, len(c.projectiles))
	for _, shot := range c.projectiles {
		out = append(out, shot.Projectile)
	}
	return out
}

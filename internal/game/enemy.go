package game

import (
	"fmt"
	"math/rand"
	"time"

	"floorcrawl/content"
	"floorcrawl/internal/level"
	"floorcrawl/internal/stats"
)

// TargetQuery exposes the player as seen by the enemy roster.
type TargetQuery interface {
	Position() (float64, float64)
	HalfExtent() float64
	Alive() bool
}

// ProjectileSweeper collides player shots against enemy targets.
type ProjectileSweeper interface {
	SweepTargets(targets []EnemyTarget) []ProjectileHit
}

// EnemySinks receive combat outcomes. DamagePlayer is called for contact hits
// and bolt impacts; OnKilled fires once per enemy death, before removal.
type EnemySinks struct {
	DamagePlayer func(amount float64, sourceID string, sourceType EnemyType)
	OnKilled     func(enemy Enemy)
}

// EnemyDeps wires an EnemyController to its collaborators. Nil fields degrade
// to no-ops rather than panics.
type EnemyDeps struct {
	Level    LevelQuery
	Target   TargetQuery
	Sweeper  ProjectileSweeper
	SpawnRNG *rand.Rand
	AIRNG    *rand.Rand
	Sinks    EnemySinks
}

// EnemyController owns the enemy roster and enemy projectiles for one
// session. The roster is a slice so update order is deterministic for a
// fixed seed.
type EnemyController struct {
	deps EnemyDeps

	enemies     []*enemyState
	projectiles []projectileState
	nextEnemyID uint64
	nextBoltID  uint64
}

type enemyState struct {
	Enemy

	attackCooldown time.Duration
	lastAttack     time.Time
	patrolDirX     float64
	patrolDirY     float64
	lastPatrolRoll time.Time
	aggroRange     float64
	attackRange    float64
	retreatRange   float64
	advanceRange   float64
}

// NewEnemyController returns an empty roster bound to the given dependencies.
func NewEnemyController(deps EnemyDeps) *EnemyController {
	return &EnemyController{deps: deps}
}

// SpawnFloor replaces the roster with a fresh population for the floor. The
// count grows with depth and each enemy is a uniform pick among the regular
// archetypes, placed on a rejection-sampled walkable tile.
func (c *EnemyController) SpawnFloor(floor int, grid *level.Grid) {
	c.enemies = c.enemies[:0]
	c.projectiles = c.projectiles[:0]
	if grid == nil {
		return
	}

	pool := regularTypes()
	if len(pool) == 0 {
		return
	}
	count := stats.SpawnCount(floor)
	for i := 0; i < count; i++ {
		kind := pool[c.intn(len(pool))]
		x, y := c.randomSpawnPoint(grid)
		c.spawnAt(kind, floor, x, y)
	}
}

// SpawnBoss adds a boss at the center of the floor on top of the regular
// population.
func (c *EnemyController) SpawnBoss(floor int, grid *level.Grid) {
	if grid == nil {
		return
	}
	x, y := grid.Center()
	c.spawnAt(EnemyBoss, floor, x, y)
}

func regularTypes() []EnemyType {
	archetypes := content.Enemies()
	pool := make([]EnemyType, 0, len(archetypes))
	for _, arch := range archetypes {
		if EnemyType(arch.Type) == EnemyBoss {
			continue
		}
		pool = append(pool, EnemyType(arch.Type))
	}
	return pool
}

func (c *EnemyController) intn(n int) int {
	if c.deps.SpawnRNG == nil {
		return 0
	}
	return c.deps.SpawnRNG.Intn(n)
}

func (c *EnemyController) randomSpawnPoint(grid *level.Grid) (float64, float64) {
	if c.deps.SpawnRNG == nil {
		return grid.Center()
	}
	for attempt := 0; attempt < maxSpawnAttempts; attempt++ {
		col := c.deps.SpawnRNG.Intn(grid.Width)
		row := c.deps.SpawnRNG.Intn(grid.Height)
		tile, ok := grid.TileAt(col, row)
		if !ok || !tile.Walkable {
			continue
		}
		return level.TileCenter(col, row)
	}
	return grid.Center()
}

func (c *EnemyController) spawnAt(kind EnemyType, floor int, x, y float64) {
	arch, ok := content.EnemyByType(string(kind))
	if !ok {
		return
	}
	health := arch.Health * stats.FloorHealthMultiplier(floor)
	c.nextEnemyID++
	c.enemies = append(c.enemies, &enemyState{
		Enemy: Enemy{
			ID:        fmt.Sprintf("enemy-%d", c.nextEnemyID),
			Type:      kind,
			X:         x,
			Y:         y,
			Radius:    arch.Radius,
			Health:    health,
			MaxHealth: health,
			Damage:    arch.Damage * stats.FloorDamageMultiplier(floor),
			Speed:     arch.Speed,
			Color:     arch.Color,
			XPValue:   arch.XPValue,
		},
		attackCooldown: time.Duration(arch.AttackCooldownMS) * time.Millisecond,
		aggroRange:     arch.AggroRange,
		attackRange:    arch.AttackRange,
		retreatRange:   arch.RetreatRange,
		advanceRange:   arch.AdvanceRange,
	})
}

// Update advances every enemy and all projectiles by dt seconds: behaviors
// first, then attack resolution, then bolt flight and both collision sweeps.
func (c *EnemyController) Update(now time.Time, dt float64) {
	targetX, targetY := 0.0, 0.0
	targetAlive := false
	if c.deps.Target != nil {
		targetX, targetY = c.deps.Target.Position()
		targetAlive = c.deps.Target.Alive()
	}

	for _, enemy := range c.enemies {
		c.runBehavior(enemy, targetX, targetY, targetAlive, now, dt)
	}
	for _, enemy := range c.enemies {
		c.resolveAttack(enemy, targetX, targetY, targetAlive, now)
	}
	c.advanceProjectiles(dt)
	c.collideBoltsWithPlayer(targetX, targetY, targetAlive)
	c.applyPlayerShots()
}

func (c *EnemyController) resolveAttack(enemy *enemyState, targetX, targetY float64, targetAlive bool, now time.Time) {
	if !targetAlive {
		return
	}
	if !enemy.lastAttack.IsZero() && now.Sub(enemy.lastAttack) < enemy.attackCooldown {
		return
	}
	dist := distance(enemy.X, enemy.Y, targetX, targetY)

	switch enemy.Type {
	case EnemyMelee, EnemyFast:
		if dist >= contactAttackRange {
			return
		}
		enemy.lastAttack = now
		c.damagePlayer(enemy.Damage, enemy.ID, enemy.Type)
	case EnemyRanged:
		if dist > enemy.aggroRange {
			return
		}
		enemy.lastAttack = now
		c.fireBolt(enemy, targetX, targetY, 0)
	case EnemyBoss:
		if dist > enemy.aggroRange {
			return
		}
		enemy.lastAttack = now
		c.fireBolt(enemy, targetX, targetY, -bossSpreadRadians)
		c.fireBolt(enemy, targetX, targetY, 0)
		c.fireBolt(enemy, targetX, targetY, bossSpreadRadians)
	}
}

func (c *EnemyController) damagePlayer(amount float64, sourceID string, sourceType EnemyType) {
	if c.deps.Sinks.DamagePlayer == nil {
		return
	}
	c.deps.Sinks.DamagePlayer(amount, sourceID, sourceType)
}

func (c *EnemyController) advanceProjectiles(dt float64) {
	kept := c.projectiles[:0]
	for _, bolt := range c.projectiles {
		bolt.X += bolt.VelX * dt
		bolt.Y += bolt.VelY * dt
		bolt.RemainingMS -= dt * 1000
		if bolt.RemainingMS <= 0 {
			continue
		}
		if c.deps.Level != nil && !c.deps.Level.IsWalkable(bolt.X, bolt.Y) {
			continue
		}
		kept = append(kept, bolt)
	}
	c.projectiles = kept
}

func (c *EnemyController) collideBoltsWithPlayer(targetX, targetY float64, targetAlive bool) {
	if !targetAlive || c.deps.Target == nil {
		return
	}
	hitRadius := c.deps.Target.HalfExtent() + stats.ProjectileHitSlack
	kept := c.projectiles[:0]
	for _, bolt := range c.projectiles {
		if distance(bolt.X, bolt.Y, targetX, targetY) < hitRadius {
			c.damagePlayer(bolt.Damage, bolt.ownerID, bolt.ownerType)
			continue
		}
		kept = append(kept, bolt)
	}
	c.projectiles = kept
}

// applyPlayerShots asks the sweeper to collide player shots against the
// roster and applies the resulting damage, removing dead enemies.
func (c *EnemyController) applyPlayerShots() {
	if c.deps.Sweeper == nil {
		return
	}
	hits := c.deps.Sweeper.SweepTargets(c.Targets())
	for _, hit := range hits {
		c.applyHit(hit)
	}
}

func (c *EnemyController) applyHit(hit ProjectileHit) {
	idx := c.indexOf(hit.TargetID)
	if idx < 0 {
		return
	}
	enemy := c.enemies[idx]
	applyHealthDelta(&enemy.Health, enemy.MaxHealth, -hit.Damage)
	if enemy.Health > 0 {
		return
	}
	if c.deps.Sinks.OnKilled != nil {
		c.deps.Sinks.OnKilled(enemy.Enemy)
	}
	c.enemies = append(c.enemies[:idx], c.enemies[idx+1:]...)
}

func (c *EnemyController) indexOf(id string) int {
	for i, enemy := range c.enemies {
		if enemy.ID == id {
			return i
		}
	}
	return -1
}

// ApplyContactDamage applies body-overlap damage from melee and fast enemies:
// half their nominal damage, rate-limited through the same attack timestamp
// used by regular attacks.
func (c *EnemyController) ApplyContactDamage(now time.Time) {
	if c.deps.Target == nil || !c.deps.Target.Alive() {
		return
	}
	targetX, targetY := c.deps.Target.Position()
	half := c.deps.Target.HalfExtent()

	for _, enemy := range c.enemies {
		if enemy.Type != EnemyMelee && enemy.Type != EnemyFast {
			continue
		}
		if distance(enemy.X, enemy.Y, targetX, targetY) >= half+enemy.Radius {
			continue
		}
		if !enemy.lastAttack.IsZero() && now.Sub(enemy.lastAttack) < contactDamageInterval {
			continue
		}
		enemy.lastAttack = now
		c.damagePlayer(enemy.Damage/2, enemy.ID, enemy.Type)
	}
}

// Count returns the number of live enemies, bosses included.
func (c *EnemyController) Count() int {
	return len(c.enemies)
}

// Enemies returns the wire representation of the roster.
func (c *EnemyController) Enemies() []Enemy {
	out := make([]Enemy, 0, len(c.enemies))
	for _, enemy := range c.enemies {
		out = append(out, enemy.Enemy)
	}
	return out
}

// Targets returns the roster as projectile targets.
func (c *EnemyController) Targets() []EnemyTarget {
	out := make([]EnemyTarget, 0, len(c.enemies))
	for _, enemy := range c.enemies {
		out = append(out, EnemyTarget{ID: enemy.ID, X: enemy.X, Y: enemy.Y, Radius: enemy.Radius})
	}
	return out
}

// Projectiles returns the wire representation of every bolt in flight.
func (c *EnemyController) Projectiles() []Projectile {
	out := make([]Projectile, 0, len(c.projectiles))
	for _, bolt := range c.projectiles {
		out = append(out, bolt.Projectile)
	}
	return out
}

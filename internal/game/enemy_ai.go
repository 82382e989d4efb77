package game

import (
	"fmt"
	"math"
	"time"

	"floorcrawl/internal/stats"
)

const (
	// contactAttackRange is the strike distance for melee and fast enemies.
	contactAttackRange = 40.0
	// contactDamageInterval rate-limits body-overlap damage per enemy.
	contactDamageInterval = 500 * time.Millisecond
	// patrolInterval is how long an idle enemy keeps one patrol heading.
	patrolInterval = 3000 * time.Millisecond
	// patrolSpeedFactor slows patrol movement relative to chase speed.
	patrolSpeedFactor = 0.3
	// bossPatrolInterval re-rolls the boss drift heading while aggroed.
	bossPatrolInterval = 2000 * time.Millisecond
	// bossDriftWeight and bossChaseWeight blend the boss's drift heading
	// with the direction toward the player.
	bossDriftWeight = 0.5
	bossChaseWeight = 0.3
	// bossSpreadRadians fans the boss's triple volley.
	bossSpreadRadians = 0.3
	// rangedAdvanceFactor slows a kiting enemy while it closes distance.
	rangedAdvanceFactor = 0.5
	// maxSpawnAttempts bounds rejection sampling for spawn placement.
	maxSpawnAttempts = 50
)

// runBehavior dispatches per-type movement and sets the Attacking telegraph.
// A dead target reads as infinitely far away, so every enemy falls back to
// patrol.
func (c *EnemyController) runBehavior(enemy *enemyState, targetX, targetY float64, targetAlive bool, now time.Time, dt float64) {
	enemy.Attacking = false
	dist := math.MaxFloat64
	if targetAlive {
		dist = distance(enemy.X, enemy.Y, targetX, targetY)
	}

	switch enemy.Type {
	case EnemyMelee, EnemyFast:
		c.runChaser(enemy, targetX, targetY, dist, now, dt)
	case EnemyRanged:
		c.runSkirmisher(enemy, targetX, targetY, dist, now, dt)
	case EnemyBoss:
		c.runBoss(enemy, targetX, targetY, dist, now, dt)
	default:
		c.patrol(enemy, now, dt)
	}
}

// runChaser moves straight at the target at full speed while aggroed and
// telegraphs an attack inside the archetype's attack range.
func (c *EnemyController) runChaser(enemy *enemyState, targetX, targetY, dist float64, now time.Time, dt float64) {
	if dist > enemy.aggroRange {
		c.patrol(enemy, now, dt)
		return
	}
	dirX, dirY := normalize(targetX-enemy.X, targetY-enemy.Y)
	c.stepIfWalkable(enemy, dirX*enemy.Speed*dt, dirY*enemy.Speed*dt)
	if dist < enemy.attackRange {
		enemy.Attacking = true
	}
}

// runSkirmisher kites: retreat when the target is too close, advance at half
// speed when too far, hold inside the band.
func (c *EnemyController) runSkirmisher(enemy *enemyState, targetX, targetY, dist float64, now time.Time, dt float64) {
	if dist > enemy.aggroRange {
		c.patrol(enemy, now, dt)
		return
	}
	enemy.Attacking = true
	dirX, dirY := normalize(targetX-enemy.X, targetY-enemy.Y)
	switch {
	case dist < enemy.retreatRange:
		c.stepIfWalkable(enemy, -dirX*enemy.Speed*dt, -dirY*enemy.Speed*dt)
	case dist > enemy.advanceRange:
		c.stepIfWalkable(enemy, dirX*enemy.Speed*dt*rangedAdvanceFactor, dirY*enemy.Speed*dt*rangedAdvanceFactor)
	}
}

// runBoss drifts on a periodically re-rolled heading blended with a weak pull
// toward the target, firing telegraphed volleys the whole time.
func (c *EnemyController) runBoss(enemy *enemyState, targetX, targetY, dist float64, now time.Time, dt float64) {
	if dist > enemy.aggroRange {
		c.patrol(enemy, now, dt)
		return
	}
	enemy.Attacking = true
	c.rollPatrolHeading(enemy, now, bossPatrolInterval)
	chaseX, chaseY := normalize(targetX-enemy.X, targetY-enemy.Y)
	stepX := (enemy.patrolDirX*bossDriftWeight + chaseX*bossChaseWeight) * enemy.Speed * dt
	stepY := (enemy.patrolDirY*bossDriftWeight + chaseY*bossChaseWeight) * enemy.Speed * dt
	c.stepIfWalkable(enemy, stepX, stepY)
}

// patrol wanders on a random heading at reduced speed, re-rolling on a timer
// or immediately when the step would leave walkable ground.
func (c *EnemyController) patrol(enemy *enemyState, now time.Time, dt float64) {
	c.rollPatrolHeading(enemy, now, patrolInterval)
	stepX := enemy.patrolDirX * enemy.Speed * patrolSpeedFactor * dt
	stepY := enemy.patrolDirY * enemy.Speed * patrolSpeedFactor * dt
	if !c.stepIfWalkable(enemy, stepX, stepY) {
		c.rerollPatrolHeading(enemy, now)
	}
}

func (c *EnemyController) rollPatrolHeading(enemy *enemyState, now time.Time, interval time.Duration) {
	if !enemy.lastPatrolRoll.IsZero() && now.Sub(enemy.lastPatrolRoll) < interval {
		return
	}
	c.rerollPatrolHeading(enemy, now)
}

func (c *EnemyController) rerollPatrolHeading(enemy *enemyState, now time.Time) {
	angle := randomAngle(c.deps.AIRNG)
	enemy.patrolDirX = math.Cos(angle)
	enemy.patrolDirY = math.Sin(angle)
	enemy.lastPatrolRoll = now
}

// stepIfWalkable moves the enemy by (dx, dy) unless the destination tile is
// blocked. Enemies respect walls even though the player does not.
func (c *EnemyController) stepIfWalkable(enemy *enemyState, dx, dy float64) bool {
	nextX := enemy.X + dx
	nextY := enemy.Y + dy
	if c.deps.Level != nil && !c.deps.Level.IsWalkable(nextX, nextY) {
		return false
	}
	enemy.X = nextX
	enemy.Y = nextY
	return true
}

// fireBolt spawns an enemy projectile aimed at the target's current position,
// optionally rotated by angleOffset for spread volleys.
func (c *EnemyController) fireBolt(enemy *enemyState, targetX, targetY, angleOffset float64) {
	angle := math.Atan2(targetY-enemy.Y, targetX-enemy.X) + angleOffset
	c.nextBoltID++
	c.projectiles = append(c.projectiles, projectileState{
		Projectile: Projectile{
			ID:          fmt.Sprintf("bolt-%d", c.nextBoltID),
			X:           enemy.X,
			Y:           enemy.Y,
			VelX:        math.Cos(angle) * stats.EnemyProjectileSpeed,
			VelY:        math.Sin(angle) * stats.EnemyProjectileSpeed,
			Damage:      enemy.Damage,
			RemainingMS: stats.ProjectileLifetimeMS,
		},
		ownerID:   enemy.ID,
		ownerType: enemy.Type,
	})
}

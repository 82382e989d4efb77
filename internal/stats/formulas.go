package stats

import "time"

// Movement and combat tuning shared across the simulation.
const (
	// DiagonalFactor scales each axis when the player moves on both at once.
	DiagonalFactor = 0.707

	// PlayerProjectileSpeed is the speed of player shots in world units per second.
	PlayerProjectileSpeed = 300.0

	// EnemyProjectileSpeed is the speed of enemy bolts in world units per second.
	EnemyProjectileSpeed = 200.0

	// ProjectileLifetimeMS is how long any projectile lives before expiring.
	ProjectileLifetimeMS = 2000.0

	// ProjectileHitSlack widens hit circles so fast projectiles cannot skim
	// past a target edge between frames.
	ProjectileHitSlack = 3.0

	// RegenAmount is the health restored per regeneration interval.
	RegenAmount = 2.0

	// RegenInterval is the delay between regeneration ticks.
	RegenInterval = time.Second
)

// PlayerBase returns the starting statistics for a fresh run.
func PlayerBase() ValueSet {
	return ValueSet{
		StatMoveSpeed:    150,
		StatAttackDamage: 10,
		StatAttackSpeed:  2,
		StatMaxHealth:    100,
	}
}

// FloorHealthMultiplier scales enemy health by depth: +30% per floor past the
// first.
func FloorHealthMultiplier(floor int) float64 {
	if floor < 1 {
		floor = 1
	}
	return 1 + float64(floor-1)*0.3
}

// FloorDamageMultiplier scales enemy damage by depth: +20% per floor past the
// first.
func FloorDamageMultiplier(floor int) float64 {
	if floor < 1 {
		floor = 1
	}
	return 1 + float64(floor-1)*0.2
}

// SpawnCount returns how many regular enemies populate a floor, capped so deep
// floors stay playable.
func SpawnCount(floor int) int {
	if floor < 1 {
		floor = 1
	}
	count := 3 + floor/2
	if count > 15 {
		count = 15
	}
	return count
}

// XPThreshold returns the experience required to clear the given level.
func XPThreshold(level int) int {
	if level < 1 {
		level = 1
	}
	return level * 100
}

// AttackCooldown converts attacks-per-second into the wait between attacks.
func AttackCooldown(attackSpeed float64) time.Duration {
	if attackSpeed <= 0 {
		return time.Hour
	}
	return time.Duration(float64(time.Second) / attackSpeed)
}

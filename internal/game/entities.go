// Package game holds the authoritative simulation for one run: the player,
// the enemy roster, projectiles and the per-session state machine that ties
// them to floors. Controllers mutate state only when stepped, so a session is
// single-goroutine by construction and the hub decides the threading.
package game

import "math"

// EnemyType names the behavioral archetypes in the enemy catalog.
type EnemyType string

const (
	EnemyMelee  EnemyType = "melee"
	EnemyRanged EnemyType = "ranged"
	EnemyFast   EnemyType = "fast"
	EnemyBoss   EnemyType = "boss"
)

// PlayerID is the wire identifier of the single player in a session.
const PlayerID = "player"

// PlayerHalfExtent is half the player's square collision box, in world units.
const PlayerHalfExtent = 12.0

// Player is the wire representation of the player actor. Stats fields carry
// resolved values so clients never re-derive them.
type Player struct {
	ID           string  `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Facing       float64 `json:"facing"`
	Health       float64 `json:"health"`
	MaxHealth    float64 `json:"maxHealth"`
	XP           int     `json:"xp"`
	Level        int     `json:"level"`
	Damage       float64 `json:"damage"`
	Speed        float64 `json:"speed"`
	AttackSpeed  float64 `json:"attackSpeed"`
	Regeneration bool    `json:"regeneration"`
}

// Enemy is the wire representation of one enemy.
type Enemy struct {
	ID        string    `json:"id"`
	Type      EnemyType `json:"type"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Radius    float64   `json:"radius"`
	Health    float64   `json:"health"`
	MaxHealth float64   `json:"maxHealth"`
	Damage    float64   `json:"damage"`
	Speed     float64   `json:"speed"`
	Attacking bool      `json:"attacking"`
	Color     string    `json:"color"`
	XPValue   int       `json:"xpValue"`
}

// Projectile is the wire representation of a shot in flight. RemainingMS
// counts down to expiry.
type Projectile struct {
	ID          string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VelX        float64 `json:"velX"`
	VelY        float64 `json:"velY"`
	Damage      float64 `json:"damage"`
	RemainingMS float64 `json:"remainingMs"`
}

// GameStats summarizes run progress for the HUD and the score backend.
type GameStats struct {
	Floor          int   `json:"floor"`
	EnemiesKilled  int   `json:"enemiesKilled"`
	TimeSurvivedMS int64 `json:"timeSurvivedMs"`
}

// InputState is the player's held input for the current frame. Pointer
// coordinates are raw viewport pixels; facing resolution adds the camera
// offset.
type InputState struct {
	Up       bool
	Down     bool
	Left     bool
	Right    bool
	Attack   bool
	PointerX float64
	PointerY float64
}

// LevelQuery answers walkability questions for the current floor.
type LevelQuery interface {
	IsWalkable(worldX, worldY float64) bool
}

// CameraQuery exposes the camera's world-space offset as of the previous
// frame, for converting pointer coordinates to world coordinates.
type CameraQuery interface {
	Offset() (float64, float64)
}

// EnemyTarget describes one enemy as a projectile target.
type EnemyTarget struct {
	ID     string
	X      float64
	Y      float64
	Radius float64
}

// ProjectileHit reports a projectile consumed against a target.
type ProjectileHit struct {
	ProjectileID string
	TargetID     string
	Damage       float64
}

type projectileState struct {
	Projectile

	ownerID   string
	ownerType EnemyType
}

// applyHealthDelta clamps health into [0, max] and reports whether the value
// changed.
func applyHealthDelta(health *float64, max, delta float64) bool {
	next := *health + delta
	if next < 0 {
		next = 0
	}
	if next > max {
		next = max
	}
	if next == *health {
		return false
	}
	*health = next
	return true
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Hypot(dx, dy)
}

// normalize returns the unit vector for (dx, dy), or zero when the input has
// no length.
func normalize(dx, dy float64) (float64, float64) {
	length := math.Hypot(dx, dy)
	if length == 0 {
		return 0, 0
	}
	return dx / length, dy / length
}

package game

import (
	"hash/fnv"
	"math"
	"math/rand"
)

// DefaultSeed is used when a session is created without an explicit seed.
const DefaultSeed = "floorcrawl"

// RNG stream labels. Each subsystem draws from its own stream so that, for
// example, extra patrol rolls never perturb level generation.
const (
	seedLabelLevel      = "level"
	seedLabelEnemySpawn = "enemies.spawn"
	seedLabelEnemyAI    = "enemies.ai"
	seedLabelUpgrades   = "upgrades"
)

// DeterministicSeedValue derives a stable 64-bit seed from a root seed string
// and a subsystem label.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG returns a generator seeded for one subsystem stream.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	seedValue := DeterministicSeedValue(rootSeed, label)
	return rand.New(rand.NewSource(seedValue))
}

func randomAngle(rng *rand.Rand) float64 {
	if rng == nil {
		return 0
	}
	return rng.Float64() * 2 * math.Pi
}

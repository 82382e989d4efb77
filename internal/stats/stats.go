// Package stats resolves derived actor statistics from layered modifiers.
//
// Base values describe an actor archetype; upgrade modifiers stack on top of
// them. Resolution folds additive contributions first and multiplicative
// contributions second, so the order of Apply calls never changes the result.
package stats

import "fmt"

// StatID enumerates the derived statistics tracked per actor.
type StatID uint8

const (
	StatMoveSpeed StatID = iota
	StatAttackDamage
	StatAttackSpeed
	StatMaxHealth

	// StatCount bounds dense per-stat arrays.
	StatCount
)

// String returns the canonical lowercase name for the stat.
func (id StatID) String() string {
	switch id {
	case StatMoveSpeed:
		return "move_speed"
	case StatAttackDamage:
		return "attack_damage"
	case StatAttackSpeed:
		return "attack_speed"
	case StatMaxHealth:
		return "max_health"
	default:
		return fmt.Sprintf("stat(%d)", uint8(id))
	}
}

// Layer identifies where a modifier originates. Later layers fold on top of
// earlier ones.
type Layer uint8

const (
	LayerBase Layer = iota
	LayerUpgrade

	layerCount
)

// ValueSet is a dense block of per-stat values indexed by StatID.
type ValueSet [StatCount]float64

// StatChange adjusts a single stat within one layer. Add contributes to the
// additive pool; Mul scales the folded total. A zero Mul is treated as the
// identity so callers can leave it unset.
type StatChange struct {
	Layer Layer
	Stat  StatID
	Add   float64
	Mul   float64
}

// Component accumulates modifiers and resolves them into final values.
type Component struct {
	adds  [layerCount]ValueSet
	mults [layerCount]ValueSet
	final ValueSet
	dirty bool
}

// NewComponent seeds a component with base-layer values and resolves it.
func NewComponent(base ValueSet) Component {
	c := Component{}
	for layer := Layer(0); layer < layerCount; layer++ {
		for id := StatID(0); id < StatCount; id++ {
			c.mults[layer][id] = 1
		}
	}
	c.adds[LayerBase] = base
	c.dirty = true
	c.Resolve()
	return c
}

// Apply records a modifier. The change takes effect on the next Resolve.
func (c *Component) Apply(change StatChange) {
	if change.Layer >= layerCount || change.Stat >= StatCount {
		return
	}
	c.adds[change.Layer][change.Stat] += change.Add
	if change.Mul != 0 {
		c.mults[change.Layer][change.Stat] *= change.Mul
	}
	c.dirty = true
}

// Resolve folds all layers into final values: additive contributions sum
// across layers, then multiplicative contributions scale the sum.
func (c *Component) Resolve() {
	if !c.dirty {
		return
	}
	for id := StatID(0); id < StatCount; id++ {
		total := 0.0
		scale := 1.0
		for layer := Layer(0); layer < layerCount; layer++ {
			total += c.adds[layer][id]
			scale *= c.mults[layer][id]
		}
		c.final[id] = total * scale
	}
	c.dirty = false
}

// Value returns the most recently resolved value for the stat.
func (c *Component) Value(id StatID) float64 {
	if id >= StatCount {
		return 0
	}
	return c.final[id]
}

// Values returns a copy of every resolved value.
func (c *Component) Values() ValueSet {
	return c.final
}

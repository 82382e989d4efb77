// Package content bundles the designer-authored catalogs that tune the game:
// enemy archetypes and level-up upgrades. The JSON files under data/ are
// embedded at build time and validated once during package init, so a broken
// catalog fails the server at startup instead of mid-run.
package content

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed data/*.json
var embeddedData embed.FS

// DefaultCatalog holds the catalogs bundled with the server.
var DefaultCatalog = MustLoadCatalog()

// EnemyArchetype is the designer-facing description of one enemy type. Health
// and damage are floor-1 values; the simulation scales them by depth.
type EnemyArchetype struct {
	Type             string  `json:"type"`
	Health           float64 `json:"health"`
	Damage           float64 `json:"damage"`
	Speed            float64 `json:"speed"`
	AttackCooldownMS int     `json:"attackCooldownMs"`
	Radius           float64 `json:"radius"`
	XPValue          int     `json:"xpValue"`
	Color            string  `json:"color"`
	AggroRange       float64 `json:"aggroRange"`
	AttackRange      float64 `json:"attackRange,omitempty"`
	RetreatRange     float64 `json:"retreatRange,omitempty"`
	AdvanceRange     float64 `json:"advanceRange,omitempty"`
}

// EnemyFile is the on-disk shape of data/enemies.json.
type EnemyFile []EnemyArchetype

// UpgradeKind selects which player statistic an upgrade touches.
type UpgradeKind string

const (
	UpgradeMaxHealth    UpgradeKind = "max_health"
	UpgradeDamage       UpgradeKind = "damage"
	UpgradeSpeed        UpgradeKind = "speed"
	UpgradeAttackSpeed  UpgradeKind = "attack_speed"
	UpgradeRegeneration UpgradeKind = "regeneration"
)

// Upgrade is one entry in the level-up choice pool. Amount applies to
// additive kinds, Factor to multiplicative ones; regeneration uses neither.
type Upgrade struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Kind        UpgradeKind `json:"kind"`
	Amount      float64     `json:"amount,omitempty"`
	Factor      float64     `json:"factor,omitempty"`
}

// UpgradeFile is the on-disk shape of data/upgrades.json.
type UpgradeFile []Upgrade

// Catalog indexes the loaded catalogs for runtime lookups.
type Catalog struct {
	enemies       []EnemyArchetype
	enemiesByType map[string]EnemyArchetype
	upgrades      []Upgrade
	upgradesByID  map[string]Upgrade
}

// MustLoadCatalog loads and validates the embedded catalogs, panicking on any
// error. It runs during package init.
func MustLoadCatalog() *Catalog {
	catalog, err := loadCatalog()
	if err != nil {
		panic(fmt.Sprintf("content: %v", err))
	}
	return catalog
}

func loadCatalog() (*Catalog, error) {
	var enemies EnemyFile
	if err := readJSON("data/enemies.json", &enemies); err != nil {
		return nil, err
	}
	var upgrades UpgradeFile
	if err := readJSON("data/upgrades.json", &upgrades); err != nil {
		return nil, err
	}

	catalog := &Catalog{
		enemies:       enemies,
		enemiesByType: make(map[string]EnemyArchetype, len(enemies)),
		upgrades:      upgrades,
		upgradesByID:  make(map[string]Upgrade, len(upgrades)),
	}

	for _, arch := range enemies {
		if err := validateArchetype(arch); err != nil {
			return nil, err
		}
		if _, dup := catalog.enemiesByType[arch.Type]; dup {
			return nil, fmt.Errorf("enemies.json: duplicate type %q", arch.Type)
		}
		catalog.enemiesByType[arch.Type] = arch
	}
	if len(catalog.enemies) == 0 {
		return nil, fmt.Errorf("enemies.json: catalog is empty")
	}

	for _, upgrade := range upgrades {
		if err := validateUpgrade(upgrade); err != nil {
			return nil, err
		}
		if _, dup := catalog.upgradesByID[upgrade.ID]; dup {
			return nil, fmt.Errorf("upgrades.json: duplicate id %q", upgrade.ID)
		}
		catalog.upgradesByID[upgrade.ID] = upgrade
	}
	if len(catalog.upgrades) == 0 {
		return nil, fmt.Errorf("upgrades.json: catalog is empty")
	}

	return catalog, nil
}

func readJSON(path string, out any) error {
	data, err := embeddedData.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func validateArchetype(arch EnemyArchetype) error {
	if arch.Type == "" {
		return fmt.Errorf("enemies.json: entry missing type")
	}
	if arch.Health <= 0 || arch.Damage <= 0 || arch.Speed <= 0 {
		return fmt.Errorf("enemies.json: %s: health, damage and speed must be positive", arch.Type)
	}
	if arch.AttackCooldownMS <= 0 {
		return fmt.Errorf("enemies.json: %s: attackCooldownMs must be positive", arch.Type)
	}
	if arch.Radius <= 0 {
		return fmt.Errorf("enemies.json: %s: radius must be positive", arch.Type)
	}
	if arch.XPValue <= 0 {
		return fmt.Errorf("enemies.json: %s: xpValue must be positive", arch.Type)
	}
	if arch.AggroRange <= 0 {
		return fmt.Errorf("enemies.json: %s: aggroRange must be positive", arch.Type)
	}
	if arch.Color == "" {
		return fmt.Errorf("enemies.json: %s: color is required", arch.Type)
	}
	return nil
}

func validateUpgrade(upgrade Upgrade) error {
	if upgrade.ID == "" {
		return fmt.Errorf("upgrades.json: entry missing id")
	}
	if upgrade.Name == "" {
		return fmt.Errorf("upgrades.json: %s: name is required", upgrade.ID)
	}
	switch upgrade.Kind {
	case UpgradeMaxHealth, UpgradeDamage:
		if upgrade.Amount <= 0 {
			return fmt.Errorf("upgrades.json: %s: amount must be positive", upgrade.ID)
		}
	case UpgradeSpeed, UpgradeAttackSpeed:
		if upgrade.Factor <= 1 {
			return fmt.Errorf("upgrades.json: %s: factor must exceed 1", upgrade.ID)
		}
	case UpgradeRegeneration:
	default:
		return fmt.Errorf("upgrades.json: %s: unknown kind %q", upgrade.ID, upgrade.Kind)
	}
	return nil
}

// Enemies returns a copy of every enemy archetype in catalog order.
func (c *Catalog) Enemies() []EnemyArchetype {
	out := make([]EnemyArchetype, len(c.enemies))
	copy(out, c.enemies)
	return out
}

// EnemyByType looks up one archetype by its type name.
func (c *Catalog) EnemyByType(kind string) (EnemyArchetype, bool) {
	arch, ok := c.enemiesByType[kind]
	return arch, ok
}

// Upgrades returns a copy of the upgrade pool in catalog order.
func (c *Catalog) Upgrades() []Upgrade {
	out := make([]Upgrade, len(c.upgrades))
	copy(out, c.upgrades)
	return out
}

// UpgradeByID looks up one upgrade by id.
func (c *Catalog) UpgradeByID(id string) (Upgrade, bool) {
	upgrade, ok := c.upgradesByID[id]
	return upgrade, ok
}

// Enemies returns the bundled enemy archetypes.
func Enemies() []EnemyArchetype { return DefaultCatalog.Enemies() }

// EnemyByType looks up a bundled archetype by type name.
func EnemyByType(kind string) (EnemyArchetype, bool) { return DefaultCatalog.EnemyByType(kind) }

// Upgrades returns the bundled upgrade pool.
func Upgrades() []Upgrade { return DefaultCatalog.Upgrades() }

// UpgradeByID looks up a bundled upgrade by id.
func UpgradeByID(id string) (Upgrade, bool) { return DefaultCatalog.UpgradeByID(id) }

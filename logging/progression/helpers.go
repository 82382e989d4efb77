package progression

import (
	"context"

	"floorcrawl/logging"
)

const (
	// EventFloorAdvanced is emitted when the player clears a floor and descends.
	EventFloorAdvanced logging.EventType = "progression.floor_advanced"
	// EventLevelUp is emitted when accumulated XP crosses the level threshold.
	EventLevelUp logging.EventType = "progression.level_up"
	// EventUpgradeChosen is emitted when the player picks a level-up upgrade.
	EventUpgradeChosen logging.EventType = "progression.upgrade_chosen"
	// EventXPGained is emitted when the player earns experience.
	EventXPGained logging.EventType = "progression.xp_gained"
)

// FloorAdvancedPayload records the floor transition details.
type FloorAdvancedPayload struct {
	Floor      int  `json:"floor"`
	BossFloor  bool `json:"bossFloor"`
	EnemyCount int  `json:"enemyCount"`
}

// LevelUpPayload records the new level and the options offered.
type LevelUpPayload struct {
	Level   int      `json:"level"`
	Options []string `json:"options"`
}

// UpgradeChosenPayload records the applied upgrade.
type UpgradeChosenPayload struct {
	UpgradeID string `json:"upgradeId"`
	Level     int    `json:"level"`
}

// XPGainedPayload records an experience award.
type XPGainedPayload struct {
	Amount int `json:"amount"`
	Total  int `json:"total"`
	Level  int `json:"level"`
}

// FloorAdvanced publishes a floor transition event.
func FloorAdvanced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FloorAdvancedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventFloorAdvanced,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// LevelUp publishes a level-up event.
func LevelUp(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload LevelUpPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventLevelUp,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// UpgradeChosen publishes an upgrade selection event.
func UpgradeChosen(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload UpgradeChosenPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventUpgradeChosen,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// XPGained publishes an experience award event at debug severity.
func XPGained(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload XPGainedPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventXPGained,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

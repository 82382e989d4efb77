package game

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"floorcrawl/content"
	"floorcrawl/internal/level"
	"floorcrawl/internal/score"
	"floorcrawl/logging"
	combatlog "floorcrawl/logging/combat"
	lifecyclelog "floorcrawl/logging/lifecycle"
	progressionlog "floorcrawl/logging/progression"
	simulationlog "floorcrawl/logging/simulation"
)

// State is the session's phase. Simulation only advances while PLAYING.
type State string

const (
	StateMenu     State = "MENU"
	StatePlaying  State = "PLAYING"
	StateLevelUp  State = "LEVEL_UP"
	StateGameOver State = "GAME_OVER"
)

// upgradeOfferCount is how many upgrades a level-up presents.
const upgradeOfferCount = 3

// anonymousName substitutes for a blank player name on score submission.
const anonymousName = "anonymous"

var (
	// ErrBadState rejects an action that is not legal in the current state.
	ErrBadState = errors.New("game: action not allowed in current state")
	// ErrUnknownUpgrade rejects an upgrade id outside the offered set.
	ErrUnknownUpgrade = errors.New("game: unknown upgrade")
)

// Config describes a new session. Zero values fall back to defaults.
type Config struct {
	ID        string
	Seed      string
	ViewportW float64
	ViewportH float64
	Generator level.GeneratorConfig
	Publisher logging.Publisher

	// OnStatsChanged fires when the floor or kill count changes.
	OnStatsChanged func(GameStats)
}

func (cfg Config) normalized() Config {
	if cfg.Seed == "" {
		cfg.Seed = DefaultSeed
	}
	if cfg.ViewportW <= 0 {
		cfg.ViewportW = 800
	}
	if cfg.ViewportH <= 0 {
		cfg.ViewportH = 600
	}
	cfg.Generator = cfg.Generator.Normalized()
	return cfg
}

// Session is the authoritative simulation for one client: the current floor,
// the player, the enemy roster and the run state machine. Sessions are not
// safe for concurrent use; the hub serializes access.
type Session struct {
	id        string
	seed      string
	state     State
	floor     int
	runID     string
	genCfg    level.GeneratorConfig
	grid      *level.Grid
	player    *PlayerController
	enemies   *EnemyController
	publisher logging.Publisher
	onStats   func(GameStats)

	levelRNG   *rand.Rand
	upgradeRNG *rand.Rand

	cameraX   float64
	cameraY   float64
	viewportW float64
	viewportH float64

	enemiesKilled   int
	runStartedAt    time.Time
	timeSurvivedMS  int64
	lastStats       GameStats
	pendingUpgrades []content.Upgrade
	pendingEvents   []score.Event
	lastDamageType  EnemyType

	tick uint64
	now  time.Time
}

// NewSession builds a session in the MENU state. Each random subsystem draws
// from its own stream derived from the seed, so replays are stable.
func NewSession(cfg Config) *Session {
	cfg = cfg.normalized()
	s := &Session{
		id:         cfg.ID,
		seed:       cfg.Seed,
		state:      StateMenu,
		genCfg:     cfg.Generator,
		publisher:  cfg.Publisher,
		onStats:    cfg.OnStatsChanged,
		levelRNG:   NewDeterministicRNG(cfg.Seed, seedLabelLevel),
		upgradeRNG: NewDeterministicRNG(cfg.Seed, seedLabelUpgrades),
		viewportW:  cfg.ViewportW,
		viewportH:  cfg.ViewportH,
	}
	s.player = NewPlayerController(s, s, PlayerHooks{
		OnDeath:   s.handlePlayerDeath,
		OnLevelUp: s.handleLevelUp,
	})
	s.enemies = NewEnemyController(EnemyDeps{
		Level:    s,
		Target:   s.player,
		Sweeper:  s.player,
		SpawnRNG: NewDeterministicRNG(cfg.Seed, seedLabelEnemySpawn),
		AIRNG:    NewDeterministicRNG(cfg.Seed, seedLabelEnemyAI),
		Sinks: EnemySinks{
			DamagePlayer: s.handlePlayerDamage,
			OnKilled:     s.handleEnemyKilled,
		},
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Seed returns the root seed the session was created with.
func (s *Session) Seed() string { return s.seed }

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Floor returns the current depth, zero while in the menu.
func (s *Session) Floor() int { return s.floor }

// RunID identifies the current (or most recent) run.
func (s *Session) RunID() string { return s.runID }

// IsWalkable reports whether the current floor is walkable at the given
// world position. With no floor generated yet, nothing blocks.
func (s *Session) IsWalkable(worldX, worldY float64) bool {
	if s.grid == nil {
		return true
	}
	return s.grid.IsWalkable(worldX, worldY)
}

// Offset returns the camera's world-space offset as of the last frame.
func (s *Session) Offset() (float64, float64) {
	return s.cameraX, s.cameraY
}

// Start begins a run from the menu. The timestamp anchors survived-time
// accounting, since actions land between simulation frames.
func (s *Session) Start(now time.Time) error {
	if s.state != StateMenu {
		return ErrBadState
	}
	s.beginRun(now)
	return nil
}

// Restart begins a fresh run after a game over.
func (s *Session) Restart(now time.Time) error {
	if s.state != StateGameOver {
		return ErrBadState
	}
	s.beginRun(now)
	return nil
}

// ReturnToMenu leaves the game-over screen.
func (s *Session) ReturnToMenu() error {
	if s.state != StateGameOver {
		return ErrBadState
	}
	s.state = StateMenu
	return nil
}

func (s *Session) beginRun(now time.Time) {
	if now.After(s.now) {
		s.now = now
	}
	s.floor = 1
	s.runID = uuid.NewString()
	s.enemiesKilled = 0
	s.runStartedAt = now
	s.timeSurvivedMS = 0
	s.lastStats = GameStats{}
	s.pendingUpgrades = nil
	s.lastDamageType = ""

	s.generateFloor()
	spawnX, spawnY := s.spawnPoint()
	s.player.Reset(spawnX, spawnY)
	s.updateCamera()
	s.state = StatePlaying

	lifecyclelog.RunStarted(context.Background(), s.publisher, s.tick, s.sessionRef(), s.runID,
		lifecyclelog.RunStartedPayload{Seed: s.seed, Floor: s.floor})
	s.queueEvent(score.EventGameStarted, map[string]any{"seed": s.seed})
	s.publishStats(now)
}

// generateFloor replaces the grid and repopulates enemies for the current
// floor, adding a boss on every fifth floor.
func (s *Session) generateFloor() {
	s.grid = level.Generate(s.genCfg, s.levelRNG)
	s.enemies.SpawnFloor(s.floor, s.grid)
	if s.isBossFloor() {
		s.enemies.SpawnBoss(s.floor, s.grid)
	}
}

func (s *Session) isBossFloor() bool {
	return s.floor > 0 && s.floor%5 == 0
}

func (s *Session) spawnPoint() (float64, float64) {
	if x, y, ok := s.grid.EntranceCenter(); ok {
		return x, y
	}
	return s.grid.Center()
}

// SetInput replaces the player's held input.
func (s *Session) SetInput(input InputState) {
	s.player.SetInput(input)
}

// SetViewport updates the client's viewport dimensions used for camera
// centering. Non-positive dimensions are ignored.
func (s *Session) SetViewport(width, height float64) {
	if width > 0 {
		s.viewportW = width
	}
	if height > 0 {
		s.viewportH = height
	}
}

// Step advances the simulation one frame. Outside PLAYING it only records
// the tick clock, which keeps menu and pause screens cheap.
func (s *Session) Step(tick uint64, now time.Time, dt float64) {
	s.tick = tick
	s.now = now
	if s.state != StatePlaying || dt <= 0 {
		return
	}

	s.player.Update(now, dt)
	s.enemies.Update(now, dt)
	s.updateCamera()
	if s.state == StatePlaying {
		s.checkWallOverlap()
		s.enemies.ApplyContactDamage(now)
	}
	if s.state == StatePlaying {
		s.checkFloorProgression()
	}
	s.publishStats(now)
}

func (s *Session) updateCamera() {
	x, y := s.player.Position()
	s.cameraX = x - s.viewportW/2
	s.cameraY = y - s.viewportH/2
}

// checkWallOverlap traces frames where the player's center sits inside a
// wall. Movement is deliberately not clamped, so this stays a trace.
func (s *Session) checkWallOverlap() {
	x, y := s.player.Position()
	if s.grid == nil || s.grid.IsWalkable(x, y) {
		return
	}
	simulationlog.WallOverlap(context.Background(), s.publisher, s.tick, s.playerRef(),
		simulationlog.WallOverlapPayload{X: x, Y: y})
}

// checkFloorProgression descends when the floor is cleared and the player
// stands on the exit tile.
func (s *Session) checkFloorProgression() {
	if s.enemies.Count() > 0 {
		return
	}
	x, y := s.player.Position()
	if s.grid == nil || s.grid.KindAt(x, y) != level.TileExit {
		return
	}
	s.advanceFloor()
}

func (s *Session) advanceFloor() {
	s.floor++
	s.generateFloor()
	s.player.ClearProjectiles()
	spawnX, spawnY := s.spawnPoint()
	s.player.MoveTo(spawnX, spawnY)
	s.updateCamera()

	progressionlog.FloorAdvanced(context.Background(), s.publisher, s.tick, s.playerRef(),
		progressionlog.FloorAdvancedPayload{
			Floor:      s.floor,
			BossFloor:  s.isBossFloor(),
			EnemyCount: s.enemies.Count(),
		})
	s.queueEvent(score.EventFloorReached, map[string]any{
		"floor":     s.floor,
		"bossFloor": s.isBossFloor(),
	})
}

func (s *Session) handlePlayerDamage(amount float64, sourceID string, sourceType EnemyType) {
	s.lastDamageType = sourceType
	s.player.TakeDamage(amount)
	combatlog.Damage(context.Background(), s.publisher, s.tick,
		logging.EntityRef{ID: sourceID, Kind: logging.EntityKindEnemy},
		s.playerRef(),
		combatlog.DamagePayload{
			Source:       string(sourceType),
			Amount:       amount,
			TargetHealth: s.player.Snapshot().Health,
		})
}

func (s *Session) handleEnemyKilled(enemy Enemy) {
	s.enemiesKilled++
	combatlog.EnemyDefeated(context.Background(), s.publisher, s.tick,
		logging.EntityRef{ID: enemy.ID, Kind: logging.EntityKindEnemy},
		combatlog.EnemyDefeatedPayload{
			EnemyType: string(enemy.Type),
			XPAwarded: enemy.XPValue,
			Floor:     s.floor,
		})
	s.player.GainXP(enemy.XPValue)
	snapshot := s.player.Snapshot()
	progressionlog.XPGained(context.Background(), s.publisher, s.tick, s.playerRef(),
		progressionlog.XPGainedPayload{Amount: enemy.XPValue, Total: snapshot.XP, Level: snapshot.Level})
}

func (s *Session) handleLevelUp() {
	s.state = StateLevelUp
	s.pendingUpgrades = s.drawUpgradeOffers()

	options := make([]string, 0, len(s.pendingUpgrades))
	for _, upgrade := range s.pendingUpgrades {
		options = append(options, upgrade.ID)
	}
	newLevel := s.player.Snapshot().Level
	progressionlog.LevelUp(context.Background(), s.publisher, s.tick, s.playerRef(),
		progressionlog.LevelUpPayload{Level: newLevel, Options: options})
	s.queueEvent(score.EventLevelUp, map[string]any{"level": newLevel, "options": options})
}

func (s *Session) drawUpgradeOffers() []content.Upgrade {
	pool := content.Upgrades()
	if s.upgradeRNG != nil {
		s.upgradeRNG.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
	}
	if len(pool) > upgradeOfferCount {
		pool = pool[:upgradeOfferCount]
	}
	return pool
}

// ChooseUpgrade applies one of the offered upgrades and resumes play.
func (s *Session) ChooseUpgrade(upgradeID string) error {
	if s.state != StateLevelUp {
		return ErrBadState
	}
	for _, upgrade := range s.pendingUpgrades {
		if upgrade.ID != upgradeID {
			continue
		}
		if err := s.player.ApplyUpgrade(upgrade, s.now); err != nil {
			return err
		}
		s.pendingUpgrades = nil
		s.state = StatePlaying
		progressionlog.UpgradeChosen(context.Background(), s.publisher, s.tick, s.playerRef(),
			progressionlog.UpgradeChosenPayload{UpgradeID: upgradeID, Level: s.player.Snapshot().Level})
		return nil
	}
	return ErrUnknownUpgrade
}

func (s *Session) handlePlayerDeath() {
	s.timeSurvivedMS = s.survivedSince(s.now)
	s.state = StateGameOver

	combatlog.PlayerDefeated(context.Background(), s.publisher, s.tick, s.playerRef(),
		combatlog.PlayerDefeatedPayload{
			Floor:          s.floor,
			EnemiesKilled:  s.enemiesKilled,
			TimeSurvivedMS: s.timeSurvivedMS,
			KilledBy:       string(s.lastDamageType),
		})
	lifecyclelog.RunEnded(context.Background(), s.publisher, s.tick, s.sessionRef(), s.runID,
		lifecyclelog.RunEndedPayload{
			Floor:          s.floor,
			EnemiesKilled:  s.enemiesKilled,
			TimeSurvivedMS: s.timeSurvivedMS,
		})

	tally := map[string]any{
		"floor":          s.floor,
		"enemiesKilled":  s.enemiesKilled,
		"timeSurvivedMs": s.timeSurvivedMS,
	}
	death := map[string]any{
		"floor":          s.floor,
		"enemiesKilled":  s.enemiesKilled,
		"timeSurvivedMs": s.timeSurvivedMS,
	}
	if s.lastDamageType != "" {
		death["killedBy"] = string(s.lastDamageType)
	}
	s.queueEvent(score.EventPlayerDeath, death)
	s.queueEvent(score.EventGameCompleted, tally)
}

func (s *Session) survivedSince(now time.Time) int64 {
	if s.runStartedAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(s.runStartedAt).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// BuildResult assembles the score submission for the finished run.
func (s *Session) BuildResult(playerName string) (score.Result, error) {
	if s.state != StateGameOver {
		return score.Result{}, ErrBadState
	}
	name := strings.TrimSpace(playerName)
	if name == "" {
		name = anonymousName
	}
	return score.Result{
		RunID:          s.runID,
		PlayerName:     name,
		Floor:          s.floor,
		EnemiesKilled:  s.enemiesKilled,
		TimeSurvivedMS: s.timeSurvivedMS,
	}, nil
}

// Stats returns the current run tallies. Survived time keeps counting on the
// wall clock until death, then freezes.
func (s *Session) Stats(now time.Time) GameStats {
	survived := s.timeSurvivedMS
	if s.state == StatePlaying || s.state == StateLevelUp {
		survived = s.survivedSince(now)
	}
	return GameStats{
		Floor:          s.floor,
		EnemiesKilled:  s.enemiesKilled,
		TimeSurvivedMS: survived,
	}
}

func (s *Session) publishStats(now time.Time) {
	next := s.Stats(now)
	changed := next.Floor != s.lastStats.Floor || next.EnemiesKilled != s.lastStats.EnemiesKilled
	s.lastStats = next
	if changed && s.onStats != nil {
		s.onStats(next)
	}
}

func (s *Session) queueEvent(eventType score.EventType, data map[string]any) {
	s.pendingEvents = append(s.pendingEvents, score.Event{
		RunID: s.runID,
		Type:  eventType,
		Data:  data,
	})
}

// DrainEvents returns and clears the milestone events queued since the last
// drain. The hub forwards them to the score backend.
func (s *Session) DrainEvents() []score.Event {
	if len(s.pendingEvents) == 0 {
		return nil
	}
	events := s.pendingEvents
	s.pendingEvents = nil
	return events
}

// Snapshot is the full per-tick wire state for one session.
type Snapshot struct {
	State             State             `json:"state"`
	Floor             int               `json:"floor"`
	Player            Player            `json:"player"`
	Enemies           []Enemy           `json:"enemies"`
	PlayerProjectiles []Projectile      `json:"playerProjectiles"`
	EnemyProjectiles  []Projectile      `json:"enemyProjectiles"`
	CameraX           float64           `json:"cameraX"`
	CameraY           float64           `json:"cameraY"`
	Stats             GameStats         `json:"stats"`
	UpgradeOptions    []content.Upgrade `json:"upgradeOptions,omitempty"`
}

// Snapshot captures the session for broadcast.
func (s *Session) Snapshot(now time.Time) Snapshot {
	snapshot := Snapshot{
		State:             s.state,
		Floor:             s.floor,
		Player:            s.player.Snapshot(),
		Enemies:           s.enemies.Enemies(),
		PlayerProjectiles: s.player.Projectiles(),
		EnemyProjectiles:  s.enemies.Projectiles(),
		CameraX:           s.cameraX,
		CameraY:           s.cameraY,
		Stats:             s.Stats(now),
	}
	if s.state == StateLevelUp && len(s.pendingUpgrades) > 0 {
		snapshot.UpgradeOptions = append([]content.Upgrade(nil), s.pendingUpgrades...)
	}
	return snapshot
}

// LevelSnapshot returns the current floor's wire form, if one exists.
func (s *Session) LevelSnapshot() (level.GridSnapshot, bool) {
	if s.grid == nil {
		return level.GridSnapshot{}, false
	}
	return s.grid.Snapshot(), true
}

func (s *Session) playerRef() logging.EntityRef {
	return logging.EntityRef{ID: PlayerID, Kind: logging.EntityKindPlayer}
}

func (s *Session) sessionRef() logging.EntityRef {
	return logging.EntityRef{ID: s.id, Kind: logging.EntityKindSession}
}

// Package hub owns the live sessions. It allocates them on join, stages
// client commands into the engine loop, steps every session on the fixed
// tick and fans state snapshots out to subscribers.
package hub

import (
	"context"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"floorcrawl/internal/engine"
	"floorcrawl/internal/game"
	"floorcrawl/internal/level"
	"floorcrawl/internal/net/proto"
	"floorcrawl/internal/score"
	"floorcrawl/internal/telemetry"
	"floorcrawl/logging"
	lifecyclelog "floorcrawl/logging/lifecycle"
	networklog "floorcrawl/logging/network"
)

const (
	// HeartbeatInterval is how often clients are expected to ping.
	HeartbeatInterval = 2 * time.Second
	// heartbeatSkew tolerates client clocks running slightly ahead of the
	// server; echoes further ahead than this produce garbage RTT estimates.
	heartbeatSkew = 5 * time.Second
	// scoreSubmitTimeout bounds backend calls made off the tick loop.
	scoreSubmitTimeout = 5 * time.Second
)

// Reject reasons reported to clients when a command cannot be staged. The
// queue reasons are re-exported so the transport layer only imports hub.
const (
	CommandRejectUnknownSession = "unknown_session"
	CommandRejectInvalidAction  = "invalid_action"
	CommandRejectQueueLimit     = engine.CommandRejectQueueLimit
	CommandRejectQueueFull      = engine.CommandRejectQueueFull
)

// Config tunes a hub. Zero values fall back to DefaultConfig.
type Config struct {
	// Seed pins every session to one world seed; empty rolls a fresh seed
	// per session.
	Seed             string
	TickRate         int
	CatchupMaxTicks  int
	CommandCapacity  int
	PerSessionLimit  int
	QueueWarningStep int
	ViewportW        float64
	ViewportH        float64
	Generator        level.GeneratorConfig
	DisconnectAfter  time.Duration
	WriteTimeout     time.Duration

	Logger    telemetry.Logger
	Counters  *telemetry.Counters
	Publisher logging.Publisher
	Reporter  score.Reporter
	Clock     logging.Clock
}

// DefaultConfig mirrors the production tuning.
func DefaultConfig() Config {
	return Config{
		TickRate:         30,
		CatchupMaxTicks:  4,
		CommandCapacity:  256,
		PerSessionLimit:  8,
		QueueWarningStep: 64,
		ViewportW:        800,
		ViewportH:        600,
		Generator:        level.DefaultGeneratorConfig(),
		DisconnectAfter:  3 * HeartbeatInterval,
		WriteTimeout:     10 * time.Second,
	}
}

func (cfg Config) normalized() Config {
	def := DefaultConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.CatchupMaxTicks <= 0 {
		cfg.CatchupMaxTicks = def.CatchupMaxTicks
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = def.CommandCapacity
	}
	if cfg.PerSessionLimit <= 0 {
		cfg.PerSessionLimit = def.PerSessionLimit
	}
	if cfg.QueueWarningStep <= 0 {
		cfg.QueueWarningStep = def.QueueWarningStep
	}
	if cfg.ViewportW <= 0 {
		cfg.ViewportW = def.ViewportW
	}
	if cfg.ViewportH <= 0 {
		cfg.ViewportH = def.ViewportH
	}
	cfg.Generator = cfg.Generator.Normalized()
	if cfg.DisconnectAfter <= 0 {
		cfg.DisconnectAfter = def.DisconnectAfter
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.WrapLogger(log.Default())
	}
	if cfg.Counters == nil {
		cfg.Counters = telemetry.NewCounters()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = score.NopReporter()
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
	}
	return cfg
}

// Hub multiplexes every live session over one engine loop. Session and
// subscriber maps are guarded by mu: the loop's Apply and Step callbacks run
// on the tick goroutine while Join, Subscribe and the enqueue helpers run on
// transport goroutines.
type Hub struct {
	cfg       Config
	logger    telemetry.Logger
	counters  *telemetry.Counters
	publisher logging.Publisher
	reporter  score.Reporter
	clock     logging.Clock

	loop *engine.Loop
	tick atomic.Uint64

	mu          sync.Mutex
	sessions    map[string]*sessionEntry
	subscribers map[string]*Subscriber
}

type sessionEntry struct {
	session       *game.Session
	remoteAddr    string
	lastHeartbeat time.Time
	lastRTT       time.Duration
	lastFloorSent int
}

// New builds a hub and its engine loop. Run starts the tick goroutine.
func New(cfg Config) *Hub {
	cfg = cfg.normalized()
	h := &Hub{
		cfg:         cfg,
		logger:      cfg.Logger,
		counters:    cfg.Counters,
		publisher:   cfg.Publisher,
		reporter:    cfg.Reporter,
		clock:       cfg.Clock,
		sessions:    make(map[string]*sessionEntry),
		subscribers: make(map[string]*Subscriber),
	}
	h.loop = engine.NewLoop(&hubCore{hub: h}, engine.LoopConfig{
		TickRate:        cfg.TickRate,
		CatchupMaxTicks: cfg.CatchupMaxTicks,
		CommandCapacity: cfg.CommandCapacity,
		PerActorLimit:   cfg.PerSessionLimit,
		WarningStep:     cfg.QueueWarningStep,
	}, engine.Hooks{
		NextTick:       func() uint64 { return h.tick.Add(1) },
		AfterStep:      h.afterStep,
		OnQueueWarning: h.onQueueWarning,
		OnCommandDrop:  h.onCommandDrop,
	})
	return h
}

// hubCore adapts the hub to the engine's Core interface without exposing
// Apply and Step on the hub's public surface.
type hubCore struct {
	hub *Hub
}

func (c *hubCore) Deps() engine.Deps {
	return engine.Deps{Logger: c.hub.logger, Metrics: c.hub.counters, Clock: c.hub.clock}
}

func (c *hubCore) Apply(cmds []engine.Command) error {
	c.hub.apply(cmds)
	return nil
}

func (c *hubCore) Step(ctx engine.TickContext) {
	c.hub.step(ctx)
}

// Run drives the fixed-timestep loop until stop closes.
func (h *Hub) Run(stop <-chan struct{}) {
	h.loop.Run(stop)
}

// Tick returns the most recently assigned tick number.
func (h *Hub) Tick() uint64 { return h.tick.Load() }

// TickRate returns the simulation frequency in ticks per second.
func (h *Hub) TickRate() int { return h.cfg.TickRate }

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Join allocates a session and returns the join response payload.
func (h *Hub) Join(remoteAddr string) proto.JoinResponse {
	id := uuid.NewString()
	seed := h.cfg.Seed
	if seed == "" {
		seed = uuid.NewString()
	}
	sess := game.NewSession(game.Config{
		ID:        id,
		Seed:      seed,
		ViewportW: h.cfg.ViewportW,
		ViewportH: h.cfg.ViewportH,
		Generator: h.cfg.Generator,
		Publisher: h.publisher,
	})
	now := h.clock.Now()
	h.mu.Lock()
	h.sessions[id] = &sessionEntry{session: sess, remoteAddr: remoteAddr, lastHeartbeat: now}
	h.mu.Unlock()

	h.counters.RecordSessionCreated()
	lifecyclelog.SessionCreated(context.Background(), h.publisher, h.tick.Load(), sessionRef(id),
		lifecyclelog.SessionCreatedPayload{RemoteAddr: remoteAddr})
	return proto.JoinResponse{
		Ver:      proto.Version,
		ID:       id,
		Seed:     seed,
		TickRate: h.cfg.TickRate,
		State:    sess.State(),
	}
}

// Subscribe binds a websocket to a session and returns the frames that bring
// the client up to date. The bool reports whether the session exists. An
// existing subscriber for the same session is closed and replaced.
func (h *Hub) Subscribe(sessionID string, conn *websocket.Conn) (*Subscriber, [][]byte, bool) {
	h.mu.Lock()
	entry, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return nil, nil, false
	}
	now := h.clock.Now()
	entry.lastHeartbeat = now
	stale := h.subscribers[sessionID]
	sub := newSubscriber(conn, h.cfg.WriteTimeout)
	h.subscribers[sessionID] = sub
	frames := h.sessionFramesLocked(entry, h.tick.Load(), now, now.UnixMilli())
	h.mu.Unlock()

	if stale != nil {
		stale.Close()
	}
	remote := ""
	if conn != nil {
		remote = conn.RemoteAddr().String()
	}
	networklog.ClientConnected(context.Background(), h.publisher, h.tick.Load(), sessionRef(sessionID),
		networklog.ConnectionPayload{RemoteAddr: remote})
	return sub, frames, true
}

// Disconnect tears down the subscriber and session. It reports whether the
// session existed.
func (h *Hub) Disconnect(sessionID, reason string) bool {
	h.mu.Lock()
	sub := h.subscribers[sessionID]
	delete(h.subscribers, sessionID)
	_, existed := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if !existed {
		return false
	}
	h.counters.RecordSessionClosed()
	tick := h.tick.Load()
	networklog.ClientDisconnected(context.Background(), h.publisher, tick, sessionRef(sessionID),
		networklog.ConnectionPayload{Reason: reason})
	lifecyclelog.SessionClosed(context.Background(), h.publisher, tick, sessionRef(sessionID),
		lifecyclelog.SessionClosedPayload{Reason: reason})
	return true
}

// Heartbeat records client liveness and derives a round-trip estimate from
// the echoed client clock. Echoes more than heartbeatSkew ahead of the
// server clock are ignored.
func (h *Hub) Heartbeat(sessionID string, receivedAt time.Time, clientSentMillis int64) (time.Duration, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.sessions[sessionID]
	if !ok {
		return 0, false
	}
	entry.lastHeartbeat = receivedAt
	if clientSentMillis > 0 {
		clientSent := time.UnixMilli(clientSentMillis)
		if clientSent.Before(receivedAt.Add(heartbeatSkew)) {
			rtt := receivedAt.Sub(clientSent)
			if rtt < 0 {
				rtt = 0
			}
			entry.lastRTT = rtt
		}
	}
	return entry.lastRTT, true
}

// EnqueueInput stages an input sample for the next tick.
func (h *Hub) EnqueueInput(sessionID string, input engine.InputCommand) (engine.Command, bool, string) {
	if !h.sessionExists(sessionID) {
		return engine.Command{}, false, CommandRejectUnknownSession
	}
	cmd := engine.Command{
		OriginTick: h.tick.Load(),
		SessionID:  sessionID,
		Type:       engine.CommandInput,
		IssuedAt:   h.clock.Now(),
		Input:      &input,
	}
	ok, reason := h.loop.Enqueue(cmd)
	return cmd, ok, reason
}

// EnqueueAction stages a state-machine action for the next tick.
func (h *Hub) EnqueueAction(sessionID string, action engine.ActionCommand) (engine.Command, bool, string) {
	if !validAction(action.Name) {
		return engine.Command{}, false, CommandRejectInvalidAction
	}
	if !h.sessionExists(sessionID) {
		return engine.Command{}, false, CommandRejectUnknownSession
	}
	cmd := engine.Command{
		OriginTick: h.tick.Load(),
		SessionID:  sessionID,
		Type:       engine.CommandAction,
		IssuedAt:   h.clock.Now(),
		Action:     &action,
	}
	ok, reason := h.loop.Enqueue(cmd)
	return cmd, ok, reason
}

func (h *Hub) sessionExists(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[id]
	return ok
}

func validAction(name engine.ActionName) bool {
	switch name {
	case engine.ActionStart, engine.ActionRestart, engine.ActionMenu,
		engine.ActionChooseUpgrade, engine.ActionSubmitScore:
		return true
	}
	return false
}

// apply dispatches drained commands to their sessions. Commands for sessions
// that disappeared since enqueue are silently dropped.
func (h *Hub) apply(cmds []engine.Command) {
	if len(cmds) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range cmds {
		cmd := &cmds[i]
		entry, ok := h.sessions[cmd.SessionID]
		if !ok {
			continue
		}
		switch cmd.Type {
		case engine.CommandInput:
			if cmd.Input != nil {
				applyInput(entry.session, cmd.Input)
			}
		case engine.CommandAction:
			if cmd.Action != nil {
				h.applyActionLocked(entry, cmd)
			}
		}
	}
}

func applyInput(sess *game.Session, input *engine.InputCommand) {
	sess.SetInput(game.InputState{
		Up:       input.Up,
		Down:     input.Down,
		Left:     input.Left,
		Right:    input.Right,
		Attack:   input.Attack,
		PointerX: input.PointerX,
		PointerY: input.PointerY,
	})
	if input.ViewportW > 0 || input.ViewportH > 0 {
		sess.SetViewport(input.ViewportW, input.ViewportH)
	}
}

func (h *Hub) applyActionLocked(entry *sessionEntry, cmd *engine.Command) {
	sess := entry.session
	action := cmd.Action
	switch action.Name {
	case engine.ActionStart:
		if err := sess.Start(cmd.IssuedAt); err != nil {
			h.rejectAction(sess.ID(), action.Name, err)
			return
		}
		h.counters.RecordRunStarted()
	case engine.ActionRestart:
		if err := sess.Restart(cmd.IssuedAt); err != nil {
			h.rejectAction(sess.ID(), action.Name, err)
			return
		}
		h.counters.RecordRunStarted()
	case engine.ActionMenu:
		if err := sess.ReturnToMenu(); err != nil {
			h.rejectAction(sess.ID(), action.Name, err)
		}
	case engine.ActionChooseUpgrade:
		if err := sess.ChooseUpgrade(action.UpgradeID); err != nil {
			h.rejectAction(sess.ID(), action.Name, err)
		}
	case engine.ActionSubmitScore:
		h.submitScoreLocked(entry, action.PlayerName)
	}
}

// rejectAction traces actions refused by the session state machine. The
// client keeps receiving state frames, so no reply is sent.
func (h *Hub) rejectAction(sessionID string, name engine.ActionName, err error) {
	networklog.MessageRejected(context.Background(), h.publisher, h.tick.Load(), sessionRef(sessionID),
		networklog.RejectPayload{MessageType: string(name), Reason: err.Error()})
}

// submitScoreLocked validates the run and hands the backend call to a
// goroutine so the tick loop never blocks on HTTP.
func (h *Hub) submitScoreLocked(entry *sessionEntry, playerName string) {
	sess := entry.session
	sub := h.subscribers[sess.ID()]
	result, err := sess.BuildResult(playerName)
	if err != nil {
		h.counters.RecordScoreSubmission(false)
		h.rejectAction(sess.ID(), engine.ActionSubmitScore, err)
		if sub != nil {
			go h.sendScoreAck(sess.ID(), sub, proto.ScoreAck{
				Ver:    proto.Version,
				Type:   proto.TypeScoreAck,
				Reason: "bad_state",
			})
		}
		return
	}
	go h.submitScore(sess.ID(), sub, result)
}

// step advances every session one frame, forwards drained milestone events
// and prunes sessions whose heartbeats went quiet.
func (h *Hub) step(ctx engine.TickContext) {
	var pending []score.Event
	var stale []string
	h.mu.Lock()
	for id, entry := range h.sessions {
		entry.session.Step(ctx.Tick, ctx.Now, ctx.Delta)
		if events := entry.session.DrainEvents(); len(events) > 0 {
			pending = append(pending, events...)
		}
		if h.cfg.DisconnectAfter > 0 && ctx.Now.Sub(entry.lastHeartbeat) > h.cfg.DisconnectAfter {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	for _, event := range pending {
		if event.Type == score.EventGameCompleted {
			h.counters.RecordRunEnded()
		}
	}
	for _, id := range stale {
		h.logger.Printf("disconnecting %s due to heartbeat timeout", id)
		h.Disconnect(id, "heartbeat_timeout")
	}
	if len(pending) > 0 {
		go h.forwardEvents(pending)
	}
}

// FloorSnapshot exposes the current grid and state for the debug renderer.
func (h *Hub) FloorSnapshot(sessionID string) (level.GridSnapshot, game.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.sessions[sessionID]
	if !ok {
		return level.GridSnapshot{}, game.Snapshot{}, false
	}
	grid, ok := entry.session.LevelSnapshot()
	if !ok {
		return level.GridSnapshot{}, game.Snapshot{}, false
	}
	return grid, entry.session.Snapshot(h.clock.Now()), true
}

// SessionDiagnostics describes one session for /diagnostics.
type SessionDiagnostics struct {
	ID              string     `json:"id"`
	State           game.State `json:"state"`
	Floor           int        `json:"floor"`
	LastHeartbeatMS int64      `json:"lastHeartbeatMs"`
	RTTMillis       int64      `json:"rttMillis"`
	Subscribed      bool       `json:"subscribed"`
}

// Diagnostics is the JSON body served by /diagnostics.
type Diagnostics struct {
	ServerTime      int64                `json:"serverTime"`
	Tick            uint64               `json:"tick"`
	TickRate        int                  `json:"tickRate"`
	HeartbeatMillis int64                `json:"heartbeatMillis"`
	PendingCommands int                  `json:"pendingCommands"`
	Sessions        []SessionDiagnostics `json:"sessions"`
	Telemetry       telemetry.Snapshot   `json:"telemetry"`
}

// DiagnosticsSnapshot reports hub health: live sessions, queue depth and
// telemetry counters. Sessions are sorted by id for stable output.
func (h *Hub) DiagnosticsSnapshot() Diagnostics {
	now := h.clock.Now()
	diag := Diagnostics{
		ServerTime:      now.UnixMilli(),
		Tick:            h.tick.Load(),
		TickRate:        h.cfg.TickRate,
		HeartbeatMillis: HeartbeatInterval.Milliseconds(),
		PendingCommands: h.loop.Pending(),
		Telemetry:       h.counters.Snapshot(),
	}
	h.mu.Lock()
	diag.Sessions = make([]SessionDiagnostics, 0, len(h.sessions))
	for id, entry := range h.sessions {
		_, subscribed := h.subscribers[id]
		diag.Sessions = append(diag.Sessions, SessionDiagnostics{
			ID:              id,
			State:           entry.session.State(),
			Floor:           entry.session.Floor(),
			LastHeartbeatMS: entry.lastHeartbeat.UnixMilli(),
			RTTMillis:       entry.lastRTT.Milliseconds(),
			Subscribed:      subscribed,
		})
	}
	h.mu.Unlock()
	sort.Slice(diag.Sessions, func(i, j int) bool {
		return diag.Sessions[i].ID < diag.Sessions[j].ID
	})
	return diag
}

func sessionRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindSession}
}

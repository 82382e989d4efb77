package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counters aggregates run-time totals exposed through /diagnostics.
type Counters struct {
	sessionsCreated    atomic.Uint64
	sessionsClosed     atomic.Uint64
	runsStarted        atomic.Uint64
	runsEnded          atomic.Uint64
	broadcasts         atomic.Uint64
	bytesSent          atomic.Uint64
	lastBroadcastBytes atomic.Uint64
	tickDurationMillis atomic.Int64
	commandsDropped    atomic.Uint64
	eventsSubmitted    atomic.Uint64
	eventsFailed       atomic.Uint64
	scoresSubmitted    atomic.Uint64
	scoresFailed       atomic.Uint64

	mu     sync.Mutex
	gauges map[string]uint64
}

// Snapshot is the JSON form of Counters.
type Snapshot struct {
	SessionsCreated    uint64            `json:"sessionsCreated"`
	SessionsClosed     uint64            `json:"sessionsClosed"`
	RunsStarted        uint64            `json:"runsStarted"`
	RunsEnded          uint64            `json:"runsEnded"`
	Broadcasts         uint64            `json:"broadcasts"`
	BytesSent          uint64            `json:"bytesSent"`
	LastBroadcastBytes uint64            `json:"lastBroadcastBytes"`
	TickDurationMillis int64             `json:"tickDurationMillis"`
	CommandsDropped    uint64            `json:"commandsDropped"`
	EventsSubmitted    uint64            `json:"eventsSubmitted"`
	EventsFailed       uint64            `json:"eventsFailed"`
	ScoresSubmitted    uint64            `json:"scoresSubmitted"`
	ScoresFailed       uint64            `json:"scoresFailed"`
	Gauges             map[string]uint64 `json:"gauges,omitempty"`
}

func NewCounters() *Counters {
	return &Counters{gauges: make(map[string]uint64)}
}

func (c *Counters) RecordSessionCreated() { c.sessionsCreated.Add(1) }
func (c *Counters) RecordSessionClosed()  { c.sessionsClosed.Add(1) }
func (c *Counters) RecordRunStarted()     { c.runsStarted.Add(1) }
func (c *Counters) RecordRunEnded()       { c.runsEnded.Add(1) }
func (c *Counters) RecordCommandDropped() { c.commandsDropped.Add(1) }

func (c *Counters) RecordBroadcast(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	c.broadcasts.Add(1)
	c.bytesSent.Add(uint64(bytes))
	c.lastBroadcastBytes.Store(uint64(bytes))
}

func (c *Counters) RecordTickDuration(duration time.Duration) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	c.tickDurationMillis.Store(millis)
}

func (c *Counters) RecordEventSubmission(ok bool) {
	if ok {
		c.eventsSubmitted.Add(1)
	} else {
		c.eventsFailed.Add(1)
	}
}

func (c *Counters) RecordScoreSubmission(ok bool) {
	if ok {
		c.scoresSubmitted.Add(1)
	} else {
		c.scoresFailed.Add(1)
	}
}

// Add implements Metrics for named counters used by engine internals.
func (c *Counters) Add(key string, delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[key] += delta
}

// Store implements Metrics for named gauges used by engine internals.
func (c *Counters) Store(key string, value uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[key] = value
}

func (c *Counters) Snapshot() Snapshot {
	snap := Snapshot{
		SessionsCreated:    c.sessionsCreated.Load(),
		SessionsClosed:     c.sessionsClosed.Load(),
		RunsStarted:        c.runsStarted.Load(),
		RunsEnded:          c.runsEnded.Load(),
		Broadcasts:         c.broadcasts.Load(),
		BytesSent:          c.bytesSent.Load(),
		LastBroadcastBytes: c.lastBroadcastBytes.Load(),
		TickDurationMillis: c.tickDurationMillis.Load(),
		CommandsDropped:    c.commandsDropped.Load(),
		EventsSubmitted:    c.eventsSubmitted.Load(),
		EventsFailed:       c.eventsFailed.Load(),
		ScoresSubmitted:    c.scoresSubmitted.Load(),
		ScoresFailed:       c.scoresFailed.Load(),
	}
	c.mu.Lock()
	if len(c.gauges) > 0 {
		snap.Gauges = make(map[string]uint64, len(c.gauges))
		for k, v := range c.gauges {
			snap.Gauges[k] = v
		}
	}
	c.mu.Unlock()
	return snap
}

var _ Metrics = (*Counters)(nil)

package logging_test

import (
	"context"
	"log"
	"testing"
	"time"

	"floorcrawl/logging"
	"floorcrawl/logging/sinks"
)

func newMemoryRouter(t *testing.T, mutate ...func(*logging.Config)) (*logging.Router, *sinks.MemorySink) {
	t.Helper()
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"memory"}
	for _, fn := range mutate {
		fn(&cfg)
	}
	sink := sinks.NewMemorySink()
	clock := logging.ClockFunc(func() time.Time { return time.UnixMilli(1_700_000_000_000) })
	router, err := logging.NewRouter(cfg, clock, log.New(testWriter{t}, "", 0),
		[]logging.NamedSink{{Name: "memory", Sink: sink}})
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}
	return router, sink
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close router: %v", err)
	}
}

func waitForEvents(t *testing.T, sink *sinks.MemorySink, want int) []logging.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := sink.Events(); len(events) >= want {
			return events
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("sink received %d events, want %d", len(sink.Events()), want)
	return nil
}

func TestRouterDeliversAndStampsEvents(t *testing.T) {
	router, sink := newMemoryRouter(t)
	defer closeRouter(t, router)

	router.Publish(context.Background(), logging.Event{
		Type:     "combat.enemy_killed",
		Tick:     7,
		Severity: logging.SeverityInfo,
		Actor:    logging.EntityRef{ID: "enemy-1", Kind: logging.EntityKindEnemy},
		Category: logging.CategoryCombat,
	})

	events := waitForEvents(t, sink, 1)
	got := events[0]
	if got.Type != "combat.enemy_killed" || got.Tick != 7 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Time.UnixMilli() != 1_700_000_000_000 {
		t.Fatalf("expected the router clock to stamp the event, got %v", got.Time)
	}
	if router.Stats().EventsTotal != 1 {
		t.Fatalf("stats = %+v, want one forwarded event", router.Stats())
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	router, sink := newMemoryRouter(t)

	router.Publish(context.Background(), logging.Event{Tick: 3})
	router.Publish(context.Background(), logging.Event{Type: "simulation.tick", Severity: logging.SeverityInfo})
	waitForEvents(t, sink, 1)
	closeRouter(t, router)

	if got := len(sink.Events()); got != 1 {
		t.Fatalf("sink received %d events, want the typed one only", got)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	router, sink := newMemoryRouter(t, func(cfg *logging.Config) {
		cfg.MinimumSeverity = logging.SeverityWarn
	})

	router.Publish(context.Background(), logging.Event{Type: "simulation.tick", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "simulation.wall_overlap", Severity: logging.SeverityWarn})
	waitForEvents(t, sink, 1)
	closeRouter(t, router)

	events := sink.Events()
	if len(events) != 1 || events[0].Type != "simulation.wall_overlap" {
		t.Fatalf("unexpected events after severity filter: %+v", events)
	}
	if router.Stats().EventsTotal != 1 {
		t.Fatalf("filtered events must not count as forwarded: %+v", router.Stats())
	}
}

func TestRouterMergesConfiguredFields(t *testing.T) {
	router, sink := newMemoryRouter(t, func(cfg *logging.Config) {
		cfg.Fields = map[string]any{"node": "test-1"}
	})
	defer closeRouter(t, router)

	router.Publish(context.Background(), logging.Event{
		Type:     "lifecycle.session_created",
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"node": "explicit", "remote": "10.0.0.1"},
	})
	router.Publish(context.Background(), logging.Event{
		Type:     "lifecycle.session_closed",
		Severity: logging.SeverityInfo,
	})

	events := waitForEvents(t, sink, 2)
	if events[0].Extra["node"] != "explicit" {
		t.Fatalf("configured field overwrote an explicit value: %v", events[0].Extra)
	}
	if events[1].Extra["node"] != "test-1" {
		t.Fatalf("configured field missing from event extra: %v", events[1].Extra)
	}
}

func TestRouterCloseFlushesPending(t *testing.T) {
	router, sink := newMemoryRouter(t)

	for i := 0; i < 20; i++ {
		router.Publish(context.Background(), logging.Event{Type: "simulation.tick", Severity: logging.SeverityInfo, Tick: uint64(i)})
	}
	closeRouter(t, router)

	if got := len(sink.Events()); got != 20 {
		t.Fatalf("sink received %d events after close, want 20", got)
	}
	router.Publish(context.Background(), logging.Event{Type: "simulation.tick", Severity: logging.SeverityInfo})
	if got := len(sink.Events()); got != 20 {
		t.Fatalf("publish after close leaked an event")
	}
}

func TestRouterSinkLookup(t *testing.T) {
	router, sink := newMemoryRouter(t)
	defer closeRouter(t, router)

	if got := router.Sink("memory"); got != logging.Sink(sink) {
		t.Fatalf("expected the registered memory sink, got %v", got)
	}
	if got := router.Sink("json"); got != nil {
		t.Fatalf("expected nil for an unregistered sink, got %v", got)
	}
}

func TestWithFieldsWrapsPublisher(t *testing.T) {
	var captured logging.Event
	base := logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		captured = event
	})

	wrapped := logging.WithFields(base, map[string]any{"floor": 2})
	wrapped.Publish(context.Background(), logging.Event{Type: "progression.floor_advanced"})
	if captured.Extra["floor"] != 2 {
		t.Fatalf("expected wrapped field on event, got %v", captured.Extra)
	}

	if logging.WithFields(nil, nil) == nil {
		t.Fatalf("expected a nop publisher for nil input")
	}
	same := logging.WithFields(base, nil)
	same.Publish(context.Background(), logging.Event{Type: "progression.level_up"})
	if captured.Type != "progression.level_up" {
		t.Fatalf("expected passthrough without fields")
	}
}

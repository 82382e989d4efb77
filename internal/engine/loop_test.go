package engine

import (
	"fmt"
	"testing"
	"time"

	"floorcrawl/internal/telemetry"
)

type coreStub struct {
	deps    Deps
	applied [][]Command
	steps   []TickContext
}

func (c *coreStub) Deps() Deps { return c.deps }

func (c *coreStub) Apply(cmds []Command) error {
	c.applied = append(c.applied, cmds)
	return nil
}

func (c *coreStub) Step(ctx TickContext) {
	c.steps = append(c.steps, ctx)
}

func TestAdvanceDrainsCommandsInOrder(t *testing.T) {
	core := &coreStub{}
	loop := NewLoop(core, LoopConfig{CommandCapacity: 8}, Hooks{})

	for i := 0; i < 3; i++ {
		cmd := Command{SessionID: fmt.Sprintf("s-%d", i), Type: CommandInput}
		if ok, reason := loop.Enqueue(cmd); !ok {
			t.Fatalf("enqueue %d rejected: %s", i, reason)
		}
	}
	if got := loop.Pending(); got != 3 {
		t.Fatalf("expected 3 pending commands, got %d", got)
	}

	ctx := TickContext{Tick: 7, Now: time.Unix(100, 0), Delta: 1.0 / 30}
	result := loop.Advance(ctx)

	if len(core.applied) != 1 || len(core.applied[0]) != 3 {
		t.Fatalf("expected one apply batch of 3, got %+v", core.applied)
	}
	for i, cmd := range core.applied[0] {
		want := fmt.Sprintf("s-%d", i)
		if cmd.SessionID != want {
			t.Fatalf("expected FIFO order, got %s at %d", cmd.SessionID, i)
		}
	}
	if len(core.steps) != 1 || core.steps[0] != ctx {
		t.Fatalf("expected step with %+v, got %+v", ctx, core.steps)
	}
	if result.Tick != 7 || len(result.Commands) != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := loop.Pending(); got != 0 {
		t.Fatalf("expected drained queue, got %d pending", got)
	}
}

func TestPrepareHookRunsBeforeApply(t *testing.T) {
	core := &coreStub{}
	var order []string
	loop := NewLoop(core, LoopConfig{CommandCapacity: 4}, Hooks{
		Prepare: func(TickContext) {
			if len(core.applied) != 0 {
				t.Fatalf("prepare must run before apply")
			}
			order = append(order, "prepare")
		},
	})

	loop.Advance(TickContext{Tick: 1, Now: time.Unix(0, 0), Delta: 0.033})
	if len(order) != 1 {
		t.Fatalf("expected prepare hook to fire once, got %v", order)
	}
}

func TestEnqueueThrottlesPerSession(t *testing.T) {
	core := &coreStub{}
	var drops []string
	loop := NewLoop(core, LoopConfig{CommandCapacity: 16, PerActorLimit: 2}, Hooks{
		OnCommandDrop: func(reason string, cmd Command) {
			drops = append(drops, reason+":"+cmd.SessionID)
		},
	})

	for i := 0; i < 2; i++ {
		if ok, _ := loop.Enqueue(Command{SessionID: "hog", Type: CommandInput}); !ok {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	ok, reason := loop.Enqueue(Command{SessionID: "hog", Type: CommandInput})
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected queue_limit rejection, got ok=%v reason=%q", ok, reason)
	}
	if ok, _ := loop.Enqueue(Command{SessionID: "other", Type: CommandInput}); !ok {
		t.Fatalf("expected other sessions to pass the throttle")
	}
	if len(drops) != 1 || drops[0] != CommandRejectQueueLimit+":hog" {
		t.Fatalf("unexpected drop reports: %v", drops)
	}

	// Draining resets the per-session counts.
	loop.DrainCommands()
	if ok, _ := loop.Enqueue(Command{SessionID: "hog", Type: CommandInput}); !ok {
		t.Fatalf("expected throttle reset after drain")
	}
}

func TestEnqueueRejectsWhenBufferFull(t *testing.T) {
	core := &coreStub{}
	loop := NewLoop(core, LoopConfig{CommandCapacity: 1, PerActorLimit: 4}, Hooks{})

	if ok, _ := loop.Enqueue(Command{SessionID: "a", Type: CommandInput}); !ok {
		t.Fatalf("expected first enqueue to succeed")
	}
	ok, reason := loop.Enqueue(Command{SessionID: "a", Type: CommandInput})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected queue_full rejection, got ok=%v reason=%q", ok, reason)
	}

	// The failed push must not consume the session's throttle budget.
	loop.DrainCommands()
	for i := 0; i < 4; i++ {
		loop.DrainCommands()
		if ok, _ := loop.Enqueue(Command{SessionID: "a", Type: CommandInput}); !ok {
			t.Fatalf("expected enqueue %d to succeed after drain", i)
		}
	}
}

func TestQueueWarningFiresAtStep(t *testing.T) {
	core := &coreStub{}
	var warnings []int
	loop := NewLoop(core, LoopConfig{CommandCapacity: 16, WarningStep: 2}, Hooks{
		OnQueueWarning: func(length int) { warnings = append(warnings, length) },
	})

	for i := 0; i < 4; i++ {
		if ok, _ := loop.Enqueue(Command{SessionID: "s", Type: CommandInput}); !ok {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	if len(warnings) != 2 || warnings[0] != 2 || warnings[1] != 4 {
		t.Fatalf("expected warnings at 2 and 4, got %v", warnings)
	}
}

func TestThrottleDropsLogAtPowersOfTwo(t *testing.T) {
	var lines []string
	core := &coreStub{deps: Deps{
		Logger: telemetry.LoggerFunc(func(format string, args ...any) {
			lines = append(lines, fmt.Sprintf(format, args...))
		}),
	}}
	loop := NewLoop(core, LoopConfig{CommandCapacity: 16, PerActorLimit: 1}, Hooks{})

	if ok, _ := loop.Enqueue(Command{SessionID: "s", Type: CommandInput}); !ok {
		t.Fatalf("expected first enqueue to succeed")
	}
	for i := 0; i < 3; i++ {
		if ok, _ := loop.Enqueue(Command{SessionID: "s", Type: CommandInput}); ok {
			t.Fatalf("expected throttle to reject")
		}
	}
	// Drop counts 1, 2, 3: only the powers of two log.
	if len(lines) != 2 {
		t.Fatalf("expected 2 backpressure lines, got %d: %v", len(lines), lines)
	}
}

func TestNilLoopIsInert(t *testing.T) {
	var loop *Loop
	if ok, reason := loop.Enqueue(Command{}); ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected nil loop to reject, got ok=%v reason=%q", ok, reason)
	}
	if got := loop.Pending(); got != 0 {
		t.Fatalf("expected no pending commands, got %d", got)
	}
	loop.Step(TickContext{})
	if result := loop.Advance(TickContext{}); result.Tick != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

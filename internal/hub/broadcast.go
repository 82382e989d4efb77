package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"floorcrawl/internal/engine"
	"floorcrawl/internal/net/proto"
	"floorcrawl/internal/score"
)

// afterStep runs on the tick goroutine after every frame.
func (h *Hub) afterStep(result engine.StepResult) {
	h.counters.RecordTickDuration(result.Duration)
	if result.Budget > 0 && result.Duration > result.Budget {
		h.logger.Printf("tick %d took %s, budget %s", result.Tick, result.Duration, result.Budget)
	}
	h.broadcast(result.Tick, result.Now)
}

func (h *Hub) onQueueWarning(length int) {
	h.logger.Printf("command queue depth %d", length)
}

func (h *Hub) onCommandDrop(string, engine.Command) {
	h.counters.RecordCommandDropped()
}

type outgoing struct {
	sessionID string
	sub       *Subscriber
	frames    [][]byte
}

// broadcast marshals per-session snapshots under the lock, then writes to
// sockets after releasing it so one slow client cannot stall the tick.
func (h *Hub) broadcast(tick uint64, now time.Time) {
	serverTime := now.UnixMilli()
	h.mu.Lock()
	targets := make([]outgoing, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		entry, ok := h.sessions[id]
		if !ok {
			continue
		}
		frames := h.sessionFramesLocked(entry, tick, now, serverTime)
		if len(frames) > 0 {
			targets = append(targets, outgoing{sessionID: id, sub: sub, frames: frames})
		}
	}
	h.mu.Unlock()

	for _, target := range targets {
		for _, frame := range target.frames {
			if err := target.sub.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Printf("failed to send update to %s: %v", target.sessionID, err)
				h.Disconnect(target.sessionID, "write_failed")
				break
			}
			h.counters.RecordBroadcast(len(frame))
		}
	}
}

// sessionFramesLocked builds the level frame, when the floor changed since
// the last send, followed by the state frame. Also used on subscribe to
// bring a fresh socket up to date.
func (h *Hub) sessionFramesLocked(entry *sessionEntry, tick uint64, now time.Time, serverTime int64) [][]byte {
	frames := make([][]byte, 0, 2)
	sess := entry.session
	if floor := sess.Floor(); floor != entry.lastFloorSent {
		if snapshot, ok := sess.LevelSnapshot(); ok {
			msg := proto.LevelMessage{
				Ver:   proto.Version,
				Type:  proto.TypeLevel,
				Tick:  tick,
				Floor: floor,
				Level: snapshot,
			}
			if data, err := json.Marshal(msg); err != nil {
				h.logger.Printf("failed to marshal level for %s: %v", sess.ID(), err)
			} else {
				frames = append(frames, data)
				entry.lastFloorSent = floor
			}
		}
	}
	state := proto.StateMessage{
		Ver:        proto.Version,
		Type:       proto.TypeState,
		Tick:       tick,
		ServerTime: serverTime,
		Snapshot:   sess.Snapshot(now),
	}
	data, err := json.Marshal(state)
	if err != nil {
		h.logger.Printf("failed to marshal state for %s: %v", sess.ID(), err)
		return frames
	}
	return append(frames, data)
}

// submitScore runs off the tick loop: it posts the result, counts the
// outcome and tells the subscriber where they ranked.
func (h *Hub) submitScore(sessionID string, sub *Subscriber, result score.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), scoreSubmitTimeout)
	defer cancel()
	ack := proto.ScoreAck{Ver: proto.Version, Type: proto.TypeScoreAck}
	answer, err := h.reporter.SubmitScore(ctx, result)
	if err != nil {
		h.counters.RecordScoreSubmission(false)
		h.logger.Printf("score submission for %s failed: %v", sessionID, err)
		ack.Reason = "backend_error"
	} else {
		h.counters.RecordScoreSubmission(true)
		ack.Submitted = true
		ack.Rank = answer.Rank
	}
	if sub == nil {
		return
	}
	h.sendScoreAck(sessionID, sub, ack)
}

func (h *Hub) sendScoreAck(sessionID string, sub *Subscriber, ack proto.ScoreAck) {
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Printf("failed to send score ack to %s: %v", sessionID, err)
	}
}

// forwardEvents posts milestone events to the score backend. Runs off the
// tick loop; ordering within one batch is preserved.
func (h *Hub) forwardEvents(events []score.Event) {
	for _, event := range events {
		ctx, cancel := context.WithTimeout(context.Background(), scoreSubmitTimeout)
		err := h.reporter.SubmitEvent(ctx, event)
		cancel()
		h.counters.RecordEventSubmission(err == nil)
		if err != nil {
			h.logger.Printf("event %s submission failed: %v", event.Type, err)
		}
	}
}

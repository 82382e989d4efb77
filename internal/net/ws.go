package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"floorcrawl/internal/engine"
	"floorcrawl/internal/hub"
	"floorcrawl/internal/net/proto"
	"floorcrawl/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *nethttp.Request) bool {
		return true
	},
}

// handleSocket upgrades the connection, replays the catch-up frames and then
// pumps client messages into the hub until the socket dies.
func handleSocket(h *hub.Hub, logger telemetry.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sessionID := r.URL.Query().Get("id")
		if sessionID == "" {
			httpError(w, "missing id", nethttp.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Printf("upgrade failed for %s: %v", sessionID, err)
			return
		}

		sub, frames, ok := h.Subscribe(sessionID, conn)
		if !ok {
			message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown session")
			conn.WriteMessage(websocket.CloseMessage, message)
			conn.Close()
			return
		}

		for _, frame := range frames {
			if err := sub.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Printf("failed to send catch-up frame to %s: %v", sessionID, err)
				h.Disconnect(sessionID, "write_failed")
				return
			}
		}

		readLoop(h, logger, sessionID, sub, conn)
	}
}

func readLoop(h *hub.Hub, logger telemetry.Logger, sessionID string, sub *hub.Subscriber, conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.Disconnect(sessionID, "read_failed")
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Printf("discarding malformed message from %s: %v", sessionID, err)
			continue
		}

		seq := uint64(0)
		if msg.Seq != nil && *msg.Seq > 0 {
			seq = *msg.Seq
		}

		send := func(payload any) bool {
			data, err := json.Marshal(payload)
			if err != nil {
				logger.Printf("failed to marshal reply for %s: %v", sessionID, err)
				return true
			}
			if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
				h.Disconnect(sessionID, "write_failed")
				return false
			}
			return true
		}

		// Sequenced retransmits are acknowledged without re-staging the
		// command, so a lossy client cannot double-apply an action.
		duplicate := false
		if seq > 0 {
			if last := sub.LastCommandSeq(); last > 0 && seq <= last {
				if !send(proto.NewCommandAck(seq, 0)) {
					return
				}
				duplicate = true
			}
		}

		acknowledge := func(cmd engine.Command, ok bool, reason string) bool {
			if seq == 0 {
				return true
			}
			if ok {
				if !send(proto.NewCommandAck(seq, cmd.OriginTick)) {
					return false
				}
				sub.StoreLastCommandSeq(seq)
				return true
			}
			retry := reason == hub.CommandRejectQueueLimit
			return send(proto.NewCommandReject(seq, reason, retry))
		}

		switch msg.Type {
		case proto.TypeInput:
			if duplicate {
				continue
			}
			input := engine.InputCommand{
				Up:        msg.Up,
				Down:      msg.Down,
				Left:      msg.Left,
				Right:     msg.Right,
				Attack:    msg.Attack,
				PointerX:  msg.PointerX,
				PointerY:  msg.PointerY,
				ViewportW: msg.ViewportW,
				ViewportH: msg.ViewportH,
			}
			cmd, ok, reason := h.EnqueueInput(sessionID, input)
			if !acknowledge(cmd, ok, reason) {
				return
			}
			if !ok && reason == hub.CommandRejectUnknownSession {
				logger.Printf("input ignored for unknown session %s", sessionID)
			}
		case proto.TypeAction:
			if msg.Action == "" || duplicate {
				continue
			}
			action := engine.ActionCommand{
				Name:       engine.ActionName(msg.Action),
				UpgradeID:  msg.UpgradeID,
				PlayerName: msg.PlayerName,
			}
			cmd, ok, reason := h.EnqueueAction(sessionID, action)
			if !acknowledge(cmd, ok, reason) {
				return
			}
			if !ok {
				switch reason {
				case hub.CommandRejectInvalidAction:
					logger.Printf("unknown action %q from %s", msg.Action, sessionID)
				case hub.CommandRejectUnknownSession:
					logger.Printf("action ignored for unknown session %s", sessionID)
				}
			}
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt, ok := h.Heartbeat(sessionID, now, msg.SentAt)
			if !ok {
				continue
			}
			if !send(proto.NewHeartbeat(now.UnixMilli(), msg.SentAt, rtt.Milliseconds())) {
				return
			}
		default:
			logger.Printf("unknown message type %q from %s", msg.Type, sessionID)
		}
	}
}

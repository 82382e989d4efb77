package net

import (
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"floorcrawl/internal/net/proto"
)

func websocketURL(t *testing.T, baseURL, sessionID string) string {
	t.Helper()
	parsed, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %v", err)
	}
	parsed.Scheme = "ws"
	parsed.Path = "/ws"
	query := parsed.Query()
	query.Set("id", sessionID)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func dialSocket(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, sessionID), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("failed to decode frame: %v", err)
	}
	return frame
}

// awaitFrame reads frames until one matches, skipping the interleaved state
// broadcasts from the tick loop.
func awaitFrame(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame := readFrame(t, conn)
		if match(frame) {
			return frame
		}
	}
	t.Fatalf("no matching frame before deadline")
	return nil
}

func frameOfType(frameType string) func(map[string]any) bool {
	return func(frame map[string]any) bool {
		value, _ := frame["type"].(string)
		return value == frameType
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to encode message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
}

func TestSocketStreamsStateFrames(t *testing.T) {
	h, _ := newTestHub(t)
	startHub(t, h)
	srv := newTestServer(t, h, HandlerConfig{})
	join := h.Join("")

	conn := dialSocket(t, srv, join.ID)

	first := readFrame(t, conn)
	if frameType, _ := first["type"].(string); frameType != proto.TypeState {
		t.Fatalf("first frame type = %q, want %q", frameType, proto.TypeState)
	}
	if ver, _ := first["ver"].(float64); int(ver) != proto.Version {
		t.Fatalf("ver = %v", first["ver"])
	}
	if state, _ := first["state"].(string); state != "MENU" {
		t.Fatalf("state = %q, want MENU", state)
	}
	if _, ok := first["player"].(map[string]any); !ok {
		t.Fatalf("state frame missing player object: %v", first)
	}

	second := awaitFrame(t, conn, frameOfType(proto.TypeState))
	third := awaitFrame(t, conn, frameOfType(proto.TypeState))
	secondTick, _ := second["t"].(float64)
	thirdTick, _ := third["t"].(float64)
	if thirdTick <= secondTick {
		t.Fatalf("ticks not increasing: %v then %v", secondTick, thirdTick)
	}
}

func TestSocketRejectsUnknownSession(t *testing.T) {
	h, _ := newTestHub(t)
	srv := newTestServer(t, h, HandlerConfig{})

	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, srv.URL, "missing"), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("dial failed before close handshake: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		defer resp.Body.Close()
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestSocketStartActionAcksAndSendsLevel(t *testing.T) {
	h, _ := newTestHub(t)
	startHub(t, h)
	srv := newTestServer(t, h, HandlerConfig{})
	join := h.Join("")

	conn := dialSocket(t, srv, join.ID)
	sendJSON(t, conn, map[string]any{"type": "action", "action": "start", "seq": 1})

	ack := awaitFrame(t, conn, frameOfType(proto.TypeCommandAck))
	if seq, _ := ack["seq"].(float64); seq != 1 {
		t.Fatalf("ack seq = %v, want 1", ack["seq"])
	}

	levelFrame := awaitFrame(t, conn, frameOfType(proto.TypeLevel))
	if floor, _ := levelFrame["floor"].(float64); floor != 1 {
		t.Fatalf("level floor = %v, want 1", levelFrame["floor"])
	}
	grid, ok := levelFrame["level"].(map[string]any)
	if !ok {
		t.Fatalf("level frame missing grid: %v", levelFrame)
	}
	tiles, ok := grid["tiles"].([]any)
	if !ok || len(tiles) != 50*50 {
		t.Fatalf("grid tiles = %d, want 2500", len(tiles))
	}

	playing := awaitFrame(t, conn, func(frame map[string]any) bool {
		frameType, _ := frame["type"].(string)
		state, _ := frame["state"].(string)
		return frameType == proto.TypeState && state == "PLAYING"
	})
	if floor, _ := playing["floor"].(float64); floor != 1 {
		t.Fatalf("state floor = %v, want 1", playing["floor"])
	}
	enemies, ok := playing["enemies"].([]any)
	if !ok || len(enemies) == 0 {
		t.Fatalf("expected enemies in playing state, got %v", playing["enemies"])
	}
}

func TestSocketDuplicateSeqAckedWithoutReplay(t *testing.T) {
	h, counters := newTestHub(t)
	startHub(t, h)
	srv := newTestServer(t, h, HandlerConfig{})
	join := h.Join("")

	conn := dialSocket(t, srv, join.ID)
	sendJSON(t, conn, map[string]any{"type": "action", "action": "start", "seq": 3})
	awaitFrame(t, conn, frameOfType(proto.TypeCommandAck))

	// Wait for the command to drain so the counter reflects the first start.
	awaitFrame(t, conn, func(frame map[string]any) bool {
		state, _ := frame["state"].(string)
		return state == "PLAYING"
	})

	sendJSON(t, conn, map[string]any{"type": "action", "action": "start", "seq": 3})
	second := awaitFrame(t, conn, frameOfType(proto.TypeCommandAck))
	if seq, _ := second["seq"].(float64); seq != 3 {
		t.Fatalf("duplicate ack seq = %v, want 3", second["seq"])
	}

	time.Sleep(100 * time.Millisecond)
	if got := counters.Snapshot().RunsStarted; got != 1 {
		t.Fatalf("runs started = %d, want 1 after duplicate seq", got)
	}
}

func TestSocketHeartbeatEcho(t *testing.T) {
	h, _ := newTestHub(t)
	startHub(t, h)
	srv := newTestServer(t, h, HandlerConfig{})
	join := h.Join("")

	conn := dialSocket(t, srv, join.ID)
	sentAt := time.Now().Add(-40 * time.Millisecond).UnixMilli()
	sendJSON(t, conn, map[string]any{"type": "heartbeat", "sentAt": sentAt})

	echo := awaitFrame(t, conn, frameOfType(proto.TypeHeartbeat))
	if clientTime, _ := echo["clientTime"].(float64); int64(clientTime) != sentAt {
		t.Fatalf("clientTime = %v, want %d", echo["clientTime"], sentAt)
	}
	if serverTime, _ := echo["serverTime"].(float64); serverTime <= 0 {
		t.Fatalf("serverTime = %v", echo["serverTime"])
	}
	rtt, _ := echo["rtt"].(float64)
	if rtt < 40 || rtt > 5000 {
		t.Fatalf("rtt = %v, want at least the 40ms echo delay", rtt)
	}
}

func TestSocketIgnoresMalformedMessages(t *testing.T) {
	h, _ := newTestHub(t)
	startHub(t, h)
	srv := newTestServer(t, h, HandlerConfig{})
	join := h.Join("")

	conn := dialSocket(t, srv, join.ID)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("failed to send garbage: %v", err)
	}

	// The loop must survive the garbage and still answer a heartbeat.
	sendJSON(t, conn, map[string]any{"type": "heartbeat", "sentAt": time.Now().UnixMilli()})
	awaitFrame(t, conn, frameOfType(proto.TypeHeartbeat))
}

func TestSocketCloseTearsDownSession(t *testing.T) {
	h, _ := newTestHub(t)
	startHub(t, h)
	srv := newTestServer(t, h, HandlerConfig{})
	join := h.Join("")

	conn := dialSocket(t, srv, join.ID)
	readFrame(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.SessionCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session survived socket close, count = %d", h.SessionCount())
}

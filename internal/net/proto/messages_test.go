package proto

import (
	"encoding/json"
	"testing"

	"floorcrawl/internal/game"
)

func TestStateMessageEmbedsSnapshotInline(t *testing.T) {
	msg := StateMessage{
		Ver:        Version,
		Type:       TypeState,
		Tick:       42,
		ServerTime: 1700000000000,
		Snapshot: game.Snapshot{
			State:   game.StatePlaying,
			Floor:   3,
			Player:  game.Player{ID: game.PlayerID, Health: 80, MaxHealth: 100},
			CameraX: -120,
			CameraY: 60,
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// The snapshot fields must sit at the top level, not under a nested key.
	for _, key := range []string{"ver", "type", "t", "serverTime", "state", "floor", "player", "cameraX", "stats"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected top-level key %q, got %v", key, decoded)
		}
	}
	if _, ok := decoded["Snapshot"]; ok {
		t.Fatalf("snapshot must not nest under its own key")
	}
	if decoded["state"] != "PLAYING" {
		t.Fatalf("expected PLAYING on the wire, got %v", decoded["state"])
	}

	player, ok := decoded["player"].(map[string]any)
	if !ok {
		t.Fatalf("expected player object, got %T", decoded["player"])
	}
	if player["id"] != game.PlayerID {
		t.Fatalf("expected player id %q, got %v", game.PlayerID, player["id"])
	}
}

func TestStateMessageOmitsUpgradeOptionsOutsideLevelUp(t *testing.T) {
	msg := StateMessage{Ver: Version, Type: TypeState, Snapshot: game.Snapshot{State: game.StatePlaying}}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["upgradeOptions"]; ok {
		t.Fatalf("expected upgradeOptions omitted, got %v", decoded["upgradeOptions"])
	}
}

func TestClientMessageDecodesInput(t *testing.T) {
	raw := []byte(`{"type":"input","seq":7,"up":true,"attack":true,"pointerX":120.5,"pointerY":-4,"viewportW":800,"viewportH":600}`)
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TypeInput {
		t.Fatalf("expected input type, got %q", msg.Type)
	}
	if msg.Seq == nil || *msg.Seq != 7 {
		t.Fatalf("expected seq 7, got %v", msg.Seq)
	}
	if !msg.Up || !msg.Attack || msg.Down {
		t.Fatalf("unexpected key state: %+v", msg)
	}
	if msg.PointerX != 120.5 || msg.PointerY != -4 {
		t.Fatalf("unexpected pointer: %+v", msg)
	}
	if msg.ViewportW != 800 || msg.ViewportH != 600 {
		t.Fatalf("unexpected viewport: %+v", msg)
	}
}

func TestClientMessageSeqAbsentStaysNil(t *testing.T) {
	raw := []byte(`{"type":"action","action":"choose_upgrade","upgradeId":"speed"}`)
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Seq != nil {
		t.Fatalf("expected nil seq, got %v", *msg.Seq)
	}
	if msg.Action != "choose_upgrade" || msg.UpgradeID != "speed" {
		t.Fatalf("unexpected action fields: %+v", msg)
	}
}

func TestCommandRejectRetryOmittedWhenFalse(t *testing.T) {
	data, err := json.Marshal(NewCommandReject(3, "queue_limit", false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["retry"]; ok {
		t.Fatalf("expected retry omitted when false")
	}
	if decoded["reason"] != "queue_limit" {
		t.Fatalf("expected reason on the wire, got %v", decoded["reason"])
	}

	data, err = json.Marshal(NewCommandReject(3, "queue_limit", true))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded = nil
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["retry"] != true {
		t.Fatalf("expected retry true on the wire")
	}
}

func TestNewHeartbeatStampsEnvelope(t *testing.T) {
	hb := NewHeartbeat(2000, 1000, 12)
	if hb.Ver != Version || hb.Type != TypeHeartbeat {
		t.Fatalf("unexpected envelope: %+v", hb)
	}
	if hb.ServerTime != 2000 || hb.ClientTime != 1000 || hb.RTTMillis != 12 {
		t.Fatalf("unexpected clocks: %+v", hb)
	}
}

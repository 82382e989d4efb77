// Package proto defines the websocket wire format shared by the hub and
// the transport layer.
package proto

import (
	"floorcrawl/internal/game"
	"floorcrawl/internal/level"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeInput     = "input"
	TypeAction    = "action"
	TypeHeartbeat = "heartbeat"
)

// Server message type identifiers.
const (
	TypeJoined        = "joined"
	TypeLevel         = "level"
	TypeState         = "state"
	TypeCommandAck    = "commandAck"
	TypeCommandReject = "commandReject"
	TypeScoreAck      = "scoreAck"
)

// ClientMessage is the single envelope clients send over the socket. The
// type field selects which of the remaining fields are meaningful.
type ClientMessage struct {
	Ver  int     `json:"ver,omitempty"`
	Type string  `json:"type"`
	Seq  *uint64 `json:"seq,omitempty"`

	// Input sample.
	Up        bool    `json:"up,omitempty"`
	Down      bool    `json:"down,omitempty"`
	Left      bool    `json:"left,omitempty"`
	Right     bool    `json:"right,omitempty"`
	Attack    bool    `json:"attack,omitempty"`
	PointerX  float64 `json:"pointerX,omitempty"`
	PointerY  float64 `json:"pointerY,omitempty"`
	ViewportW float64 `json:"viewportW,omitempty"`
	ViewportH float64 `json:"viewportH,omitempty"`

	// Action trigger.
	Action     string `json:"action,omitempty"`
	UpgradeID  string `json:"upgradeId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`

	// Heartbeat echo payload, client wall clock in Unix millis.
	SentAt int64 `json:"sentAt,omitempty"`
}

// JoinResponse is the HTTP answer to POST /join.
type JoinResponse struct {
	Ver      int        `json:"ver"`
	ID       string     `json:"id"`
	Seed     string     `json:"seed"`
	TickRate int        `json:"tickRate"`
	State    game.State `json:"state"`
}

// LevelMessage carries a full floor layout. Sent on subscribe and whenever
// the session descends.
type LevelMessage struct {
	Ver   int                `json:"ver"`
	Type  string             `json:"type"`
	Tick  uint64             `json:"t"`
	Floor int                `json:"floor"`
	Level level.GridSnapshot `json:"level"`
}

// StateMessage is the per-tick broadcast. The session snapshot is embedded
// so its fields sit at the top level of the payload.
type StateMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	Tick       uint64 `json:"t"`
	ServerTime int64  `json:"serverTime"`
	game.Snapshot
}

// CommandAck confirms a sequenced client command was staged.
type CommandAck struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Tick uint64 `json:"tick,omitempty"`
}

// CommandReject reports a sequenced client command that was dropped.
type CommandReject struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Retry  bool   `json:"retry,omitempty"`
}

// Heartbeat answers a client heartbeat with both clocks and the round trip.
type Heartbeat struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

// ScoreAck reports the outcome of a score submission.
type ScoreAck struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	Submitted bool   `json:"submitted"`
	Rank      int    `json:"rank,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// NewCommandAck stamps the protocol version and type.
func NewCommandAck(seq, tick uint64) CommandAck {
	return CommandAck{Ver: Version, Type: TypeCommandAck, Seq: seq, Tick: tick}
}

// NewCommandReject stamps the protocol version and type.
func NewCommandReject(seq uint64, reason string, retry bool) CommandReject {
	return CommandReject{Ver: Version, Type: TypeCommandReject, Seq: seq, Reason: reason, Retry: retry}
}

// NewHeartbeat stamps the protocol version and type.
func NewHeartbeat(serverTime, clientTime, rttMillis int64) Heartbeat {
	return Heartbeat{
		Ver:        Version,
		Type:       TypeHeartbeat,
		ServerTime: serverTime,
		ClientTime: clientTime,
		RTTMillis:  rttMillis,
	}
}

package engine

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandInput  CommandType = "Input"
	CommandAction CommandType = "Action"
)

// ActionName identifies a discrete game action. Actions mutate the session
// state machine; inputs only replace the held input sample.
type ActionName string

const (
	ActionStart         ActionName = "start"
	ActionRestart       ActionName = "restart"
	ActionMenu          ActionName = "menu"
	ActionChooseUpgrade ActionName = "choose_upgrade"
	ActionSubmitScore   ActionName = "submit_score"
)

// InputCommand carries one sample of the client's held controls. The pointer
// is in viewport coordinates; the simulation resolves it against the camera.
type InputCommand struct {
	Up        bool    `json:"up"`
	Down      bool    `json:"down"`
	Left      bool    `json:"left"`
	Right     bool    `json:"right"`
	Attack    bool    `json:"attack"`
	PointerX  float64 `json:"pointerX"`
	PointerY  float64 `json:"pointerY"`
	ViewportW float64 `json:"viewportW,omitempty"`
	ViewportH float64 `json:"viewportH,omitempty"`
}

// ActionCommand triggers a state-machine transition or submission.
type ActionCommand struct {
	Name       ActionName `json:"name"`
	UpgradeID  string     `json:"upgradeId,omitempty"`
	PlayerName string     `json:"playerName,omitempty"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64         `json:"originTick"`
	SessionID  string         `json:"sessionId"`
	Type       CommandType    `json:"type"`
	IssuedAt   time.Time      `json:"issuedAt"`
	Input      *InputCommand  `json:"input,omitempty"`
	Action     *ActionCommand `json:"action,omitempty"`
}

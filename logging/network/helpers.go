package network

import (
	"context"

	"floorcrawl/logging"
)

const (
	// EventClientConnected is emitted when a websocket binds to a session.
	EventClientConnected logging.EventType = "network.client_connected"
	// EventClientDisconnected is emitted when a websocket read or write fails.
	EventClientDisconnected logging.EventType = "network.client_disconnected"
	// EventMessageRejected is emitted when a client message cannot be applied.
	EventMessageRejected logging.EventType = "network.message_rejected"
)

// ConnectionPayload captures connection metadata.
type ConnectionPayload struct {
	RemoteAddr string `json:"remoteAddr,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// RejectPayload captures why a message was rejected.
type RejectPayload struct {
	MessageType string `json:"messageType"`
	Reason      string `json:"reason"`
	Seq         uint64 `json:"seq,omitempty"`
}

// ClientConnected publishes a connect event.
func ClientConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ConnectionPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventClientConnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// ClientDisconnected publishes a disconnect event.
func ClientDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ConnectionPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventClientDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// MessageRejected publishes a warning for an unprocessable client message.
func MessageRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RejectPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventMessageRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

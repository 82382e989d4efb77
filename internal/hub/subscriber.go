package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Subscriber wraps one websocket with serialized, deadline-bound writes.
// The tick broadcast, score acks and the read-loop replies all funnel
// through WriteMessage, so the mutex is load-bearing.
type Subscriber struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu      sync.Mutex
	lastSeq atomic.Uint64
}

func newSubscriber(conn *websocket.Conn, writeTimeout time.Duration) *Subscriber {
	return &Subscriber{conn: conn, writeTimeout: writeTimeout}
}

// WriteMessage sends one frame. Writes without a connection are discarded.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	if s == nil || s.conn == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteMessage(messageType, data)
}

// LastCommandSeq returns the highest client sequence number seen so far.
func (s *Subscriber) LastCommandSeq() uint64 {
	if s == nil {
		return 0
	}
	return s.lastSeq.Load()
}

// StoreLastCommandSeq records the highest client sequence number seen.
func (s *Subscriber) StoreLastCommandSeq(seq uint64) {
	if s == nil {
		return
	}
	s.lastSeq.Store(seq)
}

// Close closes the underlying connection, when present.
func (s *Subscriber) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

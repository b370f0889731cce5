package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// ErrSessionClosed is returned by Push once a session is gone.
var ErrSessionClosed = errors.New("chat: session closed")

// ErrInvalidEvent marks an inbound frame that was not a well-formed
// event envelope. The read loop reports it to the client and keeps the
// connection open.
var ErrInvalidEvent = errors.New("chat: invalid event")

// Session is one live connection for one authenticated user. It owns
// the websocket and a bounded outbound queue drained by the write pump.
type Session struct {
	id   string
	user bson.ObjectID
	conn *websocket.Conn

	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewSession wraps an upgraded connection for the given identity.
func NewSession(user bson.ObjectID, conn *websocket.Conn) *Session {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &Session{
		id:   uuid.NewString(),
		user: user,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
}

// ID identifies this connection. The registry compares it on unregister
// so a stale disconnect never evicts a newer session.
func (s *Session) ID() string { return s.id }

// UserID returns the bound identity as the hex string the registry and
// wire payloads use.
func (s *Session) UserID() string { return s.user.Hex() }

// User returns the bound identity as a store id.
func (s *Session) User() bson.ObjectID { return s.user }

// Push queues an event for delivery. It never blocks: a peer whose
// queue is full is treated as dead and closed, and the durable store
// plus the reconnect drain are the recovery path.
func (s *Session) Push(evt *Event) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	select {
	case <-s.done:
		return ErrSessionClosed
	case s.send <- b:
		return nil
	default:
		s.Close()
		return ErrSessionClosed
	}
}

// Close shuts the session down. Safe to call from any goroutine, any
// number of times.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// ReadEvent blocks for the next inbound event. A malformed frame
// returns ErrInvalidEvent; any other error means the connection is gone.
func (s *Session) ReadEvent() (*Event, error) {
	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if evt.Name == "" {
		return nil, fmt.Errorf("%w: missing event name", ErrInvalidEvent)
	}
	return &evt, nil
}

// writePump drains the send queue onto the wire and keeps the
// connection alive with pings. It is the only goroutine that writes to
// the websocket.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case b := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

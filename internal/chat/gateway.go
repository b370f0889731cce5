package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/data"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MessageStore is the durable message capability the gateway depends
// on. The concrete implementation lives in internal/data; tests swap in
// fakes.
type MessageStore interface {
	Save(ctx context.Context, sender, recipient bson.ObjectID, content string, delivered bool) (*data.Message, error)
	MarkRead(ctx context.Context, id bson.ObjectID) (*data.Message, error)
	FindUndelivered(ctx context.Context, recipient bson.ObjectID) ([]*data.Message, error)
	MarkDelivered(ctx context.Context, ids []bson.ObjectID) error
}

// PresenceStore records online/offline transitions on the user record.
type PresenceStore interface {
	SetPresence(ctx context.Context, id bson.ObjectID, online bool) error
}

// Gateway is the core state machine: it accepts events from sessions,
// persists messages, attempts immediate delivery, drains the offline
// queue on connect and fans presence out to everyone connected.
type Gateway struct {
	registry *Registry
	msgs     MessageStore
	users    PresenceStore
	validate *validator.Validate
	log      *logrus.Entry
}

// NewGateway wires the gateway with its registry and stores.
func NewGateway(registry *Registry, msgs MessageStore, users PresenceStore, log *logrus.Entry) *Gateway {
	return &Gateway{
		registry: registry,
		msgs:     msgs,
		users:    users,
		validate: validator.New(),
		log:      log,
	}
}

// Serve runs a session to completion: connect bookkeeping, the event
// loop, then disconnect bookkeeping. It returns when the connection is
// gone.
func (g *Gateway) Serve(ctx context.Context, s *Session) {
	go s.writePump()

	g.Connect(ctx, s)
	defer g.Disconnect(s)

	for {
		evt, err := s.ReadEvent()
		if errors.Is(err, ErrInvalidEvent) {
			g.pushError(s, "invalid event payload")
			continue
		}
		if err != nil {
			return
		}
		g.Dispatch(ctx, s, evt)
	}
}

// Connect registers the peer, flips presence online, announces it and
// drains the offline queue — in that order, before any client traffic
// is processed.
func (g *Gateway) Connect(ctx context.Context, p Peer) {
	if evicted := g.registry.Register(p); evicted != nil {
		// single connection per identity: a newer login supersedes the
		// older one
		evicted.Close()
		g.log.WithField("user_id", p.UserID()).Info("existing connection superseded")
	}

	if err := g.users.SetPresence(ctx, p.User(), true); err != nil {
		g.log.WithError(err).WithField("user_id", p.UserID()).Warn("failed to record online presence")
	}
	g.broadcastStatus(p.UserID(), true)

	g.drainPending(ctx, p)
}

// Disconnect runs when a session's read loop exits. Presence flips to
// offline only if this session is still the user's current one — a
// superseded connection must not mark the newer login offline.
func (g *Gateway) Disconnect(p Peer) {
	p.Close()

	if !g.registry.Unregister(p.UserID(), p.ID()) {
		return
	}

	// the request context is already dead at this point; the offline
	// transition still has to be recorded
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.users.SetPresence(ctx, p.User(), false); err != nil {
		g.log.WithError(err).WithField("user_id", p.UserID()).Warn("failed to record offline presence")
	}
	g.broadcastStatus(p.UserID(), false)
}

// Dispatch routes one inbound event to its handler.
func (g *Gateway) Dispatch(ctx context.Context, p Peer, evt *Event) {
	switch evt.Name {
	case EventSendMessage:
		g.handleSend(ctx, p, evt)
	case EventMarkRead:
		g.handleMarkRead(ctx, p, evt)
	case EventTyping:
		g.handleTyping(p, evt, EventUserTyping)
	case EventStopTyping:
		g.handleTyping(p, evt, EventUserStopTyping)
	default:
		g.pushError(p, "unsupported event: "+evt.Name)
	}
}

// handleSend is the send path: validate, resolve recipient presence,
// persist with the delivered flag decided by that presence, then push.
// Persistence happens before either notification; the sender's ack is
// never sent for a message that is not durable.
func (g *Gateway) handleSend(ctx context.Context, p Peer, evt *Event) {
	var payload SendMessagePayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		g.pushError(p, "invalid send_message payload")
		return
	}
	if err := g.validate.Struct(&payload); err != nil {
		g.pushError(p, "invalid send_message payload")
		return
	}

	content := strings.TrimSpace(payload.Content)
	if content == "" {
		g.pushError(p, "message content is empty")
		return
	}

	recipient, err := bson.ObjectIDFromHex(payload.RecipientID)
	if err != nil {
		g.pushError(p, "invalid recipient id")
		return
	}

	// "present in registry" means believed reachable; a push that fails
	// after this lookup is recovered by the drain on the recipient's
	// next connect
	target, online := g.registry.Lookup(payload.RecipientID)

	saved, err := g.msgs.Save(ctx, p.User(), recipient, content, online)
	if err != nil {
		g.log.WithError(err).Error("failed to save message")
		g.pushError(p, "failed to send message")
		return
	}

	if online {
		out, err := NewEvent(EventReceiveMessage, ReceiveMessagePayload{
			ID:        saved.ID.Hex(),
			Sender:    saved.Sender.Hex(),
			Content:   saved.Content,
			CreatedAt: saved.CreatedAt,
			SentAt:    saved.SentAt,
		})
		if err == nil {
			if perr := target.Push(out); perr != nil {
				g.log.WithError(perr).WithFields(logrus.Fields{
					"message_id": saved.ID.Hex(),
					"recipient":  saved.Recipient.Hex(),
				}).Debug("delivery push failed; message stays queued for redelivery")
			}
		}
	}

	ack, err := NewEvent(EventMessageSent, MessageSentPayload{
		ID:        saved.ID.Hex(),
		Recipient: saved.Recipient.Hex(),
		Content:   saved.Content,
		Delivered: saved.Delivered,
		CreatedAt: saved.CreatedAt,
		SentAt:    saved.SentAt,
	})
	if err == nil {
		_ = p.Push(ack)
	}
}

// handleMarkRead sets the read flag and notifies the original sender if
// they are connected. Unknown ids and already-read messages are no-ops.
func (g *Gateway) handleMarkRead(ctx context.Context, p Peer, evt *Event) {
	var payload MarkReadPayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		g.pushError(p, "invalid mark_read payload")
		return
	}
	if err := g.validate.Struct(&payload); err != nil {
		g.pushError(p, "invalid mark_read payload")
		return
	}

	id, err := bson.ObjectIDFromHex(payload.MessageID)
	if err != nil {
		g.pushError(p, "invalid message id")
		return
	}

	msg, err := g.msgs.MarkRead(ctx, id)
	if err != nil {
		g.log.WithError(err).Error("failed to mark message read")
		g.pushError(p, "failed to mark message read")
		return
	}
	if msg == nil {
		return
	}

	if sender, ok := g.registry.Lookup(msg.Sender.Hex()); ok {
		if out, err := NewEvent(EventMessageRead, MessageReadPayload{MessageID: msg.ID.Hex()}); err == nil {
			_ = sender.Push(out)
		}
	}
}

// handleTyping relays a typing signal to the recipient's connection if
// they have one. No persistence, no acknowledgement, no retry.
func (g *Gateway) handleTyping(p Peer, evt *Event, outName string) {
	var payload TypingPayload
	if err := json.Unmarshal(evt.Data, &payload); err != nil {
		return
	}
	if err := g.validate.Struct(&payload); err != nil {
		return
	}

	target, ok := g.registry.Lookup(payload.RecipientID)
	if !ok {
		return
	}
	if out, err := NewEvent(outName, UserTypingPayload{UserID: p.UserID()}); err == nil {
		_ = target.Push(out)
	}
}

// drainPending delivers the offline queue to a freshly connected peer:
// fetch undelivered, mark exactly that batch delivered in one update,
// then push the batch as a single pending_messages event. A crash
// between mark and push is the accepted at-most-once-after-mark gap.
func (g *Gateway) drainPending(ctx context.Context, p Peer) {
	pending, err := g.msgs.FindUndelivered(ctx, p.User())
	if err != nil {
		g.log.WithError(err).WithField("user_id", p.UserID()).Error("failed to load pending messages")
		g.pushError(p, "failed to load pending messages")
		return
	}
	if len(pending) == 0 {
		return
	}

	ids := make([]bson.ObjectID, len(pending))
	for i, m := range pending {
		ids[i] = m.ID
	}
	if err := g.msgs.MarkDelivered(ctx, ids); err != nil {
		// not marked, not pushed: the whole batch is redelivered on the
		// next connect
		g.log.WithError(err).WithField("user_id", p.UserID()).Error("failed to mark pending messages delivered")
		return
	}
	for _, m := range pending {
		m.Delivered = true
	}

	if out, err := NewEvent(EventPendingMessages, pending); err == nil {
		_ = p.Push(out)
	}
}

// broadcastStatus announces a presence transition to every connected
// peer, the transitioning user included. Pushes are fire-and-forget: a
// slow or dead peer must not block the rest.
func (g *Gateway) broadcastStatus(userID string, online bool) {
	evt, err := NewEvent(EventUserStatus, UserStatusPayload{UserID: userID, IsOnline: online})
	if err != nil {
		return
	}
	for _, p := range g.registry.Snapshot() {
		_ = p.Push(evt)
	}
}

func (g *Gateway) pushError(p Peer, msg string) {
	if evt, err := NewEvent(EventMessageError, MessageErrorPayload{Error: msg}); err == nil {
		_ = p.Push(evt)
	}
}

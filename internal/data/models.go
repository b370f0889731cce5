package data

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User maps to the users collection. IsOnline and LastSeen are the
// mutable presence fields; they are written only on connect/disconnect.
type User struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string        `bson:"name" json:"name"`
	Email     string        `bson:"email" json:"email"`
	Mobile    string        `bson:"mobile,omitempty" json:"mobile,omitempty"`
	Password  string        `bson:"password" json:"-"`
	Avatar    string        `bson:"avatar,omitempty" json:"avatar,omitempty"`
	IsOnline  bool          `bson:"is_online" json:"isOnline"`
	LastSeen  time.Time     `bson:"last_seen" json:"lastSeen"`
	CreatedAt time.Time     `bson:"created_at" json:"-"`
	UpdatedAt time.Time     `bson:"updated_at" json:"-"`
}

// Message maps to the messages collection. Delivered and Read are
// monotonic flags: each transitions false→true at most once and never
// reverts, and Read=true implies Delivered=true.
type Message struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Sender    bson.ObjectID `bson:"sender" json:"sender"`
	Recipient bson.ObjectID `bson:"recipient" json:"recipient"`
	Content   string        `bson:"content" json:"content"`
	Delivered bool          `bson:"delivered" json:"delivered"`
	Read      bool          `bson:"read" json:"read"`
	SentAt    time.Time     `bson:"sent_at" json:"sentAt"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}

// ConversationSummary is one row of the conversations aggregation: a
// chat partner, the most recent message exchanged with them and how
// many of their messages the user has not read yet.
type ConversationSummary struct {
	Partner       bson.ObjectID
	LastMessageID bson.ObjectID
	LastSender    bson.ObjectID
	LastContent   string
	LastCreatedAt time.Time
	LastRead      bool
	UnreadCount   int64
}

// Conversation is the API shape: the summary joined with the partner's
// user document.
type Conversation struct {
	User        *User    `json:"user"`
	LastMessage *Message `json:"lastMessage,omitempty"`
	UnreadCount int64    `json:"unreadCount"`
}

package main

import (
	"context"

	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/auth"
	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/data"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserStore is the subset of the users store the REST handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, mobile, hashedPassword string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
	Search(ctx context.Context, query string, exclude bson.ObjectID) ([]*data.User, error)
}

// MessageStore is the subset of the messages store the REST handlers need.
type MessageStore interface {
	History(ctx context.Context, user1, user2 bson.ObjectID, limit int64) ([]*data.Message, error)
	MarkConversationRead(ctx context.Context, reader, partner bson.ObjectID) error
	Conversations(ctx context.Context, user bson.ObjectID) ([]*data.ConversationSummary, error)
}

// Server carries the REST handlers' dependencies.
type Server struct {
	users UserStore
	msgs  MessageStore
	auth  *auth.JWTManager
	log   *logrus.Entry
}

// newServer returns a ready-to-use Server wired with stores and auth manager.
func newServer(users UserStore, msgs MessageStore, authMgr *auth.JWTManager, log *logrus.Entry) *Server {
	return &Server{users: users, msgs: msgs, auth: authMgr, log: log}
}

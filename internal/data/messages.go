package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	coll *mongo.Collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{coll: coll}
}

// Save inserts a message document and returns the saved record. The
// delivered flag is decided by the caller from the recipient's presence
// at send time; read always starts false.
func (m *MessagesStore) Save(ctx context.Context, sender, recipient bson.ObjectID, content string, delivered bool) (*Message, error) {
	now := time.Now()
	msg := &Message{
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		Delivered: delivered,
		Read:      false,
		SentAt:    now,
		CreatedAt: now,
	}

	result, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, err
	}

	msg.ID = result.InsertedID.(bson.ObjectID)
	return msg, nil
}

// MarkRead flips the read flag on a single message and returns the
// updated document. Delivered is set in the same update so a read
// message can never be observed undelivered, even when a read ack races
// the offline drain. An unknown id returns (nil, nil): marking a
// missing or already-read message is a no-op, not an error.
func (m *MessagesStore) MarkRead(ctx context.Context, id bson.ObjectID) (*Message, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg Message
	err := m.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"read": true, "delivered": true}},
		opts,
	).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// FindUndelivered returns the offline queue for a recipient: every
// message addressed to them not yet marked delivered, in creation order.
func (m *MessagesStore) FindUndelivered(ctx context.Context, recipient bson.ObjectID) ([]*Message, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := m.coll.Find(ctx, bson.M{"recipient": recipient, "delivered": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkDelivered flips the delivered flag on exactly the given batch in
// one update. The delivered=false guard keeps the transition one-way no
// matter how calls interleave.
func (m *MessagesStore) MarkDelivered(ctx context.Context, ids []bson.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := m.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "delivered": false},
		bson.M{"$set": bson.M{"delivered": true}},
	)
	return err
}

// History returns recent messages between two users (ordered oldest→newest).
func (m *MessagesStore) History(ctx context.Context, user1, user2 bson.ObjectID, limit int64) ([]*Message, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender": user1, "recipient": user2},
			bson.M{"sender": user2, "recipient": user1},
		},
	}

	cursor, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// Mongo returned newest first; the client expects chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkConversationRead flips read (and delivered, to keep the ordering
// invariant) on every unread message from partner to reader. Used when
// the reader opens the conversation history.
func (m *MessagesStore) MarkConversationRead(ctx context.Context, reader, partner bson.ObjectID) error {
	_, err := m.coll.UpdateMany(ctx,
		bson.M{"sender": partner, "recipient": reader, "read": false},
		bson.M{"$set": bson.M{"read": true, "delivered": true}},
	)
	return err
}

// conversationRow is the decoded shape of one aggregation result.
type conversationRow struct {
	ID struct {
		Partner bson.ObjectID `bson:"partner"`
	} `bson:"_id"`
	LastMessageID bson.ObjectID `bson:"last_message_id"`
	LastSender    bson.ObjectID `bson:"last_sender"`
	LastContent   string        `bson:"last_content"`
	LastCreatedAt time.Time     `bson:"last_created_at"`
	LastRead      bool          `bson:"last_read"`
	UnreadCount   int64         `bson:"unread_count"`
}

// Conversations aggregates the user's chat partners with the latest
// message per partner and the count of their messages the user has not
// read, sorted most-recent first.
func (m *MessagesStore) Conversations(ctx context.Context, user bson.ObjectID) ([]*ConversationSummary, error) {
	pipeline := mongo.Pipeline{
		// Stage 1: every message the user sent or received.
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "sender", Value: user}},
				bson.D{{Key: "recipient", Value: user}},
			}},
		}}},

		// Stage 2: chronological order so $last picks the newest message.
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}}}},

		// Stage 3: group by partner; $cond resolves which side of the
		// message is the partner for either direction.
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "partner", Value: bson.D{
					{Key: "$cond", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$sender", user}}},
						"$recipient",
						"$sender",
					}},
				}},
			}},
			{Key: "last_message_id", Value: bson.D{{Key: "$last", Value: "$_id"}}},
			{Key: "last_sender", Value: bson.D{{Key: "$last", Value: "$sender"}}},
			{Key: "last_content", Value: bson.D{{Key: "$last", Value: "$content"}}},
			{Key: "last_created_at", Value: bson.D{{Key: "$last", Value: "$created_at"}}},
			{Key: "last_read", Value: bson.D{{Key: "$last", Value: "$read"}}},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$recipient", user}}},
						bson.D{{Key: "$eq", Value: bson.A{"$read", false}}},
					}}},
					1,
					0,
				}},
			}}}},
		}}},

		// Stage 4: most recent conversation first.
		bson.D{{Key: "$sort", Value: bson.D{{Key: "last_created_at", Value: -1}}}},
	}

	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []conversationRow
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	summaries := make([]*ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, &ConversationSummary{
			Partner:       row.ID.Partner,
			LastMessageID: row.LastMessageID,
			LastSender:    row.LastSender,
			LastContent:   row.LastContent,
			LastCreatedAt: row.LastCreatedAt,
			LastRead:      row.LastRead,
			UnreadCount:   row.UnreadCount,
		})
	}
	return summaries, nil
}

// Package data provides DB models and stores.
package data

import (
	"context"
	"errors"
	"time"

	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	// ErrUserExists is returned when registration hits the unique email index.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when a lookup matches no document.
	ErrUserNotFound = errors.New("user not found")
)

// UsersStore performs user DB operations.
type UsersStore struct {
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// CreateUser inserts a new user document. The password must already be
// hashed by the caller.
func (u *UsersStore) CreateUser(ctx context.Context, name, email, mobile, hashedPassword string) (*User, error) {
	now := time.Now()
	user := &User{
		Name:      name,
		Email:     normalize.Email(email),
		Mobile:    mobile,
		Password:  hashedPassword,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetUserByEmail finds a user by email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID finds a user by ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UserExists reports whether a user document with the given id exists.
func (u *UsersStore) UserExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	count, err := u.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Search finds users whose name, email or mobile matches the query,
// excluding the searching user themselves.
func (u *UsersStore) Search(ctx context.Context, query string, exclude bson.ObjectID) ([]*User, error) {
	q := normalize.Query(query)
	filter := bson.M{
		"$or": bson.A{
			bson.M{"name": bson.M{"$regex": q, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": q, "$options": "i"}},
			bson.M{"mobile": bson.M{"$regex": q, "$options": "i"}},
		},
		"_id": bson.M{"$ne": exclude},
	}

	cursor, err := u.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SetPresence records an online/offline transition for the user and
// stamps last_seen with the transition time.
func (u *UsersStore) SetPresence(ctx context.Context, id bson.ObjectID, online bool) error {
	now := time.Now()
	_, err := u.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"is_online":  online,
		"last_seen":  now,
		"updated_at": now,
	}})
	return err
}

package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/existflow/ironplan/internal/model"
)

// UserStore provides persistence operations for users
type UserStore struct {
	col *mongo.Collection
}

// Create inserts a new user. Username and email collisions surface as
// ErrDuplicate.
func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()

	if _, err := s.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByID returns the user with the given id
func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var u model.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByUsername returns the user with the given username
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.col.FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByEmails returns the users whose email appears in the given list.
// Unknown emails are simply absent from the result.
func (s *UserStore) FindByEmails(ctx context.Context, emails []string) ([]model.User, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	cur, err := s.col.Find(ctx, bson.M{"email": bson.M{"$in": emails}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SessionStore provides persistence operations for login sessions
type SessionStore struct {
	col *mongo.Collection
}

// Create inserts a new session
func (s *SessionStore) Create(ctx context.Context, sess *model.Session) error {
	sess.ID = primitive.NewObjectID()
	sess.CreatedAt = time.Now().UTC()

	_, err := s.col.InsertOne(ctx, sess)
	return err
}

// Get returns the session with the given token
func (s *SessionStore) Get(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session
	err := s.col.FindOne(ctx, bson.M{"token": token}).Decode(&sess)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// Delete removes the session with the given token
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"token": token})
	return err
}

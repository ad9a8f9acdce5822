package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a document does not exist or is not owned
// by the requester. The two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique index rejects a write
var ErrDuplicate = errors.New("already exists")

// Store is the explicitly constructed handle to the document store. It is
// passed into the server rather than living as a package singleton.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	Projects *ProjectStore
	Users    *UserStore
	Sessions *SessionStore
}

// Connect opens the MongoDB connection and prepares collection handles
// and indexes.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client: client,
		db:     db,
	}

	users := db.Collection("users")
	s.Projects = &ProjectStore{col: db.Collection("projects"), users: users}
	s.Users = &UserStore{col: users}
	s.Sessions = &SessionStore{col: db.Collection("sessions")}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Close disconnects from the store
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ensureIndexes creates the indexes every collection relies on. It is the
// startup analog of a migration step and is safe to run repeatedly.
func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := s.db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = s.db.Collection("sessions").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: unique},
		// Expired sessions are reaped by the store itself
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	_, err = s.db.Collection("projects").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create project indexes: %w", err)
	}

	return nil
}

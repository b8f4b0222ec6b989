// Package mongo implements the user repository on MongoDB — the native
// document store for this domain: one document per user in the "users"
// collection of the "bookstore" database, books embedded as a sub-array.
//
// Mongo gives us the one thing the other backends emulate: a server-side
// atomic array push ($push). Appends here never rewrite the array from the
// client. The version field still gates every write, because the book ID the
// caller pushes was computed from a read snapshot that may be stale.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	databaseName   = "bookstore"
	collectionName = "users"

	connectTimeout = 10 * time.Second
)

// DB wraps a connected client and the users collection handle.
type DB struct {
	client *mongo.Client
	users  *mongo.Collection
}

// New connects to MongoDB at uri and prepares the users collection.
//
// Connect alone does not guarantee a reachable server — the driver connects
// lazily. Ping forces a round trip so a bad URI fails at startup, not on the
// first request.
func New(ctx context.Context, uri string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := &DB{
		client: client,
		users:  client.Database(databaseName).Collection(collectionName),
	}

	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return db, nil
}

// ensureIndexes creates the unique email index. The partial filter limits
// uniqueness to documents that actually carry an email — accounts created
// via plain POST /users have none and must not collide with each other.
func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"email": bson.M{"$exists": true}}),
	})
	if err != nil {
		return fmt.Errorf("mongo: creating email index: %w", err)
	}
	return nil
}

// Close disconnects the client. Defer it next to New's error check.
func (db *DB) Close(ctx context.Context) error {
	if err := db.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnecting: %w", err)
	}
	return nil
}

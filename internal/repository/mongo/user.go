package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts the user document. We keep xid strings as _id rather than
// ObjectIDs so user IDs look identical across all three backends.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Books == nil {
		user.Books = []model.Book{}
	}

	if _, err := db.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("mongo: inserting user %s: %w", user.ID, err)
	}
	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getBy(ctx, bson.M{"_id": id}, id)
}

func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getBy(ctx, bson.M{"email": email}, email)
}

func (db *DB) getBy(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	var u model.User
	err := db.users.FindOne(ctx, filter).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("mongo: finding user %q: %w", key, err)
	}
	if u.Books == nil {
		u.Books = []model.Book{}
	}
	return &u, nil
}

// List returns every user document in natural (insertion) order.
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	cursor, err := db.users.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo: listing users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("mongo: decoding users: %w", err)
	}
	for i := range users {
		if users[i].Books == nil {
			users[i].Books = []model.Book{}
		}
	}
	return users, nil
}

// AppendBook is an atomic server-side push, filtered on both the ID and the
// version the caller read. Matching zero documents means either the user is
// gone or the version moved — checkConditionalWrite tells the two apart.
func (db *DB) AppendBook(ctx context.Context, userID string, book model.Book, expectedVersion int64) error {
	res, err := db.users.UpdateOne(ctx,
		bson.M{"_id": userID, "version": expectedVersion},
		bson.M{
			"$push": bson.M{"books": book},
			"$inc":  bson.M{"version": 1},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("mongo: appending book for user %s: %w", userID, err)
	}
	return db.checkConditionalWrite(ctx, res.MatchedCount, userID)
}

// ReplaceBooks overwrites the whole embedded array under the same version
// condition — the removal path's full-replacement write.
func (db *DB) ReplaceBooks(ctx context.Context, userID string, books []model.Book, expectedVersion int64) error {
	if books == nil {
		books = []model.Book{}
	}
	res, err := db.users.UpdateOne(ctx,
		bson.M{"_id": userID, "version": expectedVersion},
		bson.M{
			"$set": bson.M{"books": books, "updatedAt": time.Now()},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("mongo: replacing books for user %s: %w", userID, err)
	}
	return db.checkConditionalWrite(ctx, res.MatchedCount, userID)
}

func (db *DB) checkConditionalWrite(ctx context.Context, matched int64, userID string) error {
	if matched > 0 {
		return nil
	}

	count, err := db.users.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("mongo: checking user %s exists: %w", userID, err)
	}
	if count == 0 {
		return apperror.NotFound("user", userID)
	}
	return apperror.Conflict("user", userID)
}

package mongo_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository/mongo"
)

// These tests need a running MongoDB. Point MONGO_TEST_URI at one
// (e.g. mongodb://localhost:27017) to enable them; they are skipped
// otherwise so the suite stays green without infrastructure.
func newTestDB(t *testing.T) *mongo.DB {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("Skipping mongo test: MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	db, err := mongo.New(ctx, uri)
	if err != nil {
		t.Fatalf("failed to connect to test mongo: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	return db
}

func TestMongoUserLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Name: "Alice"}
	assert.NoError(t, db.Create(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, int64(1), user.Version)

	t.Run("get by id", func(t *testing.T) {
		got, err := db.GetByID(ctx, user.ID)
		assert.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)
		assert.Empty(t, got.Books)
	})

	t.Run("append then remove", func(t *testing.T) {
		assert.NoError(t, db.AppendBook(ctx, user.ID, model.Book{ID: 1, Title: "Book1"}, 1))
		assert.NoError(t, db.AppendBook(ctx, user.ID, model.Book{ID: 2, Title: "Book2"}, 2))

		got, err := db.GetByID(ctx, user.ID)
		assert.NoError(t, err)
		assert.Len(t, got.Books, 2)
		assert.Equal(t, int64(3), got.Version)

		// Remove book 1 by replacing with the spliced remainder.
		assert.NoError(t, db.ReplaceBooks(ctx, user.ID, []model.Book{{ID: 2, Title: "Book2"}}, 3))

		got, err = db.GetByID(ctx, user.ID)
		assert.NoError(t, err)
		assert.Len(t, got.Books, 1)
		assert.Equal(t, 2, got.Books[0].ID)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		err := db.AppendBook(ctx, user.ID, model.Book{ID: 99, Title: "Stale"}, 1)
		assert.True(t, errors.Is(err, apperror.ErrConflict), "stale append should conflict, got %v", err)
	})

	t.Run("missing user not found", func(t *testing.T) {
		err := db.AppendBook(ctx, "missing-user", model.Book{ID: 1, Title: "X"}, 1)
		assert.True(t, errors.Is(err, apperror.ErrNotFound), "append to missing user, got %v", err)

		_, err = db.GetByID(ctx, "missing-user")
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})
}

package idempotency

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	pkgtesting "github.com/leathercraft/inventory-service/pkg/testing"
)

func newTestStore(t *testing.T) *MongoStore {
	t.Helper()
	pkgtesting.SkipIfShort(t)

	ctx, cancel := pkgtesting.CreateTestContext(2 * time.Minute)
	defer cancel()

	container, err := pkgtesting.NewMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	client, err := container.GetClient(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	store := NewMongoStore(client.Database("idempotency_test"))
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func candidate(key string) *Key {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Key{
		Key:           key,
		ServiceID:     "inventory-service",
		RequestMethod: http.MethodPost,
		RequestPath:   "/api/v1/records/rec-1/reserve",
		Fingerprint:   Fingerprint(http.MethodPost, "/api/v1/records/rec-1/reserve", []byte(`{"quantity":"2"}`)),
		CreatedAt:     now,
		ExpiresAt:     now.Add(DefaultRetentionPeriod),
	}
}

func TestMongoStoreLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	staleBefore := func() time.Time { return time.Now().Add(-DefaultLockTimeout) }

	first, acquired, err := store.Acquire(ctx, candidate("res-1"), staleBefore())
	require.NoError(t, err)
	require.True(t, acquired)
	assert.True(t, first.IsLocked())
	assert.Equal(t, "res-1", first.Key)

	// held by the first caller
	second, acquired, err := store.Acquire(ctx, candidate("res-1"), staleBefore())
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, store.Complete(ctx, first.ID, http.StatusOK, []byte(`{"ok":true}`), map[string]string{"Location": "/x"}))

	done, acquired, err := store.Acquire(ctx, candidate("res-1"), staleBefore())
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.True(t, done.IsCompleted())
	assert.Equal(t, http.StatusOK, done.ResponseCode)
	assert.JSONEq(t, `{"ok":true}`, string(done.ResponseBody))
	assert.Equal(t, "/x", done.ResponseHeaders["Location"])
}

func TestMongoStoreReleaseAndStaleLock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, acquired, err := store.Acquire(ctx, candidate("res-2"), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, store.Release(ctx, first.ID))
	again, acquired, err := store.Acquire(ctx, candidate("res-2"), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, first.ID, again.ID)

	// a lock older than staleBefore is taken over
	taken, acquired, err := store.Acquire(ctx, candidate("res-2"), time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.Equal(t, first.ID, taken.ID)
}

func TestMongoStoreUniqueIndexIsRequired(t *testing.T) {
	store := newTestStore(t)

	_, err := store.collection.InsertOne(context.Background(), candidate("res-3"))
	require.NoError(t, err)
	_, err = store.collection.InsertOne(context.Background(), candidate("res-3"))
	assert.True(t, mongo.IsDuplicateKeyError(err))
}

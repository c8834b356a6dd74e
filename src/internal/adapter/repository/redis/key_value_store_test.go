package redis

import (
	"context"
	"os"
	"testing"

	"github.com/api-sage/moneytransfer/src/internal/commons"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueStoreAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, Options{Addr: addr, Prefix: "moneytransfer-test:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(ctx, "token")
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)

	require.NoError(t, store.Set(ctx, "token", "abc"))
	got, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	require.NoError(t, store.Delete(ctx, "token"))
	_, err = store.Get(ctx, "token")
	assert.ErrorIs(t, err, commons.ErrRecordNotFound)
}

func TestKeyValueStorePrefixesKeys(t *testing.T) {
	store := NewKeyValueStore(nil, "moneytransfer:")
	assert.Equal(t, "moneytransfer:currentUser", store.key("currentUser"))
}

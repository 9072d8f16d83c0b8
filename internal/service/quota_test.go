package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/videora/internal/client/storage"
	"github.com/atinyakov/videora/internal/service"
)

func TestQuota(t *testing.T) {
	store := storage.NewMemoryStore()
	q := service.NewQuota(store, 3)

	assert.Equal(t, 3, q.Remaining())
	require.NoError(t, q.Consume())
	require.NoError(t, q.Consume())
	assert.False(t, q.LimitReached())
	require.NoError(t, q.Consume())

	assert.True(t, q.LimitReached())
	assert.Equal(t, 0, q.Remaining())
	assert.ErrorIs(t, q.Consume(), service.ErrQueryLimitReached)
	assert.Equal(t, 3, q.Used())

	require.NoError(t, q.Reset())
	assert.Equal(t, 0, q.Used())
	assert.False(t, q.LimitReached())
}

func TestQuota_PersistedCounter(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(storage.KeyQueryCount, "4"))

	q := service.NewQuota(store, 5)
	require.NoError(t, q.Consume())
	assert.ErrorIs(t, q.Consume(), service.ErrQueryLimitReached)
}

func TestQuota_Unlimited(t *testing.T) {
	q := service.NewQuota(storage.NewMemoryStore(), 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Consume())
	}
	assert.Equal(t, -1, q.Remaining())
	assert.False(t, q.LimitReached())
}

func TestQuota_Refund(t *testing.T) {
	store := storage.NewMemoryStore()
	q := service.NewQuota(store, 1)

	require.NoError(t, q.Refund())
	assert.Equal(t, 0, q.Used())

	require.NoError(t, q.Consume())
	require.True(t, q.LimitReached())
	require.NoError(t, q.Refund())

	assert.Equal(t, 0, q.Used())
	assert.False(t, q.LimitReached())
	assert.NoError(t, q.Consume())
}

package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Connect(filepath.Join(t.TempDir(), "subscribers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertAndGet(t *testing.T) {
	repo := NewSubscriberRepository(testDB(t))

	require.NoError(t, repo.Upsert(42, "alice"))
	sub, err := repo.Get(42)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "alice", sub.Username)
	assert.True(t, sub.Enabled)
	assert.False(t, sub.IsAdmin)

	// Re-registering refreshes the username without duplicating the row
	require.NoError(t, repo.Upsert(42, "alice2"))
	sub, err = repo.Get(42)
	require.NoError(t, err)
	assert.Equal(t, "alice2", sub.Username)
}

func TestGetUnknownChatReturnsNil(t *testing.T) {
	repo := NewSubscriberRepository(testDB(t))
	sub, err := repo.Get(999)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestEnabledListsOnlyEnabledSubscribers(t *testing.T) {
	repo := NewSubscriberRepository(testDB(t))
	require.NoError(t, repo.Upsert(1, "a"))
	require.NoError(t, repo.Upsert(2, "b"))
	require.NoError(t, repo.SetEnabled(1, false))

	subs, err := repo.Enabled()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(2), subs[0].ChatID)
}

func TestForHourFiltersByReminderHourAndEnabled(t *testing.T) {
	repo := NewSubscriberRepository(testDB(t))
	require.NoError(t, repo.Upsert(1, "a"))
	require.NoError(t, repo.Upsert(2, "b"))
	require.NoError(t, repo.Upsert(3, "c"))
	require.NoError(t, repo.SetNotificationHour(1, 9))
	require.NoError(t, repo.SetNotificationHour(2, 9))
	require.NoError(t, repo.SetNotificationHour(3, 18))
	require.NoError(t, repo.SetEnabled(2, false))

	subs, err := repo.ForHour(9)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(1), subs[0].ChatID)

	subs, err = repo.ForHour(18)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(3), subs[0].ChatID)
}

func TestSetNotificationHourRejectsOutOfRange(t *testing.T) {
	repo := NewSubscriberRepository(testDB(t))
	require.NoError(t, repo.Upsert(1, "a"))

	assert.Error(t, repo.SetNotificationHour(1, -1))
	assert.Error(t, repo.SetNotificationHour(1, 24))

	require.NoError(t, repo.SetNotificationHour(1, 0))
	sub, err := repo.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.NotificationHour)
}

func TestSetAdmin(t *testing.T) {
	repo := NewSubscriberRepository(testDB(t))
	require.NoError(t, repo.Upsert(7, "op"))
	require.NoError(t, repo.SetAdmin(7, true))

	sub, err := repo.Get(7)
	require.NoError(t, err)
	assert.True(t, sub.IsAdmin)
}

package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"discord-persona-bot/internal/config"
	"discord-persona-bot/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "chat_history.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAppendTurn_AssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)

	turn, err := db.AppendTurn(context.Background(), 1, 2, models.RoleUser, "hello 👋")
	require.NoError(t, err)
	require.NotZero(t, turn.ID)
	require.False(t, turn.CreatedAt.IsZero())
	require.Equal(t, models.RoleUser, turn.Role)
	require.Equal(t, "hello 👋", turn.Text)
}

func TestRecentTurns_EmptyPartition(t *testing.T) {
	db := newTestDB(t)

	turns, err := db.RecentTurns(context.Background(), 1, 2, 10)
	require.NoError(t, err)
	require.NotNil(t, turns)
	require.Empty(t, turns)
}

func TestRecentTurns_NewestFirstAndBounded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := db.AppendTurn(ctx, 1, 2, models.RoleUser, fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	turns, err := db.RecentTurns(ctx, 1, 2, 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, "msg-4", turns[0].Text)
	require.Equal(t, "msg-3", turns[1].Text)
	require.Equal(t, "msg-2", turns[2].Text)
}

func TestRecentTurns_FewerThanLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.AppendTurn(ctx, 1, 2, models.RoleUser, "q")
	require.NoError(t, err)
	_, err = db.AppendTurn(ctx, 1, 2, models.RoleAssistant, "a")
	require.NoError(t, err)

	turns, err := db.RecentTurns(ctx, 1, 2, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, models.RoleAssistant, turns[0].Role)
	require.Equal(t, models.RoleUser, turns[1].Role)
}

func TestRecentTurns_PartitionIsolation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.AppendTurn(ctx, 1, 2, models.RoleUser, "mine")
	require.NoError(t, err)
	_, err = db.AppendTurn(ctx, 1, 3, models.RoleUser, "other channel")
	require.NoError(t, err)
	_, err = db.AppendTurn(ctx, 9, 2, models.RoleUser, "other user")
	require.NoError(t, err)

	turns, err := db.RecentTurns(ctx, 1, 2, 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "mine", turns[0].Text)
}

func TestRecentTurns_NonPositiveLimitClampsToOne(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, text := range []string{"a", "b"} {
		_, err := db.AppendTurn(ctx, 1, 2, models.RoleUser, text)
		require.NoError(t, err)
	}

	for _, limit := range []int{0, -5} {
		turns, err := db.RecentTurns(ctx, 1, 2, limit)
		require.NoError(t, err)
		require.Len(t, turns, 1, "limit=%d", limit)
		require.Equal(t, "b", turns[0].Text)
	}
}

func TestStorageError_AfterClose(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())

	_, err := db.AppendTurn(context.Background(), 1, 2, models.RoleUser, "x")
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	require.Equal(t, "append turn", storageErr.Op)

	_, err = db.RecentTurns(context.Background(), 1, 2, 1)
	require.True(t, errors.As(err, &storageErr))
	require.Equal(t, "recent turns", storageErr.Op)
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB(config.Database{Driver: "mysql"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")
}

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelhub/pkg/models"
)

func newTestStore(t *testing.T) *SeenStore {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "seen.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return NewSeenStore(db)
}

func TestSeenStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seen, err := s.IsSeen(ctx, models.SourceArchive, "item-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.MarkSeen(ctx, models.SourceArchive, "item-1", "archive-item-1"))

	seen, err = s.IsSeen(ctx, models.SourceArchive, "item-1")
	require.NoError(t, err)
	assert.True(t, seen)

	// same original id under a different source is a separate record
	seen, err = s.IsSeen(ctx, models.SourceChatCommunity, "item-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMarkSeen_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.MarkSeen(ctx, models.SourceArchive, "item-1", "a"))
	require.NoError(t, s.MarkSeen(ctx, models.SourceArchive, "item-1", "a"))

	n, err := s.SeenCount(ctx, models.SourceArchive)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSeenCount_PerSource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.MarkSeen(ctx, models.SourceArchive, "a", "1"))
	require.NoError(t, s.MarkSeen(ctx, models.SourceArchive, "b", "2"))
	require.NoError(t, s.MarkSeen(ctx, models.SourceReleaseFeed, "a", "3"))

	n, err := s.SeenCount(ctx, models.SourceArchive)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.SeenCount(ctx, models.SourceChatCommunity)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_LogAndListUsage(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec, err := s.LogUsage(ctx, "mapped traits to genres", []string{
		"https://docs.example.com/genres",
		"https://docs.example.com/metatags",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	records, err := s.ListUsage(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, "mapped traits to genres", records[0].Content)
	assert.Equal(t, []string{
		"https://docs.example.com/genres",
		"https://docs.example.com/metatags",
	}, records[0].SourceURLs)
}

func TestSQLite_ListUsageLimit(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for range 5 {
		_, err := s.LogUsage(ctx, "entry", []string{"https://a.example.com"})
		require.NoError(t, err)
	}

	records, err := s.ListUsage(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// Non-positive limit falls back to the default.
	records, err = s.ListUsage(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestNewStore_UnknownDriver(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewStore_DefaultsToSQLite(t *testing.T) {
	s, err := NewStore(context.Background(), Config{DatabaseURL: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
}

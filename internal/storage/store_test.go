package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v1", got)

	require.NoError(t, s.Set(ctx, "k", "v2"))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", got)

	require.NoError(t, s.Remove(ctx, "k"))
	require.NoError(t, s.Remove(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "widget.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "bellhop_session_abc", `{"sessionId":"session_1"}`))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, "bellhop_session_abc")
	require.NoError(t, err)
	require.Equal(t, `{"sessionId":"session_1"}`, got)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, 0)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Kind: KindNone})
	require.NoError(t, err)
	require.ErrorIs(t, s.Set(ctx, "k", "v"), ErrUnavailable)

	_, err = Open(ctx, Options{Kind: "floppy"})
	require.Error(t, err)

	_, err = Open(ctx, Options{Kind: KindSQLite})
	require.Error(t, err)
}

package cachestore

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrybecker4/applets-sub001/internal/cache"
	"github.com/barrybecker4/applets-sub001/internal/zobrist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func filledCache(n int) *cache.ScoreCache {
	c := cache.NewUnbounded()
	for i := 1; i <= n; i++ {
		c.Put(zobrist.Key(uint64(i)<<40|uint64(i)), cache.Entry{Score: i * 3, Depth: i % 4, Bound: cache.Bound(i % 3)})
	}
	return c
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	src := filledCache(50)
	n, err := s.Save(ctx, "3x3k3", src)
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	dst := cache.NewUnbounded()
	n, err = s.Load(ctx, "3x3k3", dst)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	assert.ElementsMatch(t, src.Snapshot(), dst.Snapshot())
	assert.Zero(t, dst.Hits()+dst.Misses(), "loading does not count as lookups")
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Save(ctx, "g", filledCache(20))
	require.NoError(t, err)
	_, err = s.Save(ctx, "g", filledCache(5))
	require.NoError(t, err)

	records, err := s.Records(ctx, "g")
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestSnapshotsAreSeparate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Save(ctx, "3x3k3", filledCache(3))
	require.NoError(t, err)
	_, err = s.Save(ctx, "4x4k3", filledCache(7))
	require.NoError(t, err)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"3x3k3", "4x4k3"}, names)

	require.NoError(t, s.Delete("3x3k3"))
	records, err := s.Records(ctx, "3x3k3")
	require.NoError(t, err)
	assert.Empty(t, records)
	records, err = s.Records(ctx, "4x4k3")
	require.NoError(t, err)
	assert.Len(t, records, 7)
}

func TestMissingSnapshotLoadsNothing(t *testing.T) {
	c := cache.NewUnbounded()
	n, err := openTestStore(t).Load(context.Background(), "nothing", c)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, c.NumEntries())
}

func TestInvalidNames(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Save(context.Background(), "", cache.NewUnbounded())
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = s.Records(context.Background(), "a/b")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := openTestStore(t).Save(ctx, "g", filledCache(2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{}, zerolog.Nop())
	assert.Error(t, err)

	s, err := Open(Config{Path: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

package ast

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/astedit/core/internal/deflate"
)

func readFile(t *testing.T, path ...string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(path...))
	require.NoError(t, err)
	return data
}

func TestExtractRecursive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	stats, err := Extract(context.Background(), bytes.NewReader(deepFixture(t)), addr(deepMiddle...), dir,
		ExtractWithRecursive(true),
		ExtractWithObserver(rec),
		ExtractWithConcurrency(2),
	)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Processed)
	assert.Equal(t, 0, stats.Skipped)

	assert.Equal(t, []byte("DB middle"), readFile(t, dir, "0.db"))
	assert.Equal(t, innerContainer(t), readFile(t, dir, "1.ast"))
	assert.Equal(t, dat(50, 2), readFile(t, dir, "2.dat"))
	assert.Equal(t, bytes.Repeat([]byte("xyz"), 100), readFile(t, dir, "1", "1.dat"))
	assert.Equal(t, texture(), readFile(t, dir, "1", "3.p3r"))
	assert.Equal(t, []byte("<tail/>"), readFile(t, dir, "1", "4.xml"))

	assert.ElementsMatch(t, []int{13, 25, 38, 50, 63, 75, 88, 100}, rec.progress)
}

func TestExtractStored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stats, err := Extract(context.Background(), bytes.NewReader(deepFixture(t)), Address{Root: "0"}, dir,
		ExtractWithDecompress(false),
	)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Processed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"0.dat", "1.dat", "2.ast", "3.dat" + StoredExt}, names)

	stored := readFile(t, dir, "3.dat"+StoredExt)
	inflated, err := deflate.Decompress(stored, 0)
	require.NoError(t, err)
	assert.Equal(t, dat(400, 5), inflated)
	assert.Equal(t, middleContainer(t), readFile(t, dir, "2.ast"))
}

func TestExtractSkipsExisting(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	dir := t.TempDir()
	ctx := context.Background()

	_, err := Extract(ctx, bytes.NewReader(data), Address{Root: "0"}, dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0.dat"), []byte("edited"), 0o600))

	rec := newRecorder()
	stats, err := Extract(ctx, bytes.NewReader(data), Address{Root: "0"}, dir, ExtractWithObserver(rec))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
	assert.Equal(t, 4, stats.Skipped)
	assert.Equal(t, []int{100}, rec.progress)
	assert.Equal(t, []byte("edited"), readFile(t, dir, "0.dat"))

	stats, err = Extract(ctx, bytes.NewReader(data), Address{Root: "0"}, dir, ExtractWithOverwrite(true))
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, dat(20, 3), readFile(t, dir, "0.dat"))
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	ctx := context.Background()

	_, err := Extract(ctx, bytes.NewReader(data), addr(0), t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Extract(ctx, bytes.NewReader(data), addr(9), t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Extract(ctx, bytes.NewReader(data), addr(deepMiddle...), t.TempDir(), ExtractWithMaxEntrySize(16))
	require.ErrorIs(t, err, ErrSizeOverflow)
}

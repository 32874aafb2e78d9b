package ast

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/astedit/core/testutil"
)

// largeRoot builds a 727-entry root: entry 0 is data, 0xE a compressed
// container, 0xF a compressed P3R/DXT1 texture and 0x15 a DDS texture.
func largeRoot(t *testing.T) []byte {
	t.Helper()
	items := make([]testutil.Item, 727)
	for i := range items {
		items[i] = testutil.Leaf([]byte{0x00, byte(i), byte(i >> 8)})
	}
	items[0xE] = testutil.Deflated(innerContainer(t))
	items[0xF] = testutil.Deflated(texture())
	items[0x15] = testutil.Leaf(testutil.Texture(KindDDS, FormatDXT5, 32, 32))
	return testutil.Container(t, items...)
}

func TestParseListing(t *testing.T) {
	t.Parallel()

	data := largeRoot(t)
	c, err := Parse(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, c.Entries, 727)
	for i, e := range c.Entries {
		require.Equal(t, i, e.Index)
	}
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, int64(len(data)), c.Size)

	assert.Equal(t, KindDAT, c.Entries[0].Kind)
	assert.Equal(t, KindAST, c.Entries[0xE].Kind)
	assert.Nil(t, c.Entries[0xE].Nested, "no recursion requested")
	assert.True(t, c.Entries[0xE].Compressed())

	tex := c.Entries[0xF]
	assert.Equal(t, KindP3R, tex.Kind)
	assert.Equal(t, FormatDXT1, tex.Format)
	assert.Empty(t, tex.Preview)
}

func TestParseAssignsDistinctIDs(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	a, err := Parse(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	b, err := Parse(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestParsePreviews(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	c, err := Parse(context.Background(), bytes.NewReader(largeRoot(t)),
		WithPreviews(true),
		WithObserver(rec),
		WithAddress(Address{Root: "0"}),
	)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(c.Entries[0xF].Preview, PreviewPrefix))
	assert.True(t, strings.HasPrefix(c.Entries[0x15].Preview, PreviewPrefix))
	assert.Empty(t, c.Entries[0].Preview, "blank preview if not a texture")

	assert.Equal(t, c.Entries[0xF].Preview, rec.previews["0_15"])
	assert.Equal(t, c.Entries[0x15].Preview, rec.previews["0_21"])
	assert.Len(t, rec.previews, 2)
	assert.Equal(t, []string{"0"}, rec.done)
}

func TestParsePreviewFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	broken := testutil.Texture(KindDDS, FormatDXT1, 16, 16)[:0x90] // mip truncated
	data := testutil.Container(t,
		testutil.Leaf(broken),
		testutil.Leaf(testutil.Texture(KindDDS, FormatNone, 4, 4)),
	)

	rec := newRecorder()
	c, err := Parse(context.Background(), bytes.NewReader(data), WithPreviews(true), WithObserver(rec))
	require.NoError(t, err)

	assert.Equal(t, KindDDS, c.Entries[0].Kind)
	assert.Empty(t, c.Entries[0].Preview)
	assert.NotEmpty(t, c.Entries[1].Preview)
	assert.Len(t, rec.previews, 1)
}

func TestParseRecursive(t *testing.T) {
	t.Parallel()

	c, err := Parse(context.Background(), bytes.NewReader(deepFixture(t)), WithRecursive(true), WithConcurrency(2))
	require.NoError(t, err)

	middle := c.Entries[2].Nested
	require.NotNil(t, middle)
	require.Len(t, middle.Entries, 3)
	assert.Equal(t, KindDB, middle.Entries[0].Kind)

	inner := middle.Entries[1].Nested
	require.NotNil(t, inner)
	require.Len(t, inner.Entries, 5)
	assert.Equal(t, KindP3R, inner.Entries[3].Kind)
	assert.Equal(t, KindXML, inner.Entries[4].Kind)
	assert.Equal(t, "tail", inner.Entries[4].Description)
	assert.NotEqual(t, c.ID, middle.ID)
}

func TestParseDescendPath(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)

	t.Run("ToContainer", func(t *testing.T) {
		t.Parallel()
		c, err := Parse(context.Background(), bytes.NewReader(data), WithDescendPath(deepInner))
		require.NoError(t, err)

		assert.False(t, c.Entries[0].Sniffed(), "siblings stay unsniffed")
		assert.False(t, c.Entries[3].Sniffed())

		middle := c.Entries[2].Nested
		require.NotNil(t, middle)
		assert.False(t, middle.Entries[0].Sniffed())

		inner := middle.Entries[1].Nested
		require.NotNil(t, inner)
		for _, e := range inner.Entries {
			assert.True(t, e.Sniffed(), "target container is listed in full")
		}
		assert.Nil(t, inner.Entries[3].Nested)
	})

	t.Run("ToLeaf", func(t *testing.T) {
		t.Parallel()
		rec := newRecorder()
		c, err := Parse(context.Background(), bytes.NewReader(data),
			WithDescendPath(deepTexture), WithPreviews(true), WithObserver(rec), WithAddress(Address{Root: "4"}))
		require.NoError(t, err)

		inner := c.Entries[2].Nested.Entries[1].Nested
		leaf := inner.Entries[3]
		assert.Equal(t, KindP3R, leaf.Kind)
		assert.NotEmpty(t, leaf.Preview)
		assert.False(t, inner.Entries[0].Sniffed())
		assert.Contains(t, rec.previews, "4_2_1_3")
	})

	t.Run("EmptyPathListsRoot", func(t *testing.T) {
		t.Parallel()
		c, err := Parse(context.Background(), bytes.NewReader(data), WithDescendPath(nil))
		require.NoError(t, err)
		for _, e := range c.Entries {
			assert.True(t, e.Sniffed())
		}
		assert.Nil(t, c.Entries[2].Nested)
	})

	t.Run("MissingIndex", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(context.Background(), bytes.NewReader(data), WithDescendPath([]int{2, 9}))
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ThroughLeaf", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(context.Background(), bytes.NewReader(data), WithDescendPath([]int{0, 1}))
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(context.Background(), bytes.NewReader([]byte("BGFA1 but far too short")))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("CorruptDeflate", func(t *testing.T) {
		t.Parallel()
		data := testutil.Container(t, testutil.Deflated(bytes.Repeat([]byte("a"), 64)))
		c, err := Parse(context.Background(), bytes.NewReader(data))
		require.NoError(t, err)
		start := c.Entries[0].Start
		data[start], data[start+1] = 0xFF, 0xFF

		_, err = Parse(context.Background(), bytes.NewReader(data))
		require.ErrorIs(t, err, ErrDecompression)
	})

	t.Run("EntryTooLarge", func(t *testing.T) {
		t.Parallel()
		data := testutil.Container(t, testutil.Leaf(dat(64, 1)))
		_, err := Parse(context.Background(), bytes.NewReader(data), WithMaxEntrySize(16))
		require.ErrorIs(t, err, ErrSizeOverflow)
	})

	t.Run("Canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Parse(ctx, bytes.NewReader(deepFixture(t)))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)

	e, err := Resolve(context.Background(), bytes.NewReader(data), addr(deepTexture...))
	require.NoError(t, err)
	assert.Equal(t, 3, e.Index)
	assert.Equal(t, KindP3R, e.Kind)
	assert.Equal(t, FormatDXT1, e.Format)
	assert.True(t, e.Compressed())

	e, err = Resolve(context.Background(), bytes.NewReader(data), addr(deepInner...))
	require.NoError(t, err)
	assert.Equal(t, KindAST, e.Kind)

	_, err = Resolve(context.Background(), bytes.NewReader(data), addr(2, 1, 5))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve(context.Background(), bytes.NewReader(data), addr(3, 0))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Resolve(context.Background(), bytes.NewReader(data), addr())
	require.ErrorIs(t, err, ErrNotFound)
}

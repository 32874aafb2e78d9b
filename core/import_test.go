package ast

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/astedit/core/internal/deflate"
	"github.com/meigma/astedit/core/internal/toc"
	"github.com/meigma/astedit/core/testutil"
)

func importBytes(t *testing.T, data []byte, a Address, payload []byte, opts ...ImportOption) *ImportResult {
	t.Helper()
	res, err := Import(context.Background(), bytes.NewReader(data), a, payload, opts...)
	require.NoError(t, err)
	return res
}

// levelTOC decodes the container reached by exporting path from data.
func levelTOC(t *testing.T, data []byte, path ...int) (*toc.TOC, []byte) {
	t.Helper()
	raw := data
	if len(path) > 0 {
		raw = exportBytes(t, data, addr(path...), ExportWithDecompress(true))
	}
	parsed, err := toc.Decode(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	return parsed, raw
}

func TestImportRoundTripIdentity(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	first := exportBytes(t, data, addr(deepTexture...))

	res := importBytes(t, data, addr(deepTexture...), first, ImportWithCompress(false))
	assert.False(t, res.Changed)
	assert.Equal(t, digest.FromBytes(data), digest.FromBytes(res.Data))

	second := exportBytes(t, res.Data, addr(deepTexture...))
	assert.Equal(t, digest.FromBytes(first), digest.FromBytes(second))
}

func TestImportDefaultOptionsRoundTrip(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	first := exportBytes(t, data, addr(deepTexture...))

	res := importBytes(t, data, addr(deepTexture...), first)
	assert.False(t, res.Changed)
	assert.Equal(t, data, res.Data)

	second := exportBytes(t, res.Data, addr(deepTexture...))
	assert.Equal(t, first, second)
}

func TestImportForcedCompressDeflatesStream(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	stored := exportBytes(t, data, addr(deepTexture...))

	res := importBytes(t, data, addr(deepTexture...), stored, ImportWithCompress(true))
	assert.True(t, res.Changed)
	plain := exportBytes(t, res.Data, addr(deepTexture...), ExportWithDecompress(true))
	assert.Equal(t, stored, plain)
}

func TestImportSameContentKeepsRoot(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	plain := exportBytes(t, data, addr(deepTexture...), ExportWithDecompress(true))

	res := importBytes(t, data, addr(deepTexture...), plain)
	assert.False(t, res.Changed)
	assert.Equal(t, data, res.Data)
}

func TestImportNestedInvariant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
	}{
		{"Larger", bytes.Repeat(testutil.Texture(KindP3R, FormatDXT1, 64, 64), 3)},
		{"Smaller", testutil.Texture(KindP3R, FormatDXT1, 16, 16)[:0x90]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data := deepFixture(t)
			res := importBytes(t, data, addr(deepTexture...), tt.payload)
			require.True(t, res.Changed)

			got := exportBytes(t, res.Data, addr(deepTexture...), ExportWithDecompress(true))
			assert.Equal(t, tt.payload, got)

			// At every level, entries off the path keep their bytes and size,
			// entries before the path keep their start, and later entries
			// keep theirs unless the path entry changed size.
			for depth := 0; depth < len(deepTexture); depth++ {
				before, beforeRaw := levelTOC(t, data, deepTexture[:depth]...)
				after, afterRaw := levelTOC(t, res.Data, deepTexture[:depth]...)
				target := deepTexture[depth]
				require.Len(t, after.Records, len(before.Records))

				sizeChanged := before.Records[target].Size != after.Records[target].Size
				for i := range before.Records {
					b, a := before.Records[i], after.Records[i]
					assert.Equal(t, b.ID, a.ID)
					assert.Equal(t, b.Description, a.Description)
					if i == target {
						continue
					}
					assert.Equal(t, beforeRaw[b.Start:b.End()], afterRaw[a.Start:a.End()], "depth %d entry %d", depth, i)
					assert.Equal(t, b.Size, a.Size)
					if i < target || !sizeChanged {
						assert.Equal(t, b.Start, a.Start, "depth %d entry %d", depth, i)
					}
				}
				assert.Equal(t, beforeRaw[:0x24], afterRaw[:0x24], "header of depth %d", depth)
			}
		})
	}
}

func TestImportUncompressedLeaf(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	payload := []byte("\x00replacement data that is longer than before")
	res := importBytes(t, data, addr(2, 1, 2), payload)

	after, raw := levelTOC(t, res.Data, deepInner...)
	rec := after.Records[2]
	assert.Zero(t, rec.UncompressedSize)
	assert.Equal(t, payload, raw[rec.Start:rec.End()])
}

func TestImportCompressedLeafUpdatesSizes(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	payload := bytes.Repeat([]byte("abc"), 1000)
	res := importBytes(t, data, addr(2, 1, 1), payload)

	after, raw := levelTOC(t, res.Data, deepInner...)
	rec := after.Records[1]
	assert.Equal(t, uint64(len(payload)), rec.UncompressedSize)
	plain, err := deflate.Decompress(raw[rec.Start:rec.End()], 0)
	require.NoError(t, err)
	assert.Equal(t, payload, plain)
}

func TestImportPreDeflatedPayload(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	content := bytes.Repeat([]byte("predeflated "), 50)
	stored, err := deflate.NewPool(9).Compress(content)
	require.NoError(t, err)

	res := importBytes(t, data, addr(2, 1, 1), stored, ImportWithCompress(false))
	after, raw := levelTOC(t, res.Data, deepInner...)
	rec := after.Records[1]
	assert.Equal(t, stored, raw[rec.Start:rec.End()])
	assert.Equal(t, uint64(len(content)), rec.UncompressedSize)

	_, err = Import(context.Background(), bytes.NewReader(data), addr(2, 1, 1), []byte("not zlib"), ImportWithCompress(false))
	require.ErrorIs(t, err, ErrDecompression)
}

func TestImportProgress(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	importBytes(t, deepFixture(t), addr(deepTexture...), []byte("p3R\x02 new"), ImportWithObserver(rec))

	require.Len(t, rec.progress, 6)
	for i := 1; i < len(rec.progress); i++ {
		assert.GreaterOrEqual(t, rec.progress[i], rec.progress[i-1])
	}
	assert.Equal(t, 100, rec.progress[len(rec.progress)-1])
	assert.Equal(t, []int{17, 33, 50, 67, 83, 100}, rec.progress)
}

func TestImportConversionSymmetry(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	dds := exportBytes(t, data, addr(deepTexture...), ExportWithConversion(ConvertP3RToDDS))
	require.True(t, bytes.HasPrefix(dds, []byte("DDS ")))

	res := importBytes(t, data, addr(deepTexture...), dds, ImportWithConversion(ConvertDDSToP3R))
	assert.Equal(t, data, res.Data)

	_, err := Import(context.Background(), bytes.NewReader(data), addr(deepTexture...), texture(),
		ImportWithConversion(ConvertDDSToP3R))
	require.ErrorIs(t, err, ErrConversion)
}

func TestImportPreview(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)

	t.Run("TextureOverTexture", func(t *testing.T) {
		t.Parallel()
		rec := newRecorder()
		tex := testutil.Texture(KindDDS, FormatDXT5, 32, 32)
		res := importBytes(t, data, addr(deepTexture...), tex, ImportWithObserver(rec))
		require.True(t, strings.HasPrefix(res.Preview, PreviewPrefix))
		assert.Equal(t, res.Preview, rec.previews["0_2_1_3"])
	})

	t.Run("TextureOverData", func(t *testing.T) {
		t.Parallel()
		rec := newRecorder()
		tex := testutil.Texture(KindDDS, FormatDXT1, 8, 8)
		res := importBytes(t, data, addr(2, 1, 2), tex, ImportWithObserver(rec))
		assert.Empty(t, res.Preview)
		assert.Empty(t, rec.previews)

		res = importBytes(t, data, addr(2, 1, 2), tex, ImportWithObserver(rec), ImportWithForcePreview(true))
		assert.NotEmpty(t, res.Preview)
	})
}

func TestImportErrors(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)

	_, err := Import(context.Background(), bytes.NewReader(data), addr(2, 1, 9), []byte("x"))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Import(context.Background(), bytes.NewReader(data), addr(), []byte("x"))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = Import(context.Background(), bytes.NewReader(data), addr(deepTexture...), nil)
	require.ErrorIs(t, err, ErrSizeOverflow)

	_, err = Import(context.Background(), bytes.NewReader(data), addr(deepTexture...), bytes.Repeat([]byte("a"), 64),
		ImportWithMaxEntrySize(32))
	require.ErrorIs(t, err, ErrSizeOverflow)
}

func TestImportFile(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	path := filepath.Join(t.TempDir(), "root.ast")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var hooked []WriteInfo
	hook := func(_ context.Context, info WriteInfo) error {
		onDisk, err := os.ReadFile(info.Path)
		require.NoError(t, err)
		assert.Equal(t, data, onDisk, "hook runs before the write")
		hooked = append(hooked, info)
		return nil
	}

	payload := []byte("\x00new leaf")
	res, err := ImportFile(context.Background(), path, addr(2, 1, 2), payload, ImportWithBeforeWrite(hook))
	require.NoError(t, err)
	require.True(t, res.Changed)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Data, onDisk)

	require.Len(t, hooked, 1)
	assert.Equal(t, "0_2_1_2", hooked[0].Address.String())
	assert.Equal(t, dat(37, 1), hooked[0].Pristine)
	assert.Equal(t, 2, hooked[0].Entry.Index)

	src, err := OpenFile(path)
	require.NoError(t, err)
	defer src.Close()
	var buf bytes.Buffer
	_, err = Export(context.Background(), src, addr(2, 1, 2), &buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf.Bytes())
}

func TestImportFileUnchangedSkipsWrite(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	path := filepath.Join(t.TempDir(), "root.ast")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	called := false
	hook := func(context.Context, WriteInfo) error {
		called = true
		return nil
	}
	res, err := ImportFile(context.Background(), path, addr(2, 1, 2), dat(37, 1), ImportWithBeforeWrite(hook))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.False(t, called)
}

func TestImportFileHookAborts(t *testing.T) {
	t.Parallel()

	data := deepFixture(t)
	path := filepath.Join(t.TempDir(), "root.ast")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	errHook := errors.New("snapshot failed")
	_, err := ImportFile(context.Background(), path, addr(2, 1, 2), []byte("\x00changed"),
		ImportWithBeforeWrite(func(context.Context, WriteInfo) error { return errHook }))
	require.ErrorIs(t, err, errHook)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)
}

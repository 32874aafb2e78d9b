package deflate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/astedit/core/internal/asttype"
)

func TestCompressDecompress(t *testing.T) {
	t.Parallel()

	pool := NewPool(DefaultLevel)
	data := bytes.Repeat([]byte("head coach texture block "), 200)

	compressed, err := pool.Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data))
	assert.Equal(t, byte(0x78), compressed[0], "zlib header")

	got, err := Decompress(compressed, 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPoolReuse(t *testing.T) {
	t.Parallel()

	pool := NewPool(9)
	assert.Equal(t, 9, pool.Level())
	for i := range 4 {
		data := bytes.Repeat([]byte{byte(i)}, 1000+i)
		c, err := pool.Compress(data)
		require.NoError(t, err)
		got, err := Decompress(c, 0)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	}
}

func TestInvalidLevelFallsBack(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultLevel, NewPool(42).Level())
}

func TestDecompressErrors(t *testing.T) {
	t.Parallel()

	_, err := Decompress([]byte{0x00, 0x01, 0x02}, 0)
	require.ErrorIs(t, err, asttype.ErrDecompression)

	compressed, err := NewPool(DefaultLevel).Compress(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)

	_, err = Decompress(compressed[:len(compressed)/2], 0)
	require.ErrorIs(t, err, asttype.ErrDecompression)

	_, err = Decompress(compressed, 100)
	require.ErrorIs(t, err, asttype.ErrSizeOverflow)
}

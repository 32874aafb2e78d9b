package sizing

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("overflow")

func TestFits(t *testing.T) {
	t.Parallel()

	assert.True(t, Fits(0, 0))
	assert.False(t, Fits(1, 0))
	assert.True(t, Fits(0xFF, 1))
	assert.False(t, Fits(0x100, 1))
	assert.True(t, Fits(0xFFFFFF, 3))
	assert.False(t, Fits(0x1000000, 3))
	assert.True(t, Fits(math.MaxUint64, 8))
}

func TestUintRoundTrip(t *testing.T) {
	t.Parallel()

	for width := 1; width <= MaxWidth; width++ {
		v := uint64(0x0102030405060708) >> (8 * uint(MaxWidth-width))
		b := make([]byte, width)
		PutUint(b, v)
		assert.Equal(t, v, Uint(b), "width %d", width)
	}

	b := make([]byte, 3)
	PutUint(b, 0xABCDEF)
	assert.Equal(t, []byte{0xAB, 0xCD, 0xEF}, b)
}

func TestAddUint64(t *testing.T) {
	t.Parallel()

	sum, ok := AddUint64(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), sum)

	_, ok = AddUint64(math.MaxUint64, 1)
	assert.False(t, ok)
}

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	data, err := ReadAllWithLimit(bytes.NewReader([]byte("abcd")), 4, errTest)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), data)

	_, err = ReadAllWithLimit(bytes.NewReader([]byte("abcde")), 4, errTest)
	require.ErrorIs(t, err, errTest)

	data, err = ReadAllWithLimit(bytes.NewReader([]byte("abcde")), 0, errTest)
	require.NoError(t, err)
	assert.Len(t, data, 5)
}

package util

import (
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressorRoundTrip(t *testing.T) {
	c, err := NewCompressor(3)
	require.NoError(t, err)

	original := []byte("this is a recording archive payload, repeated, repeated, repeated")
	compressed, err := c.Compress(original)
	require.NoError(t, err)
	assert.NotEmpty(t, compressed)

	out, err := Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestNewCompressorInvalidLevelFallsBackToDefault(t *testing.T) {
	c, err := NewCompressor(0)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, zstd.SpeedDefault, c.level)
}

package container

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompressHonoursDeclaredSize(t *testing.T) {
	block := bytes.Repeat([]byte{0}, 1<<20)
	stored, err := compress(CompressionZstd, block)
	require.NoError(t, err)

	got, err := decompress(CompressionZstd, stored, len(block))
	require.NoError(t, err)
	assert.Equal(t, block, got)

	_, err = decompress(CompressionZstd, stored, 16)
	assert.Error(t, err)

	_, err = decompress(CompressionZstd, stored, maxBlockSize+1)
	assert.ErrorContains(t, err, "limit")

	_, err = decompress(CompressionZstd, stored, -1)
	assert.ErrorContains(t, err, "limit")
}

func TestDecompressStoredBlock(t *testing.T) {
	got, err := decompress(CompressionNone, []byte("abc"), 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	_, err = decompress(CompressionNone, []byte("abc"), 4)
	assert.Error(t, err)
}

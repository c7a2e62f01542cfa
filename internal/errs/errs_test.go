package errs

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelKinds(t *testing.T) {
	kinds := map[error]error{
		ErrContainerNotFound:    ErrNotFound,
		ErrExtractedFileMissing: ErrNotFound,
		ErrParse:                ErrFormat,
		ErrInvalidBounds:        ErrFormat,
		ErrSidecarInvalid:       ErrState,
		ErrNoContainerLoaded:    ErrState,
		ErrRepackFailed:         ErrIO,
	}
	for err, kind := range kinds {
		assert.ErrorIs(t, err, kind, err.Error())
	}
}

func TestPhaseKeepsBothChains(t *testing.T) {
	err := Phase("rebuild", "/out/masterdatas", ErrRepackFailed, Wrap("read", "a.json", fs.ErrNotExist))
	assert.ErrorIs(t, err, ErrRepackFailed)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "rebuild /out/masterdatas: io failure: repack failed: read a.json: file does not exist", err.Error())

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "rebuild", opErr.Op)

	assert.NoError(t, Phase("rebuild", "", ErrRepackFailed, nil))
	assert.NoError(t, Wrap("read", "", nil))
}

func TestOpErrorWithoutPath(t *testing.T) {
	assert.Equal(t, "apply: state error: no container loaded", Wrap("apply", "", ErrNoContainerLoaded).Error())
}

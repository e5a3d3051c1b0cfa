package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocLen(t *testing.T) {
	assert.Equal(t, uint64(16), AllocLen(0, false))
	assert.Equal(t, uint64(16), AllocLen(1, false))
	assert.Equal(t, uint64(16), AllocLen(16, false))
	assert.Equal(t, uint64(32), AllocLen(17, false))

	// memcheck reserves the trailing guard word
	assert.Equal(t, uint64(32), AllocLen(16, true))
	assert.Equal(t, uint64(16), AllocLen(8, true))
}

func TestAlignHelpers(t *testing.T) {
	assert.Equal(t, uint64(0x1000), AlignDownWord(0x1007))
	assert.Equal(t, uint64(0x1008), AlignDownWord(0x1008))
	assert.Equal(t, uint64(8192), AlignPage(4097, 4096))
	assert.Equal(t, uint64(4096), AlignPage(4096, 4096))
}

func TestCheckHeader(t *testing.T) {
	b := make([]byte, 256)
	require.NoError(t, CheckHeader(b, 0))
	require.NoError(t, CheckHeader(b, 192))
	require.ErrorIs(t, CheckHeader(b, 200), ErrTruncated)
	require.ErrorIs(t, CheckHeader(b, 8), ErrMisaligned)
	require.ErrorIs(t, CheckHeader(b, -16), ErrTruncated)
}

func TestHeaderFieldRoundTrip(t *testing.T) {
	b := make([]byte, HeaderSize)
	PutU64(b, NextAddrOffset, 0xdead_beef_0000)
	PutU32(b, AllocLenOffset, 48)
	PutFlags(b, 0, FlagFinalize|FlagTypeObject)
	PutScanKind(b, 0, 2)

	assert.Equal(t, uint64(0xdead_beef_0000), ReadU64(b, NextAddrOffset))
	assert.Equal(t, uint32(48), ReadU32(b, AllocLenOffset))
	assert.Equal(t, FlagFinalize|FlagTypeObject, ReadFlags(b, 0))
	assert.Equal(t, uint8(2), ReadScanKind(b, 0))
	// neighbouring fields untouched
	assert.Zero(t, ReadU64(b, ForwardOffset))
}

package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorklist_InvalidCapacity(t *testing.T) {
	for _, n := range []int{0, 1, 3, 100} {
		_, err := newWorklist(n)
		assert.ErrorIs(t, err, ErrInvalidCapacity, "capacity %d", n)
	}
}

func TestWorklist_FIFO(t *testing.T) {
	w, err := newWorklist(4)
	require.NoError(t, err)
	defer w.close()

	assert.Equal(t, 4, w.cap())
	for i := range 4 {
		require.True(t, w.push(item{off: uint64(i), op: opForward, kind: locArena}))
	}
	assert.False(t, w.push(item{off: 99}), "push into a full ring")
	assert.Equal(t, 4, w.len())

	it, ok := w.pop()
	require.True(t, ok)
	assert.Equal(t, uint64(0), it.off)

	// wraps around
	require.True(t, w.push(item{off: 4, op: opForward, kind: locArena}))
	for want := uint64(1); want <= 4; want++ {
		it, ok := w.pop()
		require.True(t, ok)
		assert.Equal(t, want, it.off)
	}

	_, ok = w.pop()
	assert.False(t, ok)
	assert.Zero(t, w.len())
}

func TestItem_Encoding(t *testing.T) {
	in := item{off: 0x0102030405060708, region: 0xA0B0C0D0, op: opCopy, kind: locHold}
	b := make([]byte, itemSize)
	in.encode(b)
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, b[:8])
	assert.Equal(t, in, decodeItem(b))
}

func TestWorklist_CloseIdempotent(t *testing.T) {
	w, err := newWorklist(2)
	require.NoError(t, err)
	require.NoError(t, w.close())
	require.NoError(t, w.close())
}

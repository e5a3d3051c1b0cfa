package gc

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/joshuapare/gckit/heap"
)

// Hash returns the identity hash of the allocation whose data starts at p.
// It is computed from the payload on first use, then stored in the header
// and carried over by every copy, so later mutations and moves do not
// change it.
func (t *ThreadHeap) Hash(p heap.Addr) ([2]uint64, error) {
	payload, err := t.Payload(p)
	if err != nil {
		return [2]uint64{}, err
	}
	h, _ := t.Header(p)
	if v := h.Hash(); v != ([2]uint64{}) {
		return v, nil
	}
	v := hashPayload(payload)
	h.SetHash(v)
	return v, nil
}

// hashPayload is FNV-128a of b. Zero is reserved for "not computed".
func hashPayload(b []byte) [2]uint64 {
	f := fnv.New128a()
	f.Write(b)
	sum := f.Sum(nil)
	v := [2]uint64{binary.BigEndian.Uint64(sum[8:]), binary.BigEndian.Uint64(sum[:8])}
	if v == ([2]uint64{}) {
		v[0] = 1
	}
	return v
}

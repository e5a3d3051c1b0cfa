package heap

// Finalizer is the system finalizer, invoked once for each finalizable
// allocation proven unreachable. payload aliases the dying arena and is only
// valid during the call.
type Finalizer func(data Addr, payload []byte)

// FinalizerRecord links an allocation into its arena's finalizer list.
type FinalizerRecord struct {
	// Header is the address of the allocation's header.
	Header Addr

	prev, next *FinalizerRecord
	list       *FinalizerList
}

// Next returns the following record, or nil.
func (r *FinalizerRecord) Next() *FinalizerRecord { return r.next }

// FinalizerList is an intrusive doubly linked list of finalizer records
// owned by one arena.
type FinalizerList struct {
	arena      *Arena
	head, tail *FinalizerRecord
	n          int
}

// Len returns the number of records.
func (l *FinalizerList) Len() int { return l.n }

// Front returns the first record, or nil.
func (l *FinalizerList) Front() *FinalizerRecord { return l.head }

// Add appends a record for the allocation whose header is at hdr.
func (l *FinalizerList) Add(hdr Addr) *FinalizerRecord {
	r := &FinalizerRecord{Header: hdr}
	l.pushBack(r)
	return r
}

// Remove unlinks r from its list.
func (l *FinalizerList) Remove(r *FinalizerRecord) {
	if r.list != l {
		return
	}
	if r.prev != nil {
		r.prev.next = r.next
	} else {
		l.head = r.next
	}
	if r.next != nil {
		r.next.prev = r.prev
	} else {
		l.tail = r.prev
	}
	r.prev, r.next, r.list = nil, nil, nil
	l.n--
}

// MoveTo unlinks r and appends it to dst with its header address set to hdr.
// The record itself is reused.
func (l *FinalizerList) MoveTo(dst *FinalizerList, r *FinalizerRecord, hdr Addr) {
	l.Remove(r)
	r.Header = hdr
	dst.pushBack(r)
}

func (l *FinalizerList) pushBack(r *FinalizerRecord) {
	r.list = l
	r.prev = l.tail
	r.next = nil
	if l.tail != nil {
		l.tail.next = r
	} else {
		l.head = r
	}
	l.tail = r
	l.n++
}

package alloc

import "errors"

var (
	// ErrTooLarge indicates a request larger than a header can describe.
	ErrTooLarge = errors.New("alloc: request too large")

	// ErrNoDescriptor indicates a request without a scan descriptor.
	ErrNoDescriptor = errors.New("alloc: missing type descriptor")

	// ErrSizeMismatch indicates a copy whose source does not fit the destination.
	ErrSizeMismatch = errors.New("alloc: copy size mismatch")
)

//go:build !unix

// Package mmap provides anonymous memory mappings for arenas, machine stacks
// and the collector's worklist.
package mmap

import "fmt"

// Anon allocates size zeroed bytes from the Go heap when mmap is not available.
func Anon(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmap: invalid size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// PageSize returns the conventional 4 KiB page size.
func PageSize() int {
	return 4096
}

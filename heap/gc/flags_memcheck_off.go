//go:build !gc_memcheck

package gc

const memcheckDefault = false

//go:build !gc_strict

package gc

const strictDefault = false

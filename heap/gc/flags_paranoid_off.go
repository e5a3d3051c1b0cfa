//go:build !gc_paranoid

package gc

const paranoidDefault = false

//go:build gc_stats

package gc

const statsDefault = true

package util

import (
	"runtime"
)

// HeapAllocMB reports the live heap size in megabytes. The scanner polls it
// between file batches when performance.max_heap_mb is set and pauses
// analysis until allocations drop back under the limit.
func HeapAllocMB() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc >> 20
}

package bptree

// Config holds the tunable parameters of a Tree. Unlike pkg/config.Config it
// is not loaded from a YAML file — the tree is an in-process library with no
// CLI/env surface of its own — but it follows the same struct-with-defaults
// shape.
type Config struct {
	// PageSize is the node byte size used to derive entry capacity. The
	// original implementation recognized 512 and 1024; both are supported
	// here. Sizes below 1024 are rounded up to the nearest recognized size;
	// sizes above 1024 are used as given.
	PageSize int

	// CacheLineSize is the flush granularity used by the durability fence.
	CacheLineSize int

	// WriteLatencyNS is the emulated non-volatile write latency applied per
	// cache line flushed. Zero (the default) reduces flushes to bare
	// memory fences.
	WriteLatencyNS int64

	// CPUFreqMHz converts WriteLatencyNS into a spin-iteration count for the
	// durability fence's busy-wait. It mirrors the original's CPU_FREQ_MHZ
	// build-time constant.
	CPUFreqMHz int64
}

// headerSize is the byte size of the original FAST & FAIR node header
// (leftmost 8 + sibling 8 + level 4 + switch_counter 1 + is_deleted 1 +
// last_index 2 + mtx 8), used only to derive entry capacity from PageSize.
// extend_ptr is deliberately excluded: per the glossary, an extend chain is
// not a persistent structural feature, so it does not consume page budget.
const headerSize = 32

// entrySize is the byte size of one (int64 key, pointer) slot.
const entrySize = 16

// DefaultConfig returns the tunables used by the original FAST & FAIR
// implementation's parameters.{h,cc}: PageSize 1024 (yielding a capacity of
// 62), WriteLatencyNS reset to 0 (the library's own startup default; 1000ns
// there was a benchmark override, not a library default).
func DefaultConfig() Config {
	return Config{
		PageSize:       1024,
		CacheLineSize:  64,
		WriteLatencyNS: 0,
		CPUFreqMHz:     1994,
	}
}

// capacity returns floor((PageSize - headerSize) / entrySize), the maximum
// number of live entries a node built under this config can hold.
func (c Config) capacity() int {
	pageSize := c.PageSize
	if pageSize < 512 {
		pageSize = 512
	} else if pageSize > 512 && pageSize < 1024 {
		pageSize = 1024
	}
	cap := (pageSize - headerSize) / entrySize
	if cap < 3 {
		cap = 3
	}
	return cap
}

func (c Config) cacheLineSize() int {
	if c.CacheLineSize <= 0 {
		return 64
	}
	return c.CacheLineSize
}

func (c Config) cpuFreqMHz() int64 {
	if c.CPUFreqMHz <= 0 {
		return 1994
	}
	return c.CPUFreqMHz
}

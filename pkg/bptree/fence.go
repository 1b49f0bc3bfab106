package bptree

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// fence is the durability primitive every persistent write goes through:
// a memory fence, a per-cache-line write-back with an emulated write
// latency, and a closing memory fence. With WriteLatencyNS == 0 it reduces
// to the two bare fences, matching the original clflush()'s behavior at its
// default write_latency_in_ns of 0.
//
// Go has no portable clflush/rdtsc intrinsic, so the cache-line write-back
// is modeled as a busy-wait spin sized by CPUFreqMHz, and the fence itself
// as an atomic read-modify-write: Go's memory model guarantees an atomic op
// is a full barrier for the goroutine performing it, which is the property
// the algorithm actually depends on here (ordering the writer's own stores),
// not a hardware cache flush.
type fence struct {
	cacheLineSize  int
	writeLatencyNS int64
	cpuFreqMHz     int64
}

var fenceSeq atomic.Uint64

func newFence(cfg Config) *fence {
	return &fence{
		cacheLineSize:  cfg.cacheLineSize(),
		writeLatencyNS: cfg.WriteLatencyNS,
		cpuFreqMHz:     cfg.cpuFreqMHz(),
	}
}

func memoryFence() {
	fenceSeq.Add(1)
}

// flush writes back every cache line touching [addr, addr+length).
func (f *fence) flush(addr unsafe.Pointer, length int) {
	memoryFence()
	line := f.cacheLineSize
	start := uintptr(addr) &^ uintptr(line-1)
	end := uintptr(addr) + uintptr(length)
	for p := start; p < end; p += uintptr(line) {
		f.writeBackLine()
	}
	memoryFence()
}

func (f *fence) writeBackLine() {
	spins := f.writeLatencyNS * f.cpuFreqMHz / 1000
	for i := int64(0); i < spins; i++ {
		runtime.Gosched()
	}
}

// flushEntry flushes a single (key, ptr) slot.
func (f *fence) flushEntry(e *entry) {
	f.flush(unsafe.Pointer(e), entrySize)
}

// flushHeader flushes a node's header fields (sibling/extend links,
// last_index, is_deleted, switch_counter). Since the Go struct backing a
// node isn't the byte-packed layout the original persists, unsafe.Pointer(n)
// stands in for "the header region" and headerSize bounds the emulated
// flush span, consistent with config.go's capacity-derivation convention.
func (f *fence) flushHeader(n *node) {
	f.flush(unsafe.Pointer(n), headerSize)
}

// flushPage flushes a node's header plus its full entry array, used after
// building a brand-new page (a fresh split sibling or a promoted root).
func (f *fence) flushPage(n *node) {
	f.flushHeader(n)
	if len(n.records) > 0 {
		f.flush(unsafe.Pointer(&n.records[0]), len(n.records)*entrySize)
	}
}

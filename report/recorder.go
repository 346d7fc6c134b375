package report

import "sync"

// Recorder is a Sink that retains event counts, the reference-count trace,
// and every leak dump. Useful in tests and when debugging pool behavior.
type Recorder struct {
	mu sync.Mutex

	blockAllocs int
	blockFrees  int
	chunkAllocs int
	chunkFrees  int
	allocReqs   int
	deallocReqs int
	created     int
	destroyed   int
	refTrace    []int64
	leaks       []LeakDump
}

func (r *Recorder) BlockAllocated(BlockInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blockAllocs++
}

func (r *Recorder) BlockFreed(BlockInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blockFrees++
}

func (r *Recorder) ChunkAllocated(BlockInfo, uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkAllocs++
}

func (r *Recorder) ChunkFreed(BlockInfo, uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunkFrees++
}

func (r *Recorder) AllocRequested(uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocReqs++
}

func (r *Recorder) DeallocRequested(uintptr, uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deallocReqs++
}

func (r *Recorder) GlobalCreated(uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
}

func (r *Recorder) GlobalDestroyed(uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed++
}

func (r *Recorder) RefCountAdd(count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refTrace = append(r.refTrace, count)
}

func (r *Recorder) RefCountSub(count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refTrace = append(r.refTrace, count)
}

func (r *Recorder) Leak(d LeakDump) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaks = append(r.leaks, d)
}

// BlockCounts returns the numbers of block allocations and frees seen.
func (r *Recorder) BlockCounts() (allocs, frees int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blockAllocs, r.blockFrees
}

// ChunkCounts returns the numbers of chunk allocations and frees seen.
func (r *Recorder) ChunkCounts() (allocs, frees int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunkAllocs, r.chunkFrees
}

// RequestCounts returns the numbers of adapter-level requests seen.
func (r *Recorder) RequestCounts() (allocs, deallocs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocReqs, r.deallocReqs
}

// GlobalCounts returns how many times the global allocator was created and
// destroyed.
func (r *Recorder) GlobalCounts() (created, destroyed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.destroyed
}

// RefTrace returns the reference-count values in event order.
func (r *Recorder) RefTrace() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, len(r.refTrace))
	copy(out, r.refTrace)
	return out
}

// Leaks returns the recorded leak dumps.
func (r *Recorder) Leaks() []LeakDump {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LeakDump, len(r.leaks))
	copy(out, r.leaks)
	return out
}

// Package alloc provides a process-wide, size-class segregated allocator
// over fixed-chunk pools, plus a typed handle usable as a container
// allocator. Class pools are created lazily, their headers are carved out of
// a meta pool, and the whole registry is reference counted by the live
// handles.
package alloc

import (
	"sync"
	"unsafe"

	"github.com/shenjiangwei/mempool/pool"
	"github.com/shenjiangwei/mempool/report"
)

// metaBlockSize is the block size of the pool that stores the class pools'
// own headers.
const metaBlockSize = 32768

// Global multiplexes fixed-chunk pools, one per size class. Every public
// operation runs under one mutex; there is no lock splitting between class
// pools.
type Global struct {
	mu      sync.Mutex
	meta    *pool.Typed[pool.Pool]
	classes map[uintptr]*pool.Pool
	refs    int64
}

var (
	// constructMu serializes singleton creation, tear-down, and every
	// reference-count transition.
	constructMu sync.Mutex
	global      *Global
)

func newGlobal() (*Global, error) {
	meta, err := pool.NewTyped[pool.Pool](metaBlockSize, SizeClass(unsafe.Sizeof(pool.Pool{})))
	if err != nil {
		return nil, err
	}
	return &Global{
		meta:    meta,
		classes: make(map[uintptr]*pool.Pool),
	}, nil
}

// acquire hands out a reference to the process-wide allocator, creating it
// on first use.
func acquire() (*Global, error) {
	constructMu.Lock()
	defer constructMu.Unlock()

	if global == nil {
		g, err := newGlobal()
		if err != nil {
			return nil, err
		}
		global = g
		report.GlobalCreated(uintptr(unsafe.Pointer(g)))
	}

	global.refs++
	report.RefCountAdd(global.refs)
	return global, nil
}

// addRef takes another reference to an already-live allocator.
func (g *Global) addRef() {
	constructMu.Lock()
	defer constructMu.Unlock()
	g.refs++
	report.RefCountAdd(g.refs)
}

// releaseRef drops one reference; the last one tears the allocator down.
func releaseRef() {
	constructMu.Lock()
	defer constructMu.Unlock()

	if global == nil {
		return
	}

	global.refs--
	report.RefCountSub(global.refs)

	if global.refs <= 0 {
		g := global
		g.destroy()
		global = nil
		report.GlobalDestroyed(uintptr(unsafe.Pointer(g)))
	}
}

// createPool returns the pool serving class, carving a header out of the
// meta pool when the class is seen for the first time. Caller holds g.mu.
func (g *Global) createPool(class uintptr) (*pool.Pool, error) {
	if p, ok := g.classes[class]; ok {
		return p, nil
	}

	p, err := g.meta.Alloc(pool.Pool{})
	if err != nil {
		return nil, err
	}
	if err := pool.Init(p, blockSizeForClass(class), class); err != nil {
		_ = g.meta.Release(&p)
		return nil, err
	}

	g.classes[class] = p
	return p, nil
}

// allocate serves n bytes from the pool of the matching size class. The
// returned chunk is class-sized, which may exceed n.
func (g *Global) allocate(n uintptr) (unsafe.Pointer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	class := SizeClass(n)
	if class == 0 {
		return nil, pool.ErrOutOfMemory
	}

	p, err := g.createPool(class)
	if err != nil {
		return nil, err
	}
	return p.Alloc()
}

// deallocate releases ptr into the pool of the class derived from n. When no
// pool serves that class, which includes the torn-down state, the call is a
// silent no-op.
func (g *Global) deallocate(ptr unsafe.Pointer, n uintptr) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.classes[SizeClass(n)]
	if !ok {
		return nil
	}
	return p.Release(ptr)
}

// destroy tears down every class pool and returns their headers to the meta
// pool; only then is the meta pool itself destroyed. Destroying the meta
// pool first would unmap the very chunks the class pool headers live in.
func (g *Global) destroy() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for class, p := range g.classes {
		p.Destroy()
		_ = g.meta.Release(&p)
		delete(g.classes, class)
	}
	g.classes = nil
	g.meta.Destroy()
}

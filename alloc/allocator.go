package alloc

import (
	"sync/atomic"
	"unsafe"

	"github.com/shenjiangwei/mempool/pool"
	"github.com/shenjiangwei/mempool/report"
)

// Allocator is a typed handle over the process-wide allocator. It holds no
// per-instance state beyond its share of the global reference count; every
// live handle, whatever its element type, draws from the same pools.
type Allocator[T any] struct {
	g      *Global
	closed atomic.Bool
}

// New creates a handle, bringing the global allocator to life on first use.
// The element type must not contain pointer-like data; the chunks it will be
// stored in are invisible to the garbage collector.
func New[T any]() (*Allocator[T], error) {
	if err := pool.CheckElement[T](); err != nil {
		return nil, err
	}
	g, err := acquire()
	if err != nil {
		return nil, err
	}
	return &Allocator[T]{g: g}, nil
}

// Clone returns a fresh handle sharing the global allocator; the reference
// count grows by one, and the clone must be Closed independently.
func (a *Allocator[T]) Clone() (*Allocator[T], error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	a.g.addRef()
	return &Allocator[T]{g: a.g}, nil
}

// Allocate returns storage for n elements of T. The backing chunk is sized
// to the request's size class, so the slice capacity equals its length while
// the real chunk may be larger.
func (a *Allocator[T]) Allocate(n int) ([]T, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}

	var zero T
	size := unsafe.Sizeof(zero)
	if n < 0 || (size > 0 && uintptr(n) > ^uintptr(0)/size) {
		return nil, ErrArrayLength
	}

	bytes := uintptr(n) * size
	report.AllocRequested(bytes)

	p, err := a.g.allocate(bytes)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(p), n), nil
}

// Deallocate returns the storage for n elements starting at p. The size
// class is recomputed from the same count the caller received, so p must
// head an allocation of exactly n elements. Once the global allocator has
// been torn down the call quietly does nothing.
func (a *Allocator[T]) Deallocate(p *T, n int) error {
	if n < 0 {
		return nil
	}

	var zero T
	bytes := uintptr(n) * unsafe.Sizeof(zero)
	report.DeallocRequested(uintptr(unsafe.Pointer(p)), bytes)

	return a.g.deallocate(unsafe.Pointer(p), bytes)
}

// Close drops this handle's reference. The last handle to close tears the
// global allocator down. Close is idempotent.
func (a *Allocator[T]) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	releaseRef()
	return nil
}

// Equal reports whether two handles are interchangeable. They always are:
// every handle shares the one process-wide allocator.
func Equal[T, U any](*Allocator[T], *Allocator[U]) bool {
	return true
}

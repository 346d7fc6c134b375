package pool

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Typed wraps a pool core with element construction and release for one
// concrete element type. The chunks live outside the Go heap, so T must not
// contain pointer-like data; NewTyped rejects types the collector would need
// to scan.
type Typed[T any] struct {
	pool *Pool
	fin  func(*T)
}

// Option configures a typed pool.
type Option[T any] func(*Typed[T])

// WithFinalizer runs fn on an element just before its chunk memory is reused
// for free-list linkage. Elements still live at Destroy never see the
// finalizer.
func WithFinalizer[T any](fn func(*T)) Option[T] {
	return func(t *Typed[T]) {
		t.fin = fn
	}
}

// NewTyped creates a typed pool over a fresh core.
func NewTyped[T any](blockSize, chunkSize uintptr, opts ...Option[T]) (*Typed[T], error) {
	p, err := New(blockSize, chunkSize)
	if err != nil {
		return nil, err
	}

	var zero T
	if unsafe.Sizeof(zero) > chunkSize {
		p.Destroy()
		return nil, ErrElementTooLarge
	}
	if err := CheckElement[T](); err != nil {
		p.Destroy()
		return nil, err
	}

	t := &Typed[T]{pool: p}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// CheckElement verifies that T may be stored in pool-managed memory, which
// the garbage collector never scans: T must not contain pointer-like data.
func CheckElement[T any]() error {
	var zero T
	return typeNoPointers(reflect.TypeOf(&zero).Elem())
}

func typeNoPointers(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return nil
	case reflect.Array:
		return typeNoPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := typeNoPointers(t.Field(i).Type); err != nil {
				return fmt.Errorf("field %s: %w", t.Field(i).Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrElementPointers, t.String())
	}
}

// Alloc takes a chunk and constructs v in it.
func (t *Typed[T]) Alloc(v T) (*T, error) {
	c, err := t.pool.Alloc()
	if err != nil {
		return nil, err
	}
	e := (*T)(c)
	*e = v
	return e, nil
}

// Release returns an element's chunk to the pool and nils the caller's
// handle. A nil handle is a no-op; a handle outside the pool fails with
// ErrOutOfRange before any finalizer runs.
func (t *Typed[T]) Release(pp **T) error {
	if pp == nil || *pp == nil {
		return nil
	}

	ptr := unsafe.Pointer(*pp)
	if t.fin != nil {
		if !t.pool.Owns(ptr) {
			return ErrOutOfRange
		}
		t.fin(*pp)
	}
	if err := t.pool.Release(ptr); err != nil {
		return err
	}
	*pp = nil
	return nil
}

// Destroy tears down the underlying core, reporting leaks.
func (t *Typed[T]) Destroy() {
	t.pool.Destroy()
}

// BlockCount returns the number of blocks in the underlying core.
func (t *Typed[T]) BlockCount() int { return t.pool.BlockCount() }

// ChunkSize returns the core's chunk size.
func (t *Typed[T]) ChunkSize() uintptr { return t.pool.ChunkSize() }

// AvailableChunksInBlock returns the free-chunk counter of the block
// containing p.
func (t *Typed[T]) AvailableChunksInBlock(p *T) (uintptr, error) {
	return t.pool.AvailableChunksInBlock(unsafe.Pointer(p))
}

// UsedChunksInBlock returns the used-chunk counter of the block containing p.
func (t *Typed[T]) UsedChunksInBlock(p *T) (uintptr, error) {
	return t.pool.UsedChunksInBlock(unsafe.Pointer(p))
}

// AvailableSpaceInBlock returns the free byte counter of the block
// containing p.
func (t *Typed[T]) AvailableSpaceInBlock(p *T) (uintptr, error) {
	return t.pool.AvailableSpaceInBlock(unsafe.Pointer(p))
}

// UsedSpaceInBlock returns the used byte counter of the block containing p.
func (t *Typed[T]) UsedSpaceInBlock(p *T) (uintptr, error) {
	return t.pool.UsedSpaceInBlock(unsafe.Pointer(p))
}

// BlockAddress returns the chunk-area base of the block containing p, or the
// head block's base when p is nil.
func (t *Typed[T]) BlockAddress(p *T) (uintptr, error) {
	return t.pool.BlockAddress(unsafe.Pointer(p))
}

// DumpFreeList returns the free list of the block containing p.
func (t *Typed[T]) DumpFreeList(p *T) ([]FreeLink, error) {
	return t.pool.DumpFreeList(unsafe.Pointer(p))
}

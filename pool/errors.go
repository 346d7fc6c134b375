package pool

import "errors"

// Error definitions
var (
	// ErrChunkMisfit is returned when the block size is not a positive
	// multiple of the chunk size.
	ErrChunkMisfit = errors.New("chunk size must fit in the block size")
	// ErrChunkTooSmall is returned when the chunk size cannot hold a
	// free-list link.
	ErrChunkTooSmall = errors.New("chunk size must be at least the size of a pointer")
	// ErrOutOfMemory is returned when the platform refuses a backing mapping.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrOutOfRange is returned when a released pointer lies in none of the
	// pool's blocks.
	ErrOutOfRange = errors.New("pointer does not belong to the pool")
	// ErrElementTooLarge is returned when the element type does not fit in
	// one chunk.
	ErrElementTooLarge = errors.New("element size exceeds the chunk size")
	// ErrElementPointers is returned when the element type contains
	// pointer-like data, which must not be stored in unmanaged memory.
	ErrElementPointers = errors.New("element type contains pointer-like data")
)

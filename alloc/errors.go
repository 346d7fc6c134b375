package alloc

import "errors"

// Error definitions
var (
	// ErrArrayLength is returned when a requested element count cannot be
	// expressed in bytes without overflowing.
	ErrArrayLength = errors.New("array length overflows the element size")
	// ErrClosed is returned when a handle is used after Close.
	ErrClosed = errors.New("allocator handle is closed")
)

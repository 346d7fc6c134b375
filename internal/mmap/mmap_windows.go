//go:build windows

package mmap

import (
	"golang.org/x/sys/windows"
)

// Alloc reserves and commits a zero-filled read-write region of size bytes.
func Alloc(size uintptr) (uintptr, error) {
	return windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
}

// Free releases a region previously returned by Alloc.
func Free(base, size uintptr) error {
	return windows.VirtualFree(base, 0, windows.MEM_RELEASE)
}

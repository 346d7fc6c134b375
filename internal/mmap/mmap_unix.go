//go:build unix

package mmap

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Alloc maps an anonymous read-write region of size bytes and returns its
// base address. The kernel hands the region back zero-filled.
func Alloc(size uintptr) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(&b[0])), nil
}

// Free unmaps a region previously returned by Alloc.
func Free(base, size uintptr) error {
	return unix.Munmap(unsafe.Slice((*byte)(unsafe.Pointer(base)), size))
}

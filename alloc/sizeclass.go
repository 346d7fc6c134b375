package alloc

import "math/bits"

// MinSizeClass is the smallest chunk size the global allocator hands out.
const MinSizeClass = 8

// SizeClass maps a byte count to the chunk size serving it. Requests below
// eight bytes land in the eight-byte class; everything else rounds up via the
// bit width of n, which sends an exact power of two to the next class up
// (8 -> 16). Callers depend on that rounding staying put. Returns zero when
// the rounding would overflow.
func SizeClass(n uintptr) uintptr {
	if n < MinSizeClass {
		return MinSizeClass
	}
	w := bits.Len(uint(n))
	if w >= bits.UintSize {
		return 0
	}
	return 1 << w
}

// blockSizeForClass sizes the backing blocks of a class pool: a thousand
// chunks per block.
func blockSizeForClass(class uintptr) uintptr {
	return class * 1000
}

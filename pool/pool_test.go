package pool

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/shenjiangwei/mempool/report"
)

func TestInitErrors(t *testing.T) {
	t.Run("chunk must fit in block", func(t *testing.T) {
		_, err := New(32, 5)
		require.ErrorIs(t, err, ErrChunkMisfit)
		require.Contains(t, err.Error(), "must fit")
	})

	t.Run("chunk at least pointer sized", func(t *testing.T) {
		_, err := New(32, 2)
		require.ErrorIs(t, err, ErrChunkTooSmall)
		require.Contains(t, err.Error(), "at least")
	})

	t.Run("zero block size", func(t *testing.T) {
		_, err := New(0, 8)
		require.ErrorIs(t, err, ErrChunkMisfit)
	})
}

func TestReleaseForeignPointer(t *testing.T) {
	p, err := New(4096, 8)
	require.NoError(t, err)
	defer p.Destroy()

	foreign := new(int64)
	err = p.Release(unsafe.Pointer(foreign))
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Contains(t, err.Error(), "does not belong")

	// The failed release must not have touched any counter.
	base, err := p.BlockAddress(nil)
	require.NoError(t, err)
	avail, err := p.AvailableChunksInBlock(unsafe.Pointer(base))
	require.NoError(t, err)
	require.Equal(t, uintptr(512), avail)
	require.Equal(t, 1, p.BlockCount())
}

func TestReleaseNil(t *testing.T) {
	p, err := New(4096, 8)
	require.NoError(t, err)
	defer p.Destroy()

	require.NoError(t, p.Release(nil))
	require.Equal(t, 1, p.BlockCount())
}

func TestAllocSequentialAndAligned(t *testing.T) {
	const chunkSize = 16
	p, err := New(4096, chunkSize)
	require.NoError(t, err)
	defer p.Destroy()

	base, err := p.BlockAddress(nil)
	require.NoError(t, err)
	require.Zero(t, base%chunkSize)

	// A fresh block hands chunks out in strictly ascending address order,
	// starting at the block beginning.
	total := uintptr(4096 / chunkSize)
	ptrs := make([]unsafe.Pointer, 0, total)
	for i := uintptr(0); i < total; i++ {
		c, err := p.Alloc()
		require.NoError(t, err)
		addr := uintptr(c)
		require.Equal(t, base+i*chunkSize, addr)
		require.Zero(t, addr%chunkSize)

		end := base + 4096
		require.True(t, addr >= base && addr < end)
		ptrs = append(ptrs, c)
	}

	// Saturated block dumps an empty free list.
	links, err := p.DumpFreeList(ptrs[0])
	require.NoError(t, err)
	require.Empty(t, links)

	for _, c := range ptrs {
		require.NoError(t, p.Release(c))
	}
}

func TestFreshFreeListDump(t *testing.T) {
	const chunkSize = 8
	p, err := New(4096, chunkSize)
	require.NoError(t, err)
	defer p.Destroy()

	base, err := p.BlockAddress(nil)
	require.NoError(t, err)

	links, err := p.DumpFreeList(unsafe.Pointer(base))
	require.NoError(t, err)
	require.Len(t, links, 512)

	for i, link := range links {
		require.Equal(t, base+uintptr(i)*chunkSize, link.Chunk)
		if i == len(links)-1 {
			require.Zero(t, link.Next)
		} else {
			require.Equal(t, base+uintptr(i+1)*chunkSize, link.Next)
		}
	}
}

func TestCounterSums(t *testing.T) {
	p, err := New(4096, 8)
	require.NoError(t, err)
	defer p.Destroy()

	var ptrs []unsafe.Pointer
	for i := 0; i < 600; i++ {
		c, err := p.Alloc()
		require.NoError(t, err)
		ptrs = append(ptrs, c)

		avail, err := p.AvailableChunksInBlock(c)
		require.NoError(t, err)
		used, err := p.UsedChunksInBlock(c)
		require.NoError(t, err)
		require.Equal(t, uintptr(512), avail+used)

		availSpace, err := p.AvailableSpaceInBlock(c)
		require.NoError(t, err)
		usedSpace, err := p.UsedSpaceInBlock(c)
		require.NoError(t, err)
		require.Equal(t, uintptr(4096), availSpace+usedSpace)

		links, err := p.DumpFreeList(c)
		require.NoError(t, err)
		require.Len(t, links, int(avail))
	}
	require.Equal(t, 2, p.BlockCount())

	// Releasing everything drains the pool back to a single empty block.
	for _, c := range ptrs {
		require.NoError(t, p.Release(c))
	}
	require.Equal(t, 1, p.BlockCount())

	base, err := p.BlockAddress(nil)
	require.NoError(t, err)
	used, err := p.UsedChunksInBlock(unsafe.Pointer(base))
	require.NoError(t, err)
	require.Zero(t, used)
}

func TestReleasedChunkIsReusedFirst(t *testing.T) {
	p, err := New(256, 8)
	require.NoError(t, err)
	defer p.Destroy()

	var ptrs []unsafe.Pointer
	for i := 0; i < 32; i++ {
		c, err := p.Alloc()
		require.NoError(t, err)
		ptrs = append(ptrs, c)
	}

	// Release one chunk of the saturated block; the next allocation must
	// return exactly that address instead of growing the pool.
	victim := ptrs[13]
	require.NoError(t, p.Release(victim))
	c, err := p.Alloc()
	require.NoError(t, err)
	require.Equal(t, victim, c)
	require.Equal(t, 1, p.BlockCount())

	for _, c := range ptrs {
		require.NoError(t, p.Release(c))
	}
}

func TestPoolHeadersInsidePool(t *testing.T) {
	// Pool headers carry no Go pointers, so they can live inside the mapped
	// chunks of another pool and be initialized in place.
	meta, err := NewTyped[Pool](32768, 64)
	require.NoError(t, err)

	p, err := meta.Alloc(Pool{})
	require.NoError(t, err)
	require.NoError(t, Init(p, 4096, 8))

	c, err := p.Alloc()
	require.NoError(t, err)
	require.True(t, p.Owns(c))
	require.NoError(t, p.Release(c))

	p.Destroy()
	require.NoError(t, meta.Release(&p))
	require.Nil(t, p)
	meta.Destroy()
}

func TestDestroyReportsLeaks(t *testing.T) {
	rec := &report.Recorder{}
	report.Set(rec)
	defer report.Set(nil)

	p, err := New(4096, 8)
	require.NoError(t, err)

	c, err := p.Alloc()
	require.NoError(t, err)
	*(*uint64)(c) = 0x4142434445464748

	leakedAddr := uintptr(c)
	p.Destroy()

	leaks := rec.Leaks()
	require.Len(t, leaks, 1)
	require.Equal(t, uintptr(1), leaks[0].UsedChunks)
	require.Equal(t, uintptr(511), leaks[0].AvailableChunks)
	require.Len(t, leaks[0].Leaked, 1)
	require.Equal(t, leakedAddr, leaks[0].Leaked[0].Addr)
	require.Len(t, leaks[0].FreeList, 511)
}

func BenchmarkPoolAllocRelease(b *testing.B) {
	p, err := New(4096*20, 8)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Destroy()

	ptrs := make([]unsafe.Pointer, 0, 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptrs = ptrs[:0]
		for j := 0; j < 10000; j++ {
			c, err := p.Alloc()
			if err != nil {
				b.Fatal(err)
			}
			*(*uint64)(c) = uint64(j)
			ptrs = append(ptrs, c)
		}
		for _, c := range ptrs {
			if err := p.Release(c); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkHeapAllocRelease(b *testing.B) {
	ptrs := make([]*uint64, 0, 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptrs = ptrs[:0]
		for j := 0; j < 10000; j++ {
			v := new(uint64)
			*v = uint64(j)
			ptrs = append(ptrs, v)
		}
	}
}

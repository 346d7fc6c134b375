package pool

import (
	"unsafe"

	"github.com/shenjiangwei/mempool/report"
)

// Init initializes a pool in place and maps its first block. A pool always
// owns at least one block between Init and Destroy. Init is what lets pool
// headers be constructed inside chunks handed out by another pool.
func Init(p *Pool, blockSize, chunkSize uintptr) error {
	if chunkSize == 0 || blockSize == 0 || blockSize%chunkSize != 0 {
		return ErrChunkMisfit
	}
	if chunkSize < pointerSize {
		return ErrChunkTooSmall
	}

	p.blockSize = blockSize
	p.chunkSize = chunkSize
	p.firstBlock = 0

	first, err := p.allocateBlock(0)
	if err != nil {
		return err
	}
	p.firstBlock = first
	return nil
}

// New allocates a pool on the heap and initializes it.
func New(blockSize, chunkSize uintptr) (*Pool, error) {
	p := new(Pool)
	if err := Init(p, blockSize, chunkSize); err != nil {
		return nil, err
	}
	return p, nil
}

// Alloc takes one chunk from the first block that has a free one, mapping a
// new block at the tail when every block is saturated. The returned memory
// holds whatever the previous occupant left behind past the first word.
func (p *Pool) Alloc() (unsafe.Pointer, error) {
	currentBlock := hdr(p.firstBlock)
	for currentBlock.availableChunks == 0 && currentBlock.nextBlock != 0 {
		currentBlock = hdr(currentBlock.nextBlock)
	}

	if currentBlock.availableChunks == 0 {
		next, err := p.allocateBlock(currentBlock.mapBase)
		if err != nil {
			return nil, err
		}
		currentBlock = hdr(next)
	}

	currentBlock.usedChunks++
	currentBlock.availableChunks--
	currentBlock.availableSpace -= p.chunkSize
	currentBlock.usedSpace += p.chunkSize

	available := currentBlock.nextFreeChunk
	currentBlock.nextFreeChunk = *word(available)

	report.ChunkAllocated(p.info(currentBlock), available)
	return unsafe.Pointer(available), nil
}

// Release returns a chunk to its owning block. A nil pointer is a no-op; a
// pointer outside every block fails with ErrOutOfRange and leaves the pool
// untouched. A block that becomes fully free is unmapped, unless it is the
// pool's only block.
func (p *Pool) Release(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}

	addr := uintptr(ptr)
	usedBlock := p.blockFromPointer(addr)
	if usedBlock == nil {
		return ErrOutOfRange
	}

	usedBlock.usedChunks--
	usedBlock.availableChunks++
	usedBlock.availableSpace += p.chunkSize
	usedBlock.usedSpace -= p.chunkSize

	report.ChunkFreed(p.info(usedBlock), addr)

	if usedBlock.usedChunks == 0 {
		releaseUsedBlock := false
		if usedBlock.previousBlock == 0 {
			if usedBlock.nextBlock != 0 {
				// Promote the successor to head before unmapping.
				p.firstBlock = usedBlock.nextBlock
				hdr(usedBlock.nextBlock).previousBlock = 0
				releaseUsedBlock = true
			}
			// The sole block is kept; the pool never drops below one block.
		} else {
			if usedBlock.nextBlock != 0 {
				hdr(usedBlock.previousBlock).nextBlock = usedBlock.nextBlock
				hdr(usedBlock.nextBlock).previousBlock = usedBlock.previousBlock
			} else {
				hdr(usedBlock.previousBlock).nextBlock = 0
			}
			releaseUsedBlock = true
		}

		if releaseUsedBlock {
			p.freeBlock(usedBlock)
			return nil
		}
	}

	if usedBlock.availableChunks == 1 {
		// The block was saturated, so this chunk becomes the whole free list.
		usedBlock.nextFreeChunk = addr
		*word(addr) = 0
		return nil
	}

	*word(addr) = usedBlock.nextFreeChunk
	usedBlock.nextFreeChunk = addr
	return nil
}

// Owns reports whether ptr lies inside one of the pool's blocks.
func (p *Pool) Owns(ptr unsafe.Pointer) bool {
	return ptr != nil && p.blockFromPointer(uintptr(ptr)) != nil
}

// Destroy unmaps every block. Chunks still in use are reported as leaks to
// the configured sink; their memory is reclaimed regardless.
func (p *Pool) Destroy() {
	next := p.firstBlock
	for next != 0 {
		currentBlock := hdr(next)
		next = currentBlock.nextBlock
		if currentBlock.usedChunks > 0 {
			report.Leak(p.leakDump(currentBlock))
		}
		p.freeBlock(currentBlock)
	}
	p.firstBlock = 0
}

// leakDump walks a block and records every chunk that is not on the free
// list, together with the first eight bytes of its payload.
func (p *Pool) leakDump(b *blockHeader) report.LeakDump {
	free := make(map[uintptr]struct{}, b.availableChunks)
	var list []uintptr
	for cur := b.nextFreeChunk; cur != 0; cur = *word(cur) {
		free[cur] = struct{}{}
		list = append(list, cur)
	}

	d := report.LeakDump{BlockInfo: p.info(b), FreeList: list}
	total := p.blockSize / p.chunkSize
	for i := uintptr(0); i < total; i++ {
		addr := b.blockBeginning + i*p.chunkSize
		if _, ok := free[addr]; ok {
			continue
		}
		leaked := report.LeakedChunk{Addr: addr}
		leaked.Data = *(*[8]byte)(unsafe.Pointer(addr))
		d.Leaked = append(d.Leaked, leaked)
	}
	return d
}

// BlockSize returns the pool's immutable block size.
func (p *Pool) BlockSize() uintptr { return p.blockSize }

// ChunkSize returns the pool's immutable chunk size.
func (p *Pool) ChunkSize() uintptr { return p.chunkSize }

// BlockCount returns the number of blocks currently owned by the pool.
func (p *Pool) BlockCount() int {
	count := 0
	for b := p.firstBlock; b != 0; b = hdr(b).nextBlock {
		count++
	}
	return count
}

// AvailableChunksInBlock returns the free-chunk counter of the block that
// contains ptr.
func (p *Pool) AvailableChunksInBlock(ptr unsafe.Pointer) (uintptr, error) {
	b := p.blockFromPointer(uintptr(ptr))
	if b == nil {
		return 0, ErrOutOfRange
	}
	return b.availableChunks, nil
}

// UsedChunksInBlock returns the used-chunk counter of the block that
// contains ptr.
func (p *Pool) UsedChunksInBlock(ptr unsafe.Pointer) (uintptr, error) {
	b := p.blockFromPointer(uintptr(ptr))
	if b == nil {
		return 0, ErrOutOfRange
	}
	return b.usedChunks, nil
}

// AvailableSpaceInBlock returns the free byte counter of the block that
// contains ptr.
func (p *Pool) AvailableSpaceInBlock(ptr unsafe.Pointer) (uintptr, error) {
	b := p.blockFromPointer(uintptr(ptr))
	if b == nil {
		return 0, ErrOutOfRange
	}
	return b.availableSpace, nil
}

// UsedSpaceInBlock returns the used byte counter of the block that contains
// ptr.
func (p *Pool) UsedSpaceInBlock(ptr unsafe.Pointer) (uintptr, error) {
	b := p.blockFromPointer(uintptr(ptr))
	if b == nil {
		return 0, ErrOutOfRange
	}
	return b.usedSpace, nil
}

// BlockAddress returns the chunk-area base of the block containing ptr, or
// the head block's base when ptr is nil.
func (p *Pool) BlockAddress(ptr unsafe.Pointer) (uintptr, error) {
	if ptr == nil {
		return hdr(p.firstBlock).blockBeginning, nil
	}
	b := p.blockFromPointer(uintptr(ptr))
	if b == nil {
		return 0, ErrOutOfRange
	}
	return b.blockBeginning, nil
}

// DumpFreeList returns the free list of the block containing ptr in
// head-to-tail order. An empty result means the block is saturated; the last
// entry's Next is always zero.
func (p *Pool) DumpFreeList(ptr unsafe.Pointer) ([]FreeLink, error) {
	b := p.blockFromPointer(uintptr(ptr))
	if b == nil {
		return nil, ErrOutOfRange
	}
	if b.availableChunks == 0 {
		return nil, nil
	}

	links := make([]FreeLink, 0, b.availableChunks)
	for cur := b.nextFreeChunk; cur != 0; {
		next := *word(cur)
		links = append(links, FreeLink{Chunk: cur, Next: next})
		cur = next
	}
	return links, nil
}

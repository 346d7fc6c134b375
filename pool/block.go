package pool

import (
	"fmt"
	"unsafe"

	"github.com/shenjiangwei/mempool/internal/mmap"
	"github.com/shenjiangwei/mempool/report"
)

// allocateBlock maps a new backing block, threads its free list from the
// lowest chunk address upward, and splices it after the previous block.
// Returns the new block's header address.
func (p *Pool) allocateBlock(previous uintptr) (uintptr, error) {
	headerSpace := alignUp(unsafe.Sizeof(blockHeader{}), p.chunkSize)
	// The extra chunkSize covers alignment slack when the chunk size exceeds
	// the platform page size.
	mapLen := headerSpace + p.blockSize + p.chunkSize

	base, err := mmap.Alloc(mapLen)
	if err != nil {
		return 0, fmt.Errorf("block: %w: %v", ErrOutOfMemory, err)
	}

	// Anonymous mappings come back zero-filled, so the chunk area needs no
	// explicit clearing.
	b := hdr(base)
	b.mapBase = base
	b.mapLen = mapLen
	b.availableSpace = p.blockSize
	b.usedSpace = 0
	b.availableChunks = p.blockSize / p.chunkSize
	b.usedChunks = 0
	b.blockBeginning = alignUp(base+unsafe.Sizeof(blockHeader{}), p.chunkSize)
	b.blockEnd = b.blockBeginning + p.blockSize
	b.nextFreeChunk = b.blockBeginning
	b.previousBlock = previous
	b.nextBlock = 0

	// Write into each free chunk the address of the next one; the last chunk
	// gets the zero terminator.
	currentChunk := b.blockBeginning
	for n := uintptr(0); n < b.availableChunks; n++ {
		if n == b.availableChunks-1 {
			*word(currentChunk) = 0
		} else {
			nextChunk := currentChunk + p.chunkSize
			*word(currentChunk) = nextChunk
			currentChunk = nextChunk
		}
	}

	if previous != 0 {
		hdr(previous).nextBlock = base
	}

	report.BlockAllocated(p.info(b))
	return base, nil
}

// freeBlock unmaps a block. The header lives inside the mapping, so every
// field needed afterwards is read out first.
func (p *Pool) freeBlock(b *blockHeader) {
	info := p.info(b)
	base, length := b.mapBase, b.mapLen
	_ = mmap.Free(base, length)
	report.BlockFreed(info)
}

// blockFromPointer walks the block list looking for the block whose chunk
// area contains addr. The upper bound is exclusive: addr is inside the block
// when blockBeginning <= addr < blockEnd. Returns nil when addr belongs to
// no block.
func (p *Pool) blockFromPointer(addr uintptr) *blockHeader {
	next := p.firstBlock
	for next != 0 {
		currentBlock := hdr(next)
		next = currentBlock.nextBlock
		if addr >= currentBlock.blockBeginning && addr < currentBlock.blockEnd {
			return currentBlock
		}
	}
	return nil
}

func (p *Pool) info(b *blockHeader) report.BlockInfo {
	return report.BlockInfo{
		Block:           b.mapBase,
		BlockSize:       p.blockSize,
		ChunkSize:       p.chunkSize,
		AvailableSpace:  b.availableSpace,
		UsedSpace:       b.usedSpace,
		AvailableChunks: b.availableChunks,
		UsedChunks:      b.usedChunks,
	}
}

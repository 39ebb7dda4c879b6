package sfs

import (
	"encoding/binary"
	"fmt"
	"os"
)

const (
	// Magic is the value written to every formatted image. An image whose
	// stored magic does not match triggers format-on-mount.
	Magic uint32 = 0xef53

	// SuperblockSize is the on-disk size of the superblock record. It is
	// padded out to a full block by the caller, not by Encode/Decode.
	SuperblockSize = 40

	DefaultBlockSize    uint32 = 4096
	DefaultTotalBlocks  uint32 = 32768
	DefaultNumOpenFiles uint32 = 128
)

// Superblock is block 0 of the image. It is kept resident for the duration
// of the mount and rewritten in full on every counter change.
type Superblock struct {
	Magic           uint32
	BlockSize       uint32
	NumBlocks       uint32
	NumINodes       uint32
	NumINodeBlocks  uint32
	NumFreeBlocks   uint32
	NumFreeINodes   uint32
	FirstINodeBlock uint32
	FirstDataBlock  uint32
	BitmapBlock     uint32
}

// NumINodeBlocks computes the inode-table size for a format with the given
// block size and total block count, per the sizing formula: enough inode
// blocks that the table can name every data block, and no more.
func NumINodeBlocks(blockSize, totalBlocks uint32) uint32 {
	inodesPerBlock := blockSize / InodeSize
	return (totalBlocks - 1) / (inodesPerBlock + 1)
}

// NewSuperblock derives a fully populated, unformatted-on-disk superblock
// from format parameters. Counters assume nothing has been allocated yet;
// FileSystem.format is responsible for reserving the metadata region afterward.
func NewSuperblock(blockSize, totalBlocks uint32) Superblock {
	inodeBlocks := NumINodeBlocks(blockSize, totalBlocks)
	numInodes := inodeBlocks * (blockSize / InodeSize)
	firstINodeBlock := uint32(1)
	firstDataBlock := firstINodeBlock + inodeBlocks + 1 // +1 for the bitmap block
	return Superblock{
		Magic:           Magic,
		BlockSize:       blockSize,
		NumBlocks:       totalBlocks,
		NumINodes:       numInodes,
		NumINodeBlocks:  inodeBlocks,
		NumFreeBlocks:   totalBlocks,
		NumFreeINodes:   numInodes,
		FirstINodeBlock: firstINodeBlock,
		FirstDataBlock:  firstDataBlock,
		BitmapBlock:     firstDataBlock - 1,
	}
}

func DecodeSuperblock(b []byte) Superblock {
	return Superblock{
		Magic:           binary.LittleEndian.Uint32(b[0:4]),
		BlockSize:       binary.LittleEndian.Uint32(b[4:8]),
		NumBlocks:       binary.LittleEndian.Uint32(b[8:12]),
		NumINodes:       binary.LittleEndian.Uint32(b[12:16]),
		NumINodeBlocks:  binary.LittleEndian.Uint32(b[16:20]),
		NumFreeBlocks:   binary.LittleEndian.Uint32(b[20:24]),
		NumFreeINodes:   binary.LittleEndian.Uint32(b[24:28]),
		FirstINodeBlock: binary.LittleEndian.Uint32(b[28:32]),
		FirstDataBlock:  binary.LittleEndian.Uint32(b[32:36]),
		BitmapBlock:     binary.LittleEndian.Uint32(b[36:40]),
	}
}

func (sb *Superblock) Encode(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], sb.Magic)
	binary.LittleEndian.PutUint32(b[4:8], sb.BlockSize)
	binary.LittleEndian.PutUint32(b[8:12], sb.NumBlocks)
	binary.LittleEndian.PutUint32(b[12:16], sb.NumINodes)
	binary.LittleEndian.PutUint32(b[16:20], sb.NumINodeBlocks)
	binary.LittleEndian.PutUint32(b[20:24], sb.NumFreeBlocks)
	binary.LittleEndian.PutUint32(b[24:28], sb.NumFreeINodes)
	binary.LittleEndian.PutUint32(b[28:32], sb.FirstINodeBlock)
	binary.LittleEndian.PutUint32(b[32:36], sb.FirstDataBlock)
	binary.LittleEndian.PutUint32(b[36:40], sb.BitmapBlock)
}

func (sb *Superblock) Valid() bool { return sb.Magic == Magic }

// PeekBlockSize recovers a mounted image's persisted block size without
// knowing it in advance: the superblock's magic and BlockSize fields sit
// in the first SuperblockSize bytes of block 0 regardless of how large a
// block actually is, so this reads just those bytes rather than a whole
// block. Callers use it to size a FileVolume correctly before handing the
// image to Mount — Mount itself has no chance to fix a wrong block size
// after the fact, since every byte offset past block 0 is already wrong.
// An unformatted or too-short file reports DefaultBlockSize; Mount's own
// format-on-mismatch path takes over from there.
func PeekBlockSize(file *os.File) (uint32, error) {
	buf := make([]byte, SuperblockSize)
	n, err := file.ReadAt(buf, 0)
	if err != nil && n < SuperblockSize {
		// Too short to hold a superblock at all: a not-yet-formatted image.
		return DefaultBlockSize, nil
	}
	if err != nil {
		return 0, fmt.Errorf("peeking superblock of `%s`: %w", file.Name(), err)
	}
	sb := DecodeSuperblock(buf)
	if !sb.Valid() || sb.BlockSize == 0 {
		return DefaultBlockSize, nil
	}
	return sb.BlockSize, nil
}

package sfs

import (
	"fmt"
	"os"
)

// Volume is positioned whole-block I/O against a backing image. Each
// implementation translates a block id to the byte offset id × blockSize;
// it knows nothing about the layout above it.
type Volume interface {
	ReadBlock(id uint32, buf []byte) error
	WriteBlock(id uint32, buf []byte) error
	Size() uint64
}

// MemoryVolume backs an image with an in-process byte slice. Used by the
// tests; the CLI subcommands always use FileVolume.
type MemoryVolume struct {
	blockSize uint32
	buf       []byte
}

func NewMemoryVolume(blockSize uint32, totalBlocks uint32) *MemoryVolume {
	return &MemoryVolume{
		blockSize: blockSize,
		buf:       make([]byte, uint64(blockSize)*uint64(totalBlocks)),
	}
}

func (v *MemoryVolume) Size() uint64 { return uint64(len(v.buf)) }

func (v *MemoryVolume) ReadBlock(id uint32, buf []byte) error {
	off := uint64(id) * uint64(v.blockSize)
	if off+uint64(len(buf)) > uint64(len(v.buf)) {
		return fmt.Errorf("reading block %d: out of range", id)
	}
	copy(buf, v.buf[off:off+uint64(len(buf))])
	return nil
}

func (v *MemoryVolume) WriteBlock(id uint32, buf []byte) error {
	off := uint64(id) * uint64(v.blockSize)
	if off+uint64(len(buf)) > uint64(len(v.buf)) {
		return fmt.Errorf("writing block %d: out of range", id)
	}
	copy(v.buf[off:off+uint64(len(buf))], buf)
	return nil
}

// FileVolume backs an image with an *os.File, the production path.
type FileVolume struct {
	file      *os.File
	blockSize uint32
	size      uint64
}

func NewFileVolume(file *os.File, blockSize uint32) (*FileVolume, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat-ing backing image `%s`: %w", file.Name(), err)
	}
	return &FileVolume{file: file, blockSize: blockSize, size: uint64(info.Size())}, nil
}

func (v *FileVolume) Size() uint64 { return v.size }

func (v *FileVolume) ReadBlock(id uint32, buf []byte) error {
	off := int64(id) * int64(v.blockSize)
	if _, err := v.file.ReadAt(buf, off); err != nil {
		return fmt.Errorf(
			"reading file `%s` at block `%d`: %w",
			v.file.Name(), id, err,
		)
	}
	return nil
}

func (v *FileVolume) WriteBlock(id uint32, buf []byte) error {
	off := int64(id) * int64(v.blockSize)
	if _, err := v.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf(
			"writing file `%s` at block `%d`: %w",
			v.file.Name(), id, err,
		)
	}
	return nil
}

// Truncate grows (or, if the backing file pre-exists and is larger, leaves
// as-is) the file to hold exactly totalBlocks*blockSize bytes. Only used by
// format, which must guarantee the image has its full extent before the
// bitmap marks anything beyond the metadata region free.
func (v *FileVolume) Truncate(totalBlocks uint32) error {
	want := int64(totalBlocks) * int64(v.blockSize)
	if want > int64(v.size) {
		if err := v.file.Truncate(want); err != nil {
			return fmt.Errorf("truncating file `%s`: %w", v.file.Name(), err)
		}
		v.size = uint64(want)
	}
	return nil
}

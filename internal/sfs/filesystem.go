package sfs

import (
	"errors"
	"time"
)

// RootInode is always the root directory; allocated at format time.
const RootInode uint32 = 0

// FileSystem is the single explicit value that owns all mutable state for
// one mounted image: the backing volume, the resident superblock, the
// resident bitmap, and the open-file handle table. There is no package
// level state; every operation takes a *FileSystem receiver.
type FileSystem struct {
	vol     Volume
	sb      Superblock
	bitmap  Bitmap
	handles []Handle
}

// Mount reads block 0 of vol and either adopts its superblock (magic
// matches) or formats a fresh one (magic mismatches). params.BlockSize and
// params.TotalBlocks are only consulted when formatting; an already-
// formatted image keeps its own on-disk parameters regardless of params.
// params.NumOpenFiles sizes the handle table and always applies — the
// table is mount-session state, never persisted to the image.
func Mount(vol Volume, params FormatParams) (*FileSystem, error) {
	buf := make([]byte, params.BlockSize)
	if vol.Size() >= uint64(params.BlockSize) {
		if err := vol.ReadBlock(0, buf); err != nil {
			return nil, ioErr("", err)
		}
	}
	sb := DecodeSuperblock(buf)

	numOpenFiles := params.NumOpenFiles
	if numOpenFiles == 0 {
		numOpenFiles = DefaultNumOpenFiles
	}
	fs := &FileSystem{vol: vol, handles: make([]Handle, numOpenFiles)}
	if sb.Valid() {
		fs.sb = sb
		bm := make([]byte, sb.BlockSize)
		if err := vol.ReadBlock(sb.BitmapBlock, bm); err != nil {
			return nil, ioErr("", err)
		}
		fs.bitmap = Bitmap(bm)
		return fs, nil
	}

	if err := fs.format(params); err != nil {
		return nil, err
	}
	return fs, nil
}

// FormatParams are the format-time parameters a fresh image is built with.
// They have no effect on an image that is already formatted.
type FormatParams struct {
	BlockSize    uint32
	TotalBlocks  uint32
	NumOpenFiles uint32
}

func DefaultFormatParams() FormatParams {
	return FormatParams{
		BlockSize:    DefaultBlockSize,
		TotalBlocks:  DefaultTotalBlocks,
		NumOpenFiles: DefaultNumOpenFiles,
	}
}

func (fs *FileSystem) format(params FormatParams) error {
	fs.sb = NewSuperblock(params.BlockSize, params.TotalBlocks)
	fs.bitmap = NewBitmap(int(params.BlockSize))

	// Reserve the superblock, inode table, and bitmap block itself; none of
	// these may ever be handed out by allocBlock.
	for b := uint32(0); b < fs.sb.FirstDataBlock; b++ {
		fs.bitmap.Set(b)
		fs.sb.NumFreeBlocks--
	}

	if err := fs.flushBitmap(); err != nil {
		return err
	}
	if err := fs.flushSuperblock(); err != nil {
		return err
	}

	if fs.sb.NumINodes == fs.sb.NumFreeINodes {
		if err := fs.allocateRoot(); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileSystem) allocateRoot() error {
	id, err := fs.allocInode()
	if err != nil {
		return err
	}
	if id != RootInode {
		// The sizing formula guarantees inode 0 is free immediately after
		// format; anything else means the format parameters are broken.
		return ioErr("", errInvalidRootInode)
	}
	// The root directory gets its first (zeroed) entry block at format time.
	block, err := fs.allocBlock()
	if err != nil {
		return err
	}
	if err := fs.vol.WriteBlock(block, make([]byte, fs.sb.BlockSize)); err != nil {
		return ioErr("", err)
	}
	now := nowSeconds()
	root := Inode{
		ID:         RootInode,
		Flags:      FlagInUse,
		Type:       TypeDir,
		Size:       uint64(fs.sb.BlockSize),
		LastAccess: now,
		LastModify: now,
		LastChange: now,
	}
	root.Blocks[0] = block
	return fs.writeInode(&root)
}

var errInvalidRootInode = errors.New("root inode was not inode 0 after format")

func nowSeconds() uint32 { return uint32(time.Now().Unix()) }

func (fs *FileSystem) flushSuperblock() error {
	buf := make([]byte, fs.sb.BlockSize)
	fs.sb.Encode(buf)
	if err := fs.vol.WriteBlock(0, buf); err != nil {
		return ioErr("", err)
	}
	return nil
}

func (fs *FileSystem) flushBitmap() error {
	if err := fs.vol.WriteBlock(fs.sb.BitmapBlock, fs.bitmap); err != nil {
		return ioErr("", err)
	}
	return nil
}

// allocBlock claims the first free data block, persisting the bitmap and
// superblock before returning it.
func (fs *FileSystem) allocBlock() (uint32, error) {
	id, ok := fs.bitmap.FindZero(fs.sb.NumBlocks)
	if !ok || id < fs.sb.FirstDataBlock {
		return 0, newErr(KindNoSpace, "")
	}
	fs.bitmap.Set(id)
	fs.sb.NumFreeBlocks--
	if err := fs.flushBitmap(); err != nil {
		return 0, err
	}
	if err := fs.flushSuperblock(); err != nil {
		return 0, err
	}
	return id, nil
}

// freeBlock clears id's bit unless id lives in the reserved metadata
// region, which may never be freed. Errors from persisting the bitmap and
// superblock are discarded, not surfaced, mirroring the
// unconditional-success shape of the source's markBlockFree.
func (fs *FileSystem) freeBlock(id uint32) {
	if id < fs.sb.FirstDataBlock {
		return
	}
	if !fs.bitmap.IsSet(id) {
		return
	}
	fs.bitmap.Clear(id)
	fs.sb.NumFreeBlocks++
	_ = fs.flushBitmap()
	_ = fs.flushSuperblock()
}

func (fs *FileSystem) allocInode() (uint32, error) {
	for id := uint32(0); id < fs.sb.NumINodes; id++ {
		in, err := fs.readInode(id)
		if err != nil {
			return 0, err
		}
		if !in.InUse() {
			fs.sb.NumFreeINodes--
			if err := fs.flushSuperblock(); err != nil {
				return 0, err
			}
			return id, nil
		}
	}
	return 0, newErr(KindNoSpace, "")
}

func (fs *FileSystem) freeInode(id uint32) error {
	var in Inode
	in.ID = id
	if err := fs.writeInode(&in); err != nil {
		return err
	}
	fs.sb.NumFreeINodes++
	return fs.flushSuperblock()
}

func (fs *FileSystem) inodeOffset(id uint32) (blockID uint32, byteOff uint32) {
	perBlock := fs.sb.BlockSize / InodeSize
	blockID = fs.sb.FirstINodeBlock + id/perBlock
	byteOff = (id % perBlock) * InodeSize
	return
}

func (fs *FileSystem) readInode(id uint32) (Inode, error) {
	blockID, byteOff := fs.inodeOffset(id)
	buf := make([]byte, fs.sb.BlockSize)
	if err := fs.vol.ReadBlock(blockID, buf); err != nil {
		return Inode{}, ioErr("", err)
	}
	return DecodeInode(id, buf[byteOff:byteOff+InodeSize]), nil
}

func (fs *FileSystem) writeInode(in *Inode) error {
	blockID, byteOff := fs.inodeOffset(in.ID)
	buf := make([]byte, fs.sb.BlockSize)
	if err := fs.vol.ReadBlock(blockID, buf); err != nil {
		return ioErr("", err)
	}
	in.Encode(buf[byteOff : byteOff+InodeSize])
	if err := fs.vol.WriteBlock(blockID, buf); err != nil {
		return ioErr("", err)
	}
	return nil
}

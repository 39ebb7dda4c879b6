package sfs

import "encoding/binary"

const (
	// InodeSize is the fixed on-disk size of one inode record. The layout
	// uses 84 of these bytes; the remainder is reserved padding, mirroring
	// the historical practice of over-allocating inode records so a future
	// field doesn't force a format-breaking layout change.
	InodeSize = 96

	NumDirect = 12
	// SingleIndirectSlot and DoubleIndirectSlot index Inode.Blocks.
	SingleIndirectSlot = 12
	DoubleIndirectSlot = 13
	NumBlockSlots      = 14
)

type INodeFlag uint32

const (
	FlagInUse INodeFlag = 1 << 0
	// bits 1-2 hold the type nibble
	typeShift = 1
	typeMask  = 0x3
)

type FileType uint32

const (
	TypeFile FileType = 0
	TypeDir  FileType = 1
)

// Inode is a fixed-size on-disk record describing one file or directory.
// Blocks[0:12] are direct; Blocks[12] is single-indirect; Blocks[13] is
// double-indirect. Directories never use indirection — all 14 slots are
// direct for a DIR inode.
type Inode struct {
	ID         uint32
	Flags      INodeFlag
	Type       FileType
	Size       uint64
	ChildCount uint32
	LastAccess uint32
	LastModify uint32
	LastChange uint32
	Blocks     [NumBlockSlots]uint32
}

func (in *Inode) InUse() bool { return in.Flags&FlagInUse != 0 }

func (in *Inode) IsDir() bool { return in.Type == TypeDir }

func DecodeInode(id uint32, b []byte) Inode {
	flagsAndType := binary.LittleEndian.Uint32(b[0:4])
	var blocks [NumBlockSlots]uint32
	for i := 0; i < NumBlockSlots; i++ {
		off := 28 + 4*i
		blocks[i] = binary.LittleEndian.Uint32(b[off : off+4])
	}
	return Inode{
		ID:         id,
		Flags:      INodeFlag(flagsAndType & 0x1),
		Type:       FileType((flagsAndType >> typeShift) & typeMask),
		Size:       binary.LittleEndian.Uint64(b[4:12]),
		ChildCount: binary.LittleEndian.Uint32(b[12:16]),
		LastAccess: binary.LittleEndian.Uint32(b[16:20]),
		LastModify: binary.LittleEndian.Uint32(b[20:24]),
		LastChange: binary.LittleEndian.Uint32(b[24:28]),
		Blocks:     blocks,
	}
}

func (in *Inode) Encode(b []byte) {
	flagsAndType := uint32(in.Flags&0x1) | (uint32(in.Type&typeMask) << typeShift)
	binary.LittleEndian.PutUint32(b[0:4], flagsAndType)
	binary.LittleEndian.PutUint64(b[4:12], in.Size)
	binary.LittleEndian.PutUint32(b[12:16], in.ChildCount)
	binary.LittleEndian.PutUint32(b[16:20], in.LastAccess)
	binary.LittleEndian.PutUint32(b[20:24], in.LastModify)
	binary.LittleEndian.PutUint32(b[24:28], in.LastChange)
	for i := 0; i < NumBlockSlots; i++ {
		off := 28 + 4*i
		binary.LittleEndian.PutUint32(b[off:off+4], in.Blocks[i])
	}
}

package sfs

// IndirectLevel names which addressing scheme a logical block position
// falls under.
type IndirectLevel uint8

const (
	LevelDirect IndirectLevel = iota
	LevelSingle
	LevelDouble
)

// BlockPos locates one logical block of a file. Direct carries the slot in
// Inode.Blocks directly. Single carries the slot within the single-indirect
// block. Double carries the slot within the double-indirect block's
// second-level block, and which second-level block it is.
type BlockPos struct {
	Level  IndirectLevel
	Slot0  uint32 // Direct: Inode.Blocks index. Single/Double: top-level slot.
	Slot1  uint32 // Double: slot within the second-level block.
}

// idsPerBlock is the number of 32-bit block ids that fit in one block.
func (fs *FileSystem) idsPerBlock() uint32 { return fs.sb.BlockSize / 4 }

// locate maps a logical block index (offset/BlockSize) to where it lives in
// the indirection scheme. It performs no I/O and never fails: every index
// in range of the addressing scheme yields a BlockPos.
func (fs *FileSystem) locate(logicalBlock uint32) BlockPos {
	if logicalBlock < NumDirect {
		return BlockPos{Level: LevelDirect, Slot0: logicalBlock}
	}
	rest := logicalBlock - NumDirect
	ids := fs.idsPerBlock()
	if rest < ids {
		return BlockPos{Level: LevelSingle, Slot0: rest}
	}
	rest -= ids
	return BlockPos{Level: LevelDouble, Slot0: rest / ids, Slot1: rest % ids}
}

// readIndirectionBlock reads block id's contents as an array of block ids.
// A zero id means "not allocated"; callers get back a zeroed slice rather
// than performing I/O against block 0.
func (fs *FileSystem) readIndirectionBlock(id uint32) ([]uint32, error) {
	ids := fs.idsPerBlock()
	out := make([]uint32, ids)
	if id == 0 {
		return out, nil
	}
	buf := make([]byte, fs.sb.BlockSize)
	if err := fs.vol.ReadBlock(id, buf); err != nil {
		return nil, ioErr("", err)
	}
	for i := uint32(0); i < ids; i++ {
		out[i] = le32(buf[i*4 : i*4+4])
	}
	return out, nil
}

func (fs *FileSystem) writeIndirectionBlock(id uint32, entries []uint32) error {
	buf := make([]byte, fs.sb.BlockSize)
	for i, v := range entries {
		putLE32(buf[i*4:i*4+4], v)
	}
	if err := fs.vol.WriteBlock(id, buf); err != nil {
		return ioErr("", err)
	}
	return nil
}

// blockForRead returns the data block id for logicalBlock, or 0 if it (or
// an indirection block leading to it) is unallocated. It never allocates.
func (fs *FileSystem) blockForRead(in *Inode, logicalBlock uint32) (uint32, error) {
	pos := fs.locate(logicalBlock)
	switch pos.Level {
	case LevelDirect:
		return in.Blocks[pos.Slot0], nil
	case LevelSingle:
		ids, err := fs.readIndirectionBlock(in.Blocks[SingleIndirectSlot])
		if err != nil {
			return 0, err
		}
		return ids[pos.Slot0], nil
	default: // LevelDouble
		top, err := fs.readIndirectionBlock(in.Blocks[DoubleIndirectSlot])
		if err != nil {
			return 0, err
		}
		second, err := fs.readIndirectionBlock(top[pos.Slot0])
		if err != nil {
			return 0, err
		}
		return second[pos.Slot1], nil
	}
}

// assignBlock ensures logicalBlock is allocated for in, allocating any
// indirection blocks and the data block itself as needed, and returns the
// data block id. It persists every indirection block it changes before
// returning; the inode is updated in memory only and is not written here.
// On failure, any block it allocated during this call is freed and *in is
// restored to its state on entry before the error is returned — no partial
// allocation is left dangling.
func (fs *FileSystem) assignBlock(in *Inode, logicalBlock uint32) (uint32, error) {
	pos := fs.locate(logicalBlock)

	saved := *in
	allocated := make([]uint32, 0, 3)
	rollback := func() {
		for _, b := range allocated {
			fs.freeBlock(b)
		}
		*in = saved
	}

	switch pos.Level {
	case LevelDirect:
		if in.Blocks[pos.Slot0] != 0 {
			return in.Blocks[pos.Slot0], nil
		}
		data, err := fs.allocBlock()
		if err != nil {
			return 0, err
		}
		in.Blocks[pos.Slot0] = data
		return data, nil

	case LevelSingle:
		indirID := in.Blocks[SingleIndirectSlot]
		if indirID == 0 {
			id, err := fs.allocBlock()
			if err != nil {
				return 0, err
			}
			allocated = append(allocated, id)
			if err := fs.writeIndirectionBlock(id, make([]uint32, fs.idsPerBlock())); err != nil {
				rollback()
				return 0, err
			}
			indirID = id
			in.Blocks[SingleIndirectSlot] = indirID
		}
		ids, err := fs.readIndirectionBlock(indirID)
		if err != nil {
			rollback()
			return 0, err
		}
		if ids[pos.Slot0] != 0 {
			return ids[pos.Slot0], nil
		}
		data, err := fs.allocBlock()
		if err != nil {
			rollback()
			return 0, err
		}
		ids[pos.Slot0] = data
		if err := fs.writeIndirectionBlock(indirID, ids); err != nil {
			fs.freeBlock(data)
			rollback()
			return 0, err
		}
		return data, nil

	default: // LevelDouble
		topID := in.Blocks[DoubleIndirectSlot]
		if topID == 0 {
			id, err := fs.allocBlock()
			if err != nil {
				return 0, err
			}
			allocated = append(allocated, id)
			if err := fs.writeIndirectionBlock(id, make([]uint32, fs.idsPerBlock())); err != nil {
				rollback()
				return 0, err
			}
			topID = id
			in.Blocks[DoubleIndirectSlot] = topID
		}
		top, err := fs.readIndirectionBlock(topID)
		if err != nil {
			rollback()
			return 0, err
		}
		secondID := top[pos.Slot0]
		newSecond := secondID == 0
		if newSecond {
			id, err := fs.allocBlock()
			if err != nil {
				rollback()
				return 0, err
			}
			allocated = append(allocated, id)
			if err := fs.writeIndirectionBlock(id, make([]uint32, fs.idsPerBlock())); err != nil {
				rollback()
				return 0, err
			}
			secondID = id
			top[pos.Slot0] = secondID
		}
		second, err := fs.readIndirectionBlock(secondID)
		if err != nil {
			rollback()
			return 0, err
		}
		if second[pos.Slot1] != 0 {
			return second[pos.Slot1], nil
		}
		data, err := fs.allocBlock()
		if err != nil {
			rollback()
			return 0, err
		}
		second[pos.Slot1] = data
		if err := fs.writeIndirectionBlock(secondID, second); err != nil {
			fs.freeBlock(data)
			rollback()
			return 0, err
		}
		// A new second-level block is linked into the top block only once
		// it holds the data block, so a failure above leaves top untouched.
		if newSecond {
			if err := fs.writeIndirectionBlock(topID, top); err != nil {
				fs.freeBlock(data)
				rollback()
				return 0, err
			}
		}
		return data, nil
	}
}

// freeInodeBlocks releases every data and indirection block owned by in,
// walking double-indirect, then single-indirect, then the direct slots.
// freeBlock does not report write errors; a failed read of an indirection
// block returns early and leaves the blocks not yet visited allocated.
func (fs *FileSystem) freeInodeBlocks(in *Inode) error {
	if in.Blocks[DoubleIndirectSlot] != 0 {
		top, err := fs.readIndirectionBlock(in.Blocks[DoubleIndirectSlot])
		if err != nil {
			return err
		}
		for _, secondID := range top {
			if secondID == 0 {
				continue
			}
			second, err := fs.readIndirectionBlock(secondID)
			if err != nil {
				return err
			}
			for _, dataID := range second {
				if dataID != 0 {
					fs.freeBlock(dataID)
				}
			}
			fs.freeBlock(secondID)
		}
		fs.freeBlock(in.Blocks[DoubleIndirectSlot])
		in.Blocks[DoubleIndirectSlot] = 0
	}

	if in.Blocks[SingleIndirectSlot] != 0 {
		ids, err := fs.readIndirectionBlock(in.Blocks[SingleIndirectSlot])
		if err != nil {
			return err
		}
		for _, dataID := range ids {
			if dataID != 0 {
				fs.freeBlock(dataID)
			}
		}
		fs.freeBlock(in.Blocks[SingleIndirectSlot])
		in.Blocks[SingleIndirectSlot] = 0
	}

	for i := 0; i < NumDirect; i++ {
		if in.Blocks[i] != 0 {
			fs.freeBlock(in.Blocks[i])
			in.Blocks[i] = 0
		}
	}
	return nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

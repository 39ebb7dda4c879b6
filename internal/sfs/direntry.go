package sfs

const (
	NameMax = 123

	// fileEntrySize is the on-disk size of one directory entry: a NUL
	// terminated name field plus a 4-byte inode id.
	fileEntrySize = NameMax + 1 + 4
)

// FileEntry names one child of a directory.
type FileEntry struct {
	Name string
	ID   uint32
}

func decodeFileEntry(b []byte) FileEntry {
	nul := NameMax + 1
	for i := 0; i <= NameMax; i++ {
		if b[i] == 0 {
			nul = i
			break
		}
	}
	return FileEntry{
		Name: string(b[:nul]),
		ID:   le32(b[NameMax+1 : NameMax+5]),
	}
}

func encodeFileEntry(e FileEntry, b []byte) {
	for i := range b[:NameMax+1] {
		b[i] = 0
	}
	copy(b[:NameMax], e.Name)
	putLE32(b[NameMax+1:NameMax+5], e.ID)
}

// entriesPerBlock and dirCapacity describe a directory's fixed layout: all
// 14 of Inode.Blocks are direct slots for a directory (no indirection), so
// capacity is bounded.
func (fs *FileSystem) entriesPerBlock() uint32 { return fs.sb.BlockSize / fileEntrySize }

func (fs *FileSystem) dirCapacity() uint32 { return NumBlockSlots * fs.entriesPerBlock() }

// findFileEntry scans dir's packed entries for name, returning the child
// inode id and its (block, slot) location for callers such as
// removeFileEntry that need to overwrite it in place.
func (fs *FileSystem) findFileEntry(dir *Inode, name string) (FileEntry, uint32, uint32, error) {
	if !dir.IsDir() {
		return FileEntry{}, 0, 0, newErr(KindNotADirectory, name)
	}
	perBlock := fs.entriesPerBlock()
	buf := make([]byte, fs.sb.BlockSize)
	for i := uint32(0); i < dir.ChildCount; i++ {
		blk := i / perBlock
		slot := i % perBlock
		if slot == 0 {
			if err := fs.vol.ReadBlock(dir.Blocks[blk], buf); err != nil {
				return FileEntry{}, 0, 0, ioErr(name, err)
			}
		}
		entry := decodeFileEntry(buf[slot*fileEntrySize : (slot+1)*fileEntrySize])
		if entry.Name == name {
			return entry, blk, slot, nil
		}
	}
	return FileEntry{}, 0, 0, newErr(KindNotFound, name)
}

// addFileEntry appends a new (name, childID) entry to dir. If a new block
// must be allocated to hold it and that allocation fails, dir is left
// completely unchanged — childCount and Blocks never advance on a failed
// append.
func (fs *FileSystem) addFileEntry(dir *Inode, name string, childID uint32) error {
	if len(name) > NameMax {
		return newErr(KindNameTooLong, name)
	}
	if dir.ChildCount >= fs.dirCapacity() {
		return newErr(KindNoSpace, name)
	}

	perBlock := fs.entriesPerBlock()
	blk := dir.ChildCount / perBlock
	slot := dir.ChildCount % perBlock

	allocatedBlock := false
	if dir.Blocks[blk] == 0 {
		id, err := fs.allocBlock()
		if err != nil {
			return err
		}
		dir.Blocks[blk] = id
		dir.Size += uint64(fs.sb.BlockSize)
		allocatedBlock = true
	}

	buf := make([]byte, fs.sb.BlockSize)
	if slot != 0 {
		if err := fs.vol.ReadBlock(dir.Blocks[blk], buf); err != nil {
			return fs.undoAddFileEntry(dir, blk, allocatedBlock, ioErr(name, err))
		}
	}
	encodeFileEntry(FileEntry{Name: name, ID: childID}, buf[slot*fileEntrySize:(slot+1)*fileEntrySize])
	if err := fs.vol.WriteBlock(dir.Blocks[blk], buf); err != nil {
		return fs.undoAddFileEntry(dir, blk, allocatedBlock, ioErr(name, err))
	}

	dir.ChildCount++
	return fs.writeInode(dir)
}

func (fs *FileSystem) undoAddFileEntry(dir *Inode, blk uint32, allocatedBlock bool, cause error) error {
	if allocatedBlock {
		fs.freeBlock(dir.Blocks[blk])
		dir.Blocks[blk] = 0
		dir.Size -= uint64(fs.sb.BlockSize)
	}
	return cause
}

// countDirEntries independently recounts dir's packed entries by scanning
// every allocated directory block for non-blank entries, rather than
// trusting ChildCount. Used by fsck to cross-check the two.
func (fs *FileSystem) countDirEntries(dir *Inode) (uint32, error) {
	perBlock := fs.entriesPerBlock()
	buf := make([]byte, fs.sb.BlockSize)
	var count uint32
	for _, blockID := range dir.Blocks {
		if blockID == 0 {
			continue
		}
		if err := fs.vol.ReadBlock(blockID, buf); err != nil {
			return 0, ioErr("", err)
		}
		for slot := uint32(0); slot < perBlock; slot++ {
			entry := decodeFileEntry(buf[slot*fileEntrySize : (slot+1)*fileEntrySize])
			if entry.Name != "" {
				count++
			}
		}
	}
	return count, nil
}

// removeFileEntry deletes name from dir by moving the last entry (in
// insertion order) into the freed slot — tombstone-free compaction, same
// as the source's remove-by-swap-with-last. The vacated last slot is
// blanked, so no stale entry remains past ChildCount. It does not free a
// trailing block left fully empty by the compaction.
func (fs *FileSystem) removeFileEntry(dir *Inode, name string) error {
	_, blk, slot, err := fs.findFileEntry(dir, name)
	if err != nil {
		return err
	}

	perBlock := fs.entriesPerBlock()
	lastIdx := dir.ChildCount - 1
	lastBlk := lastIdx / perBlock
	lastSlot := lastIdx % perBlock

	lastBuf := make([]byte, fs.sb.BlockSize)
	if err := fs.vol.ReadBlock(dir.Blocks[lastBlk], lastBuf); err != nil {
		return ioErr(name, err)
	}
	if lastBlk != blk || lastSlot != slot {
		lastEntry := decodeFileEntry(lastBuf[lastSlot*fileEntrySize : (lastSlot+1)*fileEntrySize])

		destBuf := lastBuf
		if lastBlk != blk {
			destBuf = make([]byte, fs.sb.BlockSize)
			if err := fs.vol.ReadBlock(dir.Blocks[blk], destBuf); err != nil {
				return ioErr(name, err)
			}
		}
		encodeFileEntry(lastEntry, destBuf[slot*fileEntrySize:(slot+1)*fileEntrySize])
		if lastBlk != blk {
			if err := fs.vol.WriteBlock(dir.Blocks[blk], destBuf); err != nil {
				return ioErr(name, err)
			}
		}
	}
	encodeFileEntry(FileEntry{}, lastBuf[lastSlot*fileEntrySize:(lastSlot+1)*fileEntrySize])
	if err := fs.vol.WriteBlock(dir.Blocks[lastBlk], lastBuf); err != nil {
		return ioErr(name, err)
	}

	dir.ChildCount--
	return fs.writeInode(dir)
}

package sfs

// Attr is the getattr result: enough of a stat(2) record for the host to
// answer a VFS getattr upcall.
type Attr struct {
	IsDir      bool
	Mode       uint32
	NumLinks   uint32
	Size       uint64
	Blocks512  uint64
	LastAccess uint32
	LastModify uint32
	LastChange uint32
}

func attrOf(in *Inode) Attr {
	mode := uint32(0777)
	return Attr{
		IsDir:      in.IsDir(),
		Mode:       mode,
		NumLinks:   1,
		Size:       in.Size,
		Blocks512:  in.Size / 512,
		LastAccess: in.LastAccess,
		LastModify: in.LastModify,
		LastChange: in.LastChange,
	}
}

// Getattr resolves path and reports its attributes.
func (fs *FileSystem) Getattr(path string) (Attr, error) {
	in, err := fs.findFile(path)
	if err != nil {
		return Attr{}, err
	}
	return attrOf(&in), nil
}

func (fs *FileSystem) allocateFile(fileType FileType) (Inode, error) {
	id, err := fs.allocInode()
	if err != nil {
		return Inode{}, err
	}
	now := nowSeconds()
	in := Inode{
		ID:         id,
		Flags:      FlagInUse,
		Type:       fileType,
		LastAccess: now,
		LastModify: now,
		LastChange: now,
	}
	if err := fs.writeInode(&in); err != nil {
		return Inode{}, err
	}
	return in, nil
}

// Create makes a new regular file at path and opens it. If path already
// exists, Create succeeds by opening the existing file (matching the
// historical create-is-open-or-make semantics), rather than failing.
func (fs *FileSystem) Create(path string) (HandleID, error) {
	if existing, err := fs.findFileID(path); err == nil {
		return fs.allocHandle(existing, 0)
	}

	parent, name, err := fs.findParent(path)
	if err != nil {
		return 0, err
	}
	if !parent.IsDir() {
		return 0, newErr(KindNotADirectory, path)
	}

	child, err := fs.allocateFile(TypeFile)
	if err != nil {
		return 0, err
	}

	parent.LastModify = nowSeconds()
	parent.LastChange = parent.LastModify
	if err := fs.addFileEntry(&parent, name, child.ID); err != nil {
		fs.freeInode(child.ID)
		return 0, err
	}

	return fs.allocHandle(child.ID, 0)
}

// Mkdir creates a new, empty directory at path. Unlike Create, an
// already-existing path is an error.
func (fs *FileSystem) Mkdir(path string) error {
	if _, err := fs.findFileID(path); err == nil {
		return newErr(KindAlreadyExists, path)
	}

	parent, name, err := fs.findParent(path)
	if err != nil {
		return err
	}
	if !parent.IsDir() {
		return newErr(KindNotADirectory, path)
	}

	child, err := fs.allocateFile(TypeDir)
	if err != nil {
		return err
	}

	parent.LastModify = nowSeconds()
	parent.LastChange = parent.LastModify
	if err := fs.addFileEntry(&parent, name, child.ID); err != nil {
		fs.freeInode(child.ID)
		return err
	}
	return nil
}

// Open resolves path and allocates a handle for it.
func (fs *FileSystem) Open(path string, flags uint32) (HandleID, error) {
	id, err := fs.findFileID(path)
	if err != nil {
		return 0, err
	}
	return fs.allocHandle(id, flags)
}

// Opendir is Open restricted to directories.
func (fs *FileSystem) Opendir(path string) (HandleID, error) {
	in, err := fs.findFile(path)
	if err != nil {
		return 0, err
	}
	if !in.IsDir() {
		return 0, newErr(KindNotADirectory, path)
	}
	return fs.allocHandle(in.ID, 0)
}

// Releasedir is Release restricted to directory handles; the core treats
// file and directory handles identically, so this simply delegates.
func (fs *FileSystem) Releasedir(id HandleID) error { return fs.Release(id) }

// Read copies up to len(buf) bytes starting at offset from the file named
// by handle into buf, returning the number of bytes actually delivered.
// Reading at or beyond the file's size returns (0, nil). When the read is
// clamped at the end of the file, the rest of buf is zero-filled.
func (fs *FileSystem) Read(id HandleID, buf []byte, offset uint64) (int, error) {
	h, err := fs.handle(id)
	if err != nil {
		return 0, err
	}
	in, err := fs.readInode(h.InodeID)
	if err != nil {
		return 0, err
	}
	if offset >= in.Size {
		return 0, nil
	}

	want := uint64(len(buf))
	if offset+want > in.Size {
		want = in.Size - offset
	}

	blockBuf := make([]byte, fs.sb.BlockSize)
	var delivered uint64
	for delivered < want {
		cur := offset + delivered
		logicalBlock := uint32(cur / uint64(fs.sb.BlockSize))
		inBlockOff := uint32(cur % uint64(fs.sb.BlockSize))
		n := fs.sb.BlockSize - inBlockOff
		if remain := want - delivered; uint64(n) > remain {
			n = uint32(remain)
		}

		blockID, err := fs.blockForRead(&in, logicalBlock)
		if err != nil {
			return int(delivered), err
		}
		if blockID == 0 {
			// A hole: zero-fill rather than read.
			for i := uint32(0); i < n; i++ {
				buf[delivered+uint64(i)] = 0
			}
		} else {
			if err := fs.vol.ReadBlock(blockID, blockBuf); err != nil {
				return int(delivered), ioErr("", err)
			}
			copy(buf[delivered:delivered+uint64(n)], blockBuf[inBlockOff:inBlockOff+n])
		}
		delivered += uint64(n)
	}
	for i := delivered; i < uint64(len(buf)); i++ {
		buf[i] = 0
	}

	in.LastAccess = nowSeconds()
	if err := fs.writeInode(&in); err != nil {
		return int(delivered), err
	}
	return int(delivered), nil
}

// Write copies buf into the file named by handle starting at offset,
// allocating new blocks on demand, and returns the number of bytes
// written. Size grows to max(old size, offset+written) — never simply
// offset+written, which would corrupt the size of a file overwritten
// somewhere before its end.
func (fs *FileSystem) Write(id HandleID, buf []byte, offset uint64) (int, error) {
	h, err := fs.handle(id)
	if err != nil {
		return 0, err
	}
	in, err := fs.readInode(h.InodeID)
	if err != nil {
		return 0, err
	}

	blockBuf := make([]byte, fs.sb.BlockSize)
	var written uint64
	for written < uint64(len(buf)) {
		cur := offset + written
		logicalBlock := uint32(cur / uint64(fs.sb.BlockSize))
		inBlockOff := uint32(cur % uint64(fs.sb.BlockSize))
		n := fs.sb.BlockSize - inBlockOff
		if remain := uint64(len(buf)) - written; uint64(n) > remain {
			n = uint32(remain)
		}

		blockID, err := fs.assignBlock(&in, logicalBlock)
		if err != nil {
			fs.writeInode(&in)
			return int(written), err
		}
		if inBlockOff != 0 || n != fs.sb.BlockSize {
			if err := fs.vol.ReadBlock(blockID, blockBuf); err != nil {
				return int(written), ioErr("", err)
			}
		}
		copy(blockBuf[inBlockOff:inBlockOff+n], buf[written:written+uint64(n)])
		if err := fs.vol.WriteBlock(blockID, blockBuf); err != nil {
			return int(written), ioErr("", err)
		}
		written += uint64(n)
	}

	if newSize := offset + written; newSize > in.Size {
		in.Size = newSize
	}
	now := nowSeconds()
	in.LastAccess, in.LastModify, in.LastChange = now, now, now
	if err := fs.writeInode(&in); err != nil {
		return int(written), err
	}
	return int(written), nil
}

// Unlink removes a regular file, freeing all of its blocks and its inode,
// and removes the entry from its parent directory.
func (fs *FileSystem) Unlink(path string) error {
	in, err := fs.findFile(path)
	if err != nil {
		return err
	}
	if in.IsDir() {
		return newErr(KindNotADirectory, path)
	}

	parent, name, err := fs.findParent(path)
	if err != nil {
		return err
	}

	if err := fs.freeInodeBlocks(&in); err != nil {
		return err
	}
	if err := fs.freeInode(in.ID); err != nil {
		return err
	}
	return fs.removeFileEntry(&parent, name)
}

// Rmdir removes an empty directory.
func (fs *FileSystem) Rmdir(path string) error {
	in, err := fs.findFile(path)
	if err != nil {
		return err
	}
	if !in.IsDir() {
		return newErr(KindNotADirectory, path)
	}
	if in.ChildCount > 0 {
		return newErr(KindNotEmpty, path)
	}

	parent, name, err := fs.findParent(path)
	if err != nil {
		return err
	}

	// All of a directory's block slots are direct (see Inode).
	for i := range in.Blocks {
		if in.Blocks[i] != 0 {
			fs.freeBlock(in.Blocks[i])
			in.Blocks[i] = 0
		}
	}
	if err := fs.freeInode(in.ID); err != nil {
		return err
	}
	return fs.removeFileEntry(&parent, name)
}

// DirFiller receives one directory entry name at a time; it returns false
// to signal no more room, mirroring the host's buffer-filling callback.
type DirFiller func(name string) bool

// Readdir resolves path and invokes fill once per entry, stopping early
// (and reporting NoSpace) if fill signals it is full.
func (fs *FileSystem) Readdir(path string, fill DirFiller) error {
	in, err := fs.findFile(path)
	if err != nil {
		return err
	}
	if !in.IsDir() {
		return newErr(KindNotADirectory, path)
	}

	perBlock := fs.entriesPerBlock()
	buf := make([]byte, fs.sb.BlockSize)
	for i := uint32(0); i < in.ChildCount; i++ {
		blk := i / perBlock
		slot := i % perBlock
		if slot == 0 {
			if err := fs.vol.ReadBlock(in.Blocks[blk], buf); err != nil {
				return ioErr(path, err)
			}
		}
		entry := decodeFileEntry(buf[slot*fileEntrySize : (slot+1)*fileEntrySize])
		if !fill(entry.Name) {
			return newErr(KindNoSpace, path)
		}
	}
	return nil
}

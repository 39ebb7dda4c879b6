package sfs

import "strings"

// findFile resolves an absolute path to its inode. Unlike the historical
// in-place-mutating walk, components are produced by slicing the caller's
// path string; nothing the caller owns is ever written to.
func (fs *FileSystem) findFile(path string) (Inode, error) {
	id, err := fs.findFileID(path)
	if err != nil {
		return Inode{}, err
	}
	return fs.readInode(id)
}

func (fs *FileSystem) findFileID(path string) (uint32, error) {
	if !strings.HasPrefix(path, "/") {
		return 0, newErr(KindInvalidPath, path)
	}
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return RootInode, nil
	}

	current := RootInode
	for _, comp := range strings.Split(path[1:], "/") {
		if len(comp) > NameMax {
			return 0, newErr(KindNameTooLong, comp)
		}
		dir, err := fs.readInode(current)
		if err != nil {
			return 0, err
		}
		entry, _, _, err := fs.findFileEntry(&dir, comp)
		if err != nil {
			return 0, err
		}
		current = entry.ID
	}
	return current, nil
}

// findParent resolves the directory containing path's final component,
// returning that directory's inode and the final component's name. The
// root's parent is the root itself.
func (fs *FileSystem) findParent(path string) (Inode, string, error) {
	if !strings.HasPrefix(path, "/") {
		return Inode{}, "", newErr(KindInvalidPath, path)
	}
	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" {
		root, err := fs.readInode(RootInode)
		return root, "", err
	}

	idx := strings.LastIndexByte(trimmed, '/')
	parentPath := trimmed[:idx]
	name := trimmed[idx+1:]
	if len(name) > NameMax {
		return Inode{}, "", newErr(KindNameTooLong, name)
	}
	if parentPath == "" {
		parentPath = "/"
	}

	parent, err := fs.findFile(parentPath)
	if err != nil {
		return Inode{}, "", err
	}
	if !parent.IsDir() {
		return Inode{}, "", newErr(KindNotADirectory, parentPath)
	}
	return parent, name, nil
}

package sfs

import "fmt"

// Violation is one invariant mismatch found by Check.
type Violation struct {
	Kind    string
	Message string
}

// Checker re-derives the bitmap and per-inode allocation from the image
// and cross-checks it against the persisted superblock counters and
// bitmap, mirroring a conventional chkdsk-style consistency pass.
type Checker struct {
	fs *FileSystem

	// owner[block] names the inode that claims it; a block no inode has
	// claimed yet has no entry. The reserved metadata region is pre-seeded
	// with owner 0, so a non-root inode reaching a metadata block is
	// reported as double-owned; the root inode (id 0) reaching one is not.
	owner map[uint32]uint32
}

func NewChecker(fs *FileSystem) *Checker {
	return &Checker{fs: fs, owner: map[uint32]uint32{}}
}

// Check walks every in-use inode's reachable blocks and returns every
// invariant violation it finds. It never mutates the image; Fix does.
func (c *Checker) Check() ([]Violation, error) {
	var violations []Violation

	for b := uint32(0); b < c.fs.sb.FirstDataBlock; b++ {
		c.owner[b] = 0 // reserved metadata region, never a collision target
	}

	liveInodes := uint32(0)
	reachable := map[uint32]bool{}

	for id := uint32(0); id < c.fs.sb.NumINodes; id++ {
		in, err := c.fs.readInode(id)
		if err != nil {
			return nil, err
		}
		if !in.InUse() {
			continue
		}
		liveInodes++

		if in.IsDir() {
			found, err := c.fs.countDirEntries(&in)
			if err != nil {
				return nil, err
			}
			if found != in.ChildCount {
				violations = append(violations, Violation{
					Kind: "childcount-mismatch",
					Message: fmt.Sprintf(
						"inode %d: childCount=%d but %d packed entries found", id, in.ChildCount, found,
					),
				})
			}
		}

		blocks, err := c.fs.reachableBlocks(&in)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			reachable[b] = true
			if prev, claimed := c.owner[b]; claimed && prev != id {
				violations = append(violations, Violation{
					Kind: "double-owned-block",
					Message: fmt.Sprintf(
						"block %d reachable from both inode %d and inode %d", b, prev, id,
					),
				})
			}
			c.owner[b] = id
			if !c.fs.bitmap.IsSet(b) {
				violations = append(violations, Violation{
					Kind:    "unmarked-block",
					Message: fmt.Sprintf("block %d reachable from inode %d but bitmap clear", b, id),
				})
			}
		}
	}

	for b := c.fs.sb.FirstDataBlock; b < c.fs.sb.NumBlocks; b++ {
		if c.fs.bitmap.IsSet(b) && !reachable[b] {
			violations = append(violations, Violation{
				Kind:    "orphaned-block",
				Message: fmt.Sprintf("block %d marked used but unreachable from any live inode", b),
			})
		}
	}

	freeBlocks := uint32(0)
	for b := uint32(0); b < c.fs.sb.NumBlocks; b++ {
		if !c.fs.bitmap.IsSet(b) {
			freeBlocks++
		}
	}
	if freeBlocks != c.fs.sb.NumFreeBlocks {
		violations = append(violations, Violation{
			Kind: "free-block-count",
			Message: fmt.Sprintf(
				"superblock claims %d free blocks; bitmap has %d", c.fs.sb.NumFreeBlocks, freeBlocks,
			),
		})
	}

	freeInodes := c.fs.sb.NumINodes - liveInodes
	if freeInodes != c.fs.sb.NumFreeINodes {
		violations = append(violations, Violation{
			Kind: "free-inode-count",
			Message: fmt.Sprintf(
				"superblock claims %d free inodes; table has %d", c.fs.sb.NumFreeINodes, freeInodes,
			),
		})
	}

	root, err := c.fs.readInode(RootInode)
	if err != nil {
		return nil, err
	}
	if !root.InUse() || !root.IsDir() {
		violations = append(violations, Violation{
			Kind:    "bad-root",
			Message: "inode 0 is not an in-use directory",
		})
	}

	return violations, nil
}

// Fix corrects the superblock's free-block and free-inode counters to the
// values Check recomputed. It does not attempt to repair cross-referenced
// blocks or directory structure.
func (c *Checker) Fix() error {
	freeBlocks := uint32(0)
	for b := uint32(0); b < c.fs.sb.NumBlocks; b++ {
		if !c.fs.bitmap.IsSet(b) {
			freeBlocks++
		}
	}
	liveInodes := uint32(0)
	for id := uint32(0); id < c.fs.sb.NumINodes; id++ {
		in, err := c.fs.readInode(id)
		if err != nil {
			return err
		}
		if in.InUse() {
			liveInodes++
		}
	}
	c.fs.sb.NumFreeBlocks = freeBlocks
	c.fs.sb.NumFreeINodes = c.fs.sb.NumINodes - liveInodes
	return c.fs.flushSuperblock()
}

// reachableBlocks lists every block in's indirection scheme references,
// without allocating anything.
func (fs *FileSystem) reachableBlocks(in *Inode) ([]uint32, error) {
	var blocks []uint32
	for i := 0; i < NumDirect; i++ {
		if in.Blocks[i] != 0 {
			blocks = append(blocks, in.Blocks[i])
		}
	}
	if in.IsDir() {
		// directories never use indirection; slots 12/13 are plain direct
		// blocks under this layout's "all 14 slots direct for a dir" rule.
		for i := NumDirect; i < NumBlockSlots; i++ {
			if in.Blocks[i] != 0 {
				blocks = append(blocks, in.Blocks[i])
			}
		}
		return blocks, nil
	}

	if in.Blocks[SingleIndirectSlot] != 0 {
		blocks = append(blocks, in.Blocks[SingleIndirectSlot])
		ids, err := fs.readIndirectionBlock(in.Blocks[SingleIndirectSlot])
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if id != 0 {
				blocks = append(blocks, id)
			}
		}
	}
	if in.Blocks[DoubleIndirectSlot] != 0 {
		blocks = append(blocks, in.Blocks[DoubleIndirectSlot])
		top, err := fs.readIndirectionBlock(in.Blocks[DoubleIndirectSlot])
		if err != nil {
			return nil, err
		}
		for _, secondID := range top {
			if secondID == 0 {
				continue
			}
			blocks = append(blocks, secondID)
			second, err := fs.readIndirectionBlock(secondID)
			if err != nil {
				return nil, err
			}
			for _, id := range second {
				if id != 0 {
					blocks = append(blocks, id)
				}
			}
		}
	}
	return blocks, nil
}

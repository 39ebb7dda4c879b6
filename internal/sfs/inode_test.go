package sfs

import "testing"

func TestInodeEncodeDecodeRoundTrip(t *testing.T) {
	in := Inode{
		ID:         3,
		Flags:      FlagInUse,
		Type:       TypeDir,
		Size:       12345,
		ChildCount: 7,
		LastAccess: 100,
		LastModify: 200,
		LastChange: 300,
	}
	in.Blocks[0] = 42
	in.Blocks[SingleIndirectSlot] = 99

	buf := make([]byte, InodeSize)
	in.Encode(buf)

	got := DecodeInode(in.ID, buf)
	if got.Flags != in.Flags || !got.InUse() {
		t.Errorf("flags round trip: got %v", got.Flags)
	}
	if got.Type != in.Type || !got.IsDir() {
		t.Errorf("type round trip: got %v", got.Type)
	}
	if got.Size != in.Size {
		t.Errorf("size round trip: got %d want %d", got.Size, in.Size)
	}
	if got.ChildCount != in.ChildCount {
		t.Errorf("childCount round trip: got %d want %d", got.ChildCount, in.ChildCount)
	}
	if got.Blocks[0] != 42 || got.Blocks[SingleIndirectSlot] != 99 {
		t.Errorf("blocks round trip: got %v", got.Blocks)
	}
}

func TestInodeNotInUse(t *testing.T) {
	var in Inode
	if in.InUse() {
		t.Fatalf("zero-value inode must not be InUse")
	}
}

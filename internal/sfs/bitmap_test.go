package sfs

import "testing"

func TestBitmapSetClear(t *testing.T) {
	bm := NewBitmap(4)

	if bm.IsSet(5) {
		t.Fatalf("expected bit 5 clear on a fresh bitmap")
	}

	bm.Set(5)
	if !bm.IsSet(5) {
		t.Fatalf("expected bit 5 set after Set")
	}
	if bm.IsSet(4) || bm.IsSet(6) {
		t.Fatalf("Set(5) affected a neighboring bit")
	}

	bm.Clear(5)
	if bm.IsSet(5) {
		t.Fatalf("expected bit 5 clear after Clear")
	}
}

func TestBitmapFindZero(t *testing.T) {
	bm := NewBitmap(2) // 16 bits
	for i := uint32(0); i < 10; i++ {
		bm.Set(i)
	}

	n, ok := bm.FindZero(16)
	if !ok {
		t.Fatalf("expected a free bit")
	}
	if n != 10 {
		t.Errorf("expected first free bit 10, got %d", n)
	}

	for i := uint32(10); i < 16; i++ {
		bm.Set(i)
	}
	if _, ok := bm.FindZero(16); ok {
		t.Errorf("expected no free bit once all 16 are set")
	}
}

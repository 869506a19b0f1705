package vmm

import (
	"testing"

	"osim/kernel/mem/pmm"
	"osim/machine"
)

func newTestMM(t *testing.T) (*MM, *Table) {
	t.Helper()
	ram := machine.New(machine.Config{TotalFrames: 16, RegionPages: 16, NumTTYs: 1}).RAM
	alloc := pmm.NewAllocator(16)
	mm := New(ram, alloc)
	table := NewTable(16, false)
	return mm, table
}

func TestMapThenUnmapReturnsFrame(t *testing.T) {
	mm, table := newTestMM(t)
	freeBefore := mm.Alloc.Free()

	if err := mm.Map(table, 0, 2, ProtR|ProtW); err != nil {
		t.Fatalf("map failed: %v", err)
	}
	if !table.Entries[0].Valid() || !table.Entries[1].Valid() {
		t.Fatal("expected both entries valid")
	}

	if err := mm.Unmap(table, 0, 2); err != nil {
		t.Fatalf("unmap failed: %v", err)
	}
	if table.Entries[0].Valid() {
		t.Fatal("expected entry invalid after unmap")
	}
	if mm.Alloc.Free() != freeBefore {
		t.Fatalf("expected frame conservation: free=%d want=%d", mm.Alloc.Free(), freeBefore)
	}
}

func TestUnmapSkipsFrameReleaseForCOWPages(t *testing.T) {
	mm, table := newTestMM(t)
	if err := mm.Map(table, 0, 1, ProtR); err != nil {
		t.Fatalf("map failed: %v", err)
	}
	if err := mm.MarkCOW(table, 0, 1, true); err != nil {
		t.Fatalf("mark cow failed: %v", err)
	}
	freeBefore := mm.Alloc.Free()

	if err := mm.Unmap(table, 0, 1); err != nil {
		t.Fatalf("unmap failed: %v", err)
	}
	if mm.Alloc.Free() != freeBefore {
		t.Fatal("expected COW page's frame to stay with its peer, not return to free list")
	}
}

func TestUpdateProtRequiresValidEntries(t *testing.T) {
	mm, table := newTestMM(t)
	if err := mm.UpdateProt(table, 0, 1, ProtR); err == nil {
		t.Fatal("expected error updating protection of an unmapped page")
	}
}

func TestRoundTripMapAndCopyPreservesContentsAndFrameCount(t *testing.T) {
	mm, src := newTestMM(t)
	dest := NewTable(16, false)

	if err := mm.Map(src, 0, 1, ProtR|ProtW); err != nil {
		t.Fatalf("map failed: %v", err)
	}
	srcFrame := src.Entries[0].Frame()
	copy(mm.RAM.Page(srcFrame), []byte("hello"))

	freeBefore := mm.Alloc.Free()
	if err := mm.MapAndCopy(dest, src, 0, 1); err != nil {
		t.Fatalf("map_and_copy failed: %v", err)
	}

	destFrame := dest.Entries[0].Frame()
	if string(mm.RAM.Page(destFrame)[:5]) != "hello" {
		t.Fatal("expected copied page contents to match source")
	}
	if string(mm.RAM.Page(srcFrame)[:5]) != "hello" {
		t.Fatal("expected source contents untouched")
	}

	if err := mm.Unmap(dest, 0, 1); err != nil {
		t.Fatalf("unmap failed: %v", err)
	}
	if mm.Alloc.Free() != freeBefore {
		t.Fatalf("expected frame table unchanged after round trip: free=%d want=%d", mm.Alloc.Free(), freeBefore)
	}
}

// TestMapAndCopyLargeRangeDoesNotTouchUnrelatedPages guards against the
// scratch-slot walk the original implementation used to do
// (srcBrk+1+i for each of the n copied pages): with a large enough n that
// walk ran past the source table's own length and, before that, straight
// through a process's stack region. Copying many pages here with a small
// table and a brk near the end of it must neither panic nor disturb any
// page outside [start, start+n).
func TestMapAndCopyLargeRangeDoesNotTouchUnrelatedPages(t *testing.T) {
	mm, src := newTestMM(t)
	dest := NewTable(16, false)

	const n = 6
	if err := mm.Map(src, 0, n, ProtR|ProtW); err != nil {
		t.Fatalf("map failed: %v", err)
	}
	// A sentinel page well past the copied range and past where the old
	// scratch-slot arithmetic (srcBrk+1+i, srcBrk=n-1) would have landed.
	const sentinel = 15
	if err := mm.Map(src, sentinel, 1, ProtR|ProtW); err != nil {
		t.Fatalf("map sentinel failed: %v", err)
	}
	copy(mm.RAM.Page(src.Entries[sentinel].Frame()), []byte("untouched"))

	if err := mm.MapAndCopy(dest, src, 0, n); err != nil {
		t.Fatalf("map_and_copy failed: %v", err)
	}

	if !src.Entries[sentinel].Valid() {
		t.Fatal("expected sentinel page mapping to survive map_and_copy")
	}
	if string(mm.RAM.Page(src.Entries[sentinel].Frame())[:9]) != "untouched" {
		t.Fatal("expected sentinel page contents to survive map_and_copy")
	}
	for i := 0; i < n; i++ {
		if string(mm.RAM.Page(dest.Entries[i].Frame())[:9]) == "untouched" {
			t.Fatalf("expected copied page %d to hold source contents, not the sentinel's", i)
		}
	}
}

func TestPageCOWCopyGivesPeerAFreshPrivateFrame(t *testing.T) {
	mm, table := newTestMM(t)
	if err := mm.Map(table, 0, 1, ProtR); err != nil {
		t.Fatalf("map failed: %v", err)
	}
	if err := mm.MarkCOW(table, 0, 1, true); err != nil {
		t.Fatalf("mark cow failed: %v", err)
	}
	sharedFrame := table.Entries[0].Frame()
	copy(mm.RAM.Page(sharedFrame), []byte("shared"))

	peer := NewTable(16, false)
	peer.Entries[0] = table.Entries[0]

	if err := mm.PageCOWCopy(peer, 0, sharedFrame); err != nil {
		t.Fatalf("page_cow_copy failed: %v", err)
	}

	newFrame := peer.Entries[0].Frame()
	if newFrame == sharedFrame {
		t.Fatal("expected peer to receive a new private frame")
	}
	if peer.Entries[0].COW() {
		t.Fatal("expected cow bit cleared on the peer's entry")
	}
	if peer.Entries[0].Prot() != ProtR|ProtW {
		t.Fatal("expected R|W protection on the peer's entry")
	}
	if string(mm.RAM.Page(newFrame)[:6]) != "shared" {
		t.Fatal("expected the peer's new frame to carry over the shared contents")
	}
	if string(mm.RAM.Page(sharedFrame)[:6]) != "shared" {
		t.Fatal("expected the original shared frame untouched")
	}
}

func TestPageCOWCopySkipsPeerAlreadyPrivatized(t *testing.T) {
	mm, table := newTestMM(t)
	if err := mm.Map(table, 0, 1, ProtR); err != nil {
		t.Fatalf("map failed: %v", err)
	}
	sharedFrame := table.Entries[0].Frame()

	peer := NewTable(16, false)
	if err := mm.Map(peer, 0, 1, ProtR|ProtW); err != nil {
		t.Fatalf("map peer failed: %v", err)
	}
	privateFrame := peer.Entries[0].Frame()

	if err := mm.PageCOWCopy(peer, 0, sharedFrame); err != nil {
		t.Fatalf("page_cow_copy failed: %v", err)
	}
	if peer.Entries[0].Frame() != privateFrame {
		t.Fatal("expected an already-privatized peer to be left untouched")
	}
}

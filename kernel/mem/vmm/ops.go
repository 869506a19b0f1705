package vmm

import (
	"osim/kernel"
	"osim/kernel/mem/pmm"
	"osim/machine"
)

var (
	errNotMapped  = &kernel.Error{Module: "vmm", Message: "page table entry is not valid"}
	errOutOfRange = &kernel.Error{Module: "vmm", Message: "page index out of range"}
)

// FlushFn flushes the TLB for a mutated mapping. The teacher's vmm package
// keeps flush calls behind a package-level swappable function variable
// (flushTLBEntryFn in kernel/mem/vmm/map.go) purely so tests can run
// without a real CPU; MM keeps the same seam, but here it is an instance
// field rather than a package global since each test builds its own MM.
type FlushFn func(table *Table, page int)

// RegionFlushFn flushes an entire region's TLB (used after bulk mutation of
// region 0, spec.md §4.2).
type RegionFlushFn func(table *Table)

// MM bundles the dependencies page-table operations need: the byte-level
// view of physical memory and the frame allocator.
type MM struct {
	RAM   *machine.RAM
	Alloc *pmm.Allocator

	Flush       FlushFn
	FlushRegion RegionFlushFn
}

// New creates an MM with no-op flush hooks; callers wire real ones (or
// bookkeeping stubs for tests) via Flush/FlushRegion.
func New(ram *machine.RAM, alloc *pmm.Allocator) *MM {
	return &MM{
		RAM:         ram,
		Alloc:       alloc,
		Flush:       func(*Table, int) {},
		FlushRegion: func(*Table) {},
	}
}

func (m *MM) flush(t *Table, page int) {
	if m.Flush != nil {
		m.Flush(t, page)
	}
}

func (m *MM) flushRegion(t *Table) {
	if m.FlushRegion != nil {
		m.FlushRegion(t)
	}
}

func checkRange(t *Table, start, n int) *kernel.Error {
	if start < 0 || n < 0 || start+n > len(t.Entries) {
		return errOutOfRange
	}
	return nil
}

// Map allocates a fresh frame for each of the n pages starting at start and
// installs it with the given protection (spec.md §4.2 map). On partial
// failure already-mapped pages are left in place; the caller is responsible
// for rolling back.
func (m *MM) Map(t *Table, start, n int, prot Prot) *kernel.Error {
	if err := checkRange(t, start, n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		frame, err := m.Alloc.Alloc()
		if err != nil {
			return err
		}
		t.Entries[start+i] = makePTE(true, prot, false, false, frame)
		m.flush(t, start+i)
	}
	return nil
}

// Unmap tears down n mappings starting at start. A page whose entry is
// COW-shared only has its PTE cleared — ownership of the frame stays with
// whichever peer still references it (spec.md §4.2). Otherwise the frame is
// returned to the free list.
func (m *MM) Unmap(t *Table, start, n int) *kernel.Error {
	if err := checkRange(t, start, n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		idx := start + i
		pte := t.Entries[idx]
		if pte.Valid() && !pte.COW() {
			m.Alloc.Release(pte.Frame())
		}
		t.Entries[idx] = 0
		m.flush(t, idx)
	}
	return nil
}

// UpdateProt changes the protection of n already-valid entries (spec.md
// §4.2 update_prot). It requires every entry in range to be valid.
func (m *MM) UpdateProt(t *Table, start, n int, prot Prot) *kernel.Error {
	if err := checkRange(t, start, n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		idx := start + i
		if !t.Entries[idx].Valid() {
			return errNotMapped
		}
		pte := t.Entries[idx]
		t.Entries[idx] = makePTE(true, prot, pte.COW(), pte.Swapped(), pte.Frame())
		m.flush(t, idx)
	}
	return nil
}

// UpdateIndexes rewrites the frame pointed to by n already-valid entries,
// used by the context-switch callback to swap the kernel-stack frames into
// region 0 (spec.md §4.2 update_indexes).
func (m *MM) UpdateIndexes(t *Table, start, n int, frames []pmm.Frame) *kernel.Error {
	if err := checkRange(t, start, n); err != nil {
		return err
	}
	if len(frames) != n {
		return errOutOfRange
	}
	for i := 0; i < n; i++ {
		idx := start + i
		if !t.Entries[idx].Valid() {
			return errNotMapped
		}
		pte := t.Entries[idx]
		t.Entries[idx] = makePTE(true, pte.Prot(), pte.COW(), false, frames[i])
	}
	m.flushRegion(t)
	return nil
}

// MarkCOW sets or clears the cow bit on n entries (spec.md §4.2 mark_cow).
func (m *MM) MarkCOW(t *Table, start, n int, cow bool) *kernel.Error {
	if err := checkRange(t, start, n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		idx := start + i
		pte := t.Entries[idx]
		t.Entries[idx] = makePTE(pte.Valid(), pte.Prot(), cow, pte.Swapped(), pte.Frame())
	}
	return nil
}

// MapAndCopy allocates n fresh frames in dest starting at start and copies
// the corresponding source pages' contents into them. It is only used when
// COW is disabled (spec.md §4.2 map_and_copy).
//
// original_source's map_pages_and_copy stages each copy through a scratch
// PTE slot above the source's brk, since on real hardware the only way to
// read a physical frame is to have an address space map it. This
// simulation's RAM is a flat byte slice the kernel can already index by
// frame directly (m.RAM.Page), so the scratch mapping would do nothing but
// add and remove a PTE nobody reads through; it is dropped rather than
// reused at a single slot, since even one slot still has to live somewhere
// in region 1 and the only correct fixed spot — the original's single
// scratch slot immediately above brk — can be pushed into the stack region
// by a process that has grown its heap, clobbering a live mapping.
func (m *MM) MapAndCopy(dest, src *Table, start, n int) *kernel.Error {
	if err := checkRange(src, start, n); err != nil {
		return err
	}
	if err := m.Map(dest, start, n, ProtR|ProtW); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		idx := start + i
		srcPTE := src.Entries[idx]
		if !srcPTE.Valid() {
			continue
		}
		destFrame := dest.Entries[idx].Frame()
		copy(m.RAM.Page(destFrame), m.RAM.Page(srcPTE.Frame()))
	}
	return nil
}

// SwapOutPage marks page as swapped (valid=0, swap=1) and returns the
// frame it used to point at, leaving release of that frame to the caller
// once its contents are safely written to disk (spec.md §4.3 swap_out:
// "for each written page set {swap:1, valid:0} and return its frame").
// Pages whose cow bit is set are left untouched — spec.md §4.3 "Skip
// entries where cow=1 (their frame belongs to a peer)".
func (m *MM) SwapOutPage(t *Table, page int) (pmm.Frame, bool) {
	pte := t.Entries[page]
	if !pte.Valid() || pte.COW() {
		return pmm.InvalidFrame, false
	}
	frame := pte.Frame()
	t.Entries[page] = makePTE(false, pte.Prot(), false, true, 0)
	m.flush(t, page)
	return frame, true
}

// SwapInPage installs frame into an entry previously marked swapped,
// clearing the swap bit (spec.md §4.3 swap_in: "allocate a frame, set
// {valid:1, swap:0, pfn}").
func (m *MM) SwapInPage(t *Table, page int, frame pmm.Frame) *kernel.Error {
	pte := t.Entries[page]
	if !pte.Swapped() || pte.Valid() {
		return errNotMapped
	}
	t.Entries[page] = makePTE(true, pte.Prot(), false, false, frame)
	m.flush(t, page)
	return nil
}

// PageCOWCopy privatizes page in peer: if peer's entry still points at
// faulterFrame (the frame the writer who triggered this fault was sharing
// with it), peer is handed a fresh frame carrying a copy of faulterFrame's
// contents, with R|W and cow cleared. A peer whose entry no longer points at
// faulterFrame (already privatized by an earlier fault) is left untouched —
// this is the same guard original_source's page_cow_copy applies via
// `d_table[page].pfn == s_table[page].pfn` before it bothers copying.
//
// This is the "every other peer gets a copy" half of spec.md §4.2
// page_cow_copy's eager promotion; the writer itself keeps its existing
// frame and is promoted separately by the caller (proc.PromoteCOW), since it
// never needs a new frame at all.
func (m *MM) PageCOWCopy(peer *Table, page int, faulterFrame pmm.Frame) *kernel.Error {
	pte := peer.Entries[page]
	if !pte.Valid() {
		return errNotMapped
	}
	if pte.Frame() != faulterFrame {
		return nil
	}

	newFrame, err := m.Alloc.Alloc()
	if err != nil {
		return err
	}

	copy(m.RAM.Page(newFrame), m.RAM.Page(faulterFrame))

	peer.Entries[page] = makePTE(true, ProtR|ProtW, false, false, newFrame)
	m.flush(peer, page)
	return nil
}

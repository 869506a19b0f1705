package proc

import "osim/kernel"

var errNoFreeSlot = &kernel.Error{Module: "proc", Message: "no free utility handle slot"}

// NewUtilitySlot returns the index of the first empty handle-table slot, or
// an error if the table is full (spec.md §4.4 new_utility_slot). The
// caller is expected to immediately store its utility reference into
// p.Utilities[slot].
func (p *PCB) NewUtilitySlot() (int, *kernel.Error) {
	for i, u := range p.Utilities {
		if u == nil {
			return i, nil
		}
	}
	return -1, errNoFreeSlot
}

// Handle returns whatever is stored in slot, or nil if it is out of range
// or empty (spec.md §4.4 get).
func (p *PCB) Handle(slot int) interface{} {
	if slot < 0 || slot >= len(p.Utilities) {
		return nil
	}
	return p.Utilities[slot]
}

// SetHandle stores u into slot.
func (p *PCB) SetHandle(slot int, u interface{}) {
	p.Utilities[slot] = u
}

// ClearHandle empties slot.
func (p *PCB) ClearHandle(slot int) {
	p.Utilities[slot] = nil
}

// CopyHandles copies every non-empty slot from src into p, used by fork
// (spec.md §4.4 copy_handles); bumping the referenced utilities' refcounts
// is the ipc package's responsibility since proc has no dependency on it.
func (p *PCB) CopyHandles(src *PCB) {
	p.Utilities = src.Utilities
}

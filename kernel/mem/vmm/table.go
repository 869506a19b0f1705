package vmm

// Table is a region's flat page table: one PTE per page, indexed directly
// by page number (spec.md §3). Region 0 (kernel) has exactly one Table for
// the whole system; region 1 (user) has one per process.
type Table struct {
	Entries []PTE
	Kernel  bool
}

// NewTable allocates an empty table with the given fixed entry count
// (region size ÷ page size, spec.md §3).
func NewTable(pages int, kernel bool) *Table {
	return &Table{Entries: make([]PTE, pages), Kernel: kernel}
}

// Clone makes an independent copy of the table's entries (used by
// spec.md §4.4's COW fork path, which duplicates every PTE before
// downgrading permissions in both tables).
func (t *Table) Clone() *Table {
	c := &Table{Entries: make([]PTE, len(t.Entries)), Kernel: t.Kernel}
	copy(c.Entries, t.Entries)
	return c
}

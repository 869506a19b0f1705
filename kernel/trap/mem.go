package trap

import (
	"osim/kernel"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/machine"
)

var errBadPointer = &kernel.Error{Module: "trap", Message: "syscall argument is not a valid region-1 pointer"}

// checkUserPointer enforces spec.md §6's calling-convention rule that "any
// pointer argument must satisfy region1_base <= p < region1_limit" and
// land on pages that are actually mapped, whatever their protection (original_source's FROM_USER_SPACE
// macro, generalized from a raw address range check to our page-table
// model).
func checkUserPointer(task *proc.PCB, regionPages int, addr uint64, length int) *kernel.Error {
	limit := uint64(regionPages * machine.PageSize)
	if length < 0 || addr >= limit || addr+uint64(length) > limit {
		return errBadPointer
	}
	firstPage := int(addr) / machine.PageSize
	lastPage := int(addr+uint64(length)-1) / machine.PageSize
	if length == 0 {
		lastPage = firstPage
	}
	for p := firstPage; p <= lastPage; p++ {
		if !task.PageTable.Entries[p].Valid() {
			return errBadPointer
		}
	}
	return nil
}

// readUserBytes copies length bytes out of task's region-1 address space
// starting at addr.
func readUserBytes(mm *vmm.MM, task *proc.PCB, addr uint64, length int) []byte {
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		a := addr + uint64(i)
		page := int(a) / machine.PageSize
		off := int(a) % machine.PageSize
		out[i] = mm.RAM.Page(task.PageTable.Entries[page].Frame())[off]
	}
	return out
}

// writeUserBytes copies data into task's region-1 address space starting
// at addr.
func writeUserBytes(mm *vmm.MM, task *proc.PCB, addr uint64, data []byte) {
	for i, b := range data {
		a := addr + uint64(i)
		page := int(a) / machine.PageSize
		off := int(a) % machine.PageSize
		mm.RAM.Page(task.PageTable.Entries[page].Frame())[off] = b
	}
}

// readUserString reads a fixed-length byte run and trims the trailing NUL,
// used for YALNIX_EXEC's filename/argv arguments.
func readUserString(mm *vmm.MM, task *proc.PCB, addr uint64, length int) string {
	b := readUserBytes(mm, task, addr, length)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

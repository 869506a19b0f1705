// Package loader installs an executable's text, data and stack segments
// into a process's region-1 address space (spec.md §4.5, Component E),
// grounded on original_source kernel/load.c's sys_load. Parsing the
// on-disk executable header is explicitly out of scope (spec.md §1: "the
// boot-time parsing of the executable file format (LoadInfo)... only
// their contracts at the boundary with the core are described"); Header
// below is that contract.
package loader

import (
	"io"

	"osim/kernel"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/machine"
)

var (
	errBadEntry      = &kernel.Error{Module: "loader", Message: "entry point outside the text segment"}
	errPageBudget    = &kernel.Error{Module: "loader", Message: "program exceeds region 1 page budget"}
	errShortRead     = &kernel.Error{Module: "loader", Message: "short read loading executable segment"}
)

// initialStackFrameBytes mirrors original_source's INITIAL_STACK_FRAME_SIZE
// reservation above the argv vector for the callee's first frame.
const initialStackFrameBytes = 64

// Header is the executable metadata an out-of-scope file-format parser
// hands the loader: page-granular segment boundaries plus the file
// offsets to read them from (spec.md §4.5 step 1 "Read header via
// LoadInfo").
type Header struct {
	EntryPage      int
	TextPages      int
	TextFileOffset int64
	DataPages      int // combined initialized + uninitialized (bss) data/heap pages
	DataFileOffset int64
	DataFileBytes  int // bytes of DataPages actually backed by file content; the remainder is bss
}

// Load installs hdr's program plus argv into task's region-1 address
// space (spec.md §4.5). regionPages is the hardware's fixed region-1
// entry count, used both as the page budget ceiling and to place argv at
// the top of the address space.
func Load(mm *vmm.MM, task *proc.PCB, file io.ReaderAt, hdr Header, argv []string, regionPages int) *kernel.Error {
	if hdr.EntryPage < 0 || hdr.EntryPage >= hdr.TextPages {
		return errBadEntry
	}

	dataStart := hdr.TextPages
	argBytes := 0
	for _, a := range argv {
		argBytes += len(a) + 1
	}
	argc := len(argv)

	// cp: start of the raw argument bytes, at the very top of region 1.
	cp := regionPages*machine.PageSize - argBytes
	// cpp: start of the argv pointer vector (argc, argv[0..n), two NULL
	// terminators), 8-byte aligned (spec.md §4.5 step 10).
	cpp := (cp - (argc+3)*8) &^ 7
	sp := cpp - initialStackFrameBytes

	stackTopPage := sp / machine.PageSize
	stackPages := regionPages - stackTopPage

	if stackPages+dataStart+hdr.DataPages >= regionPages {
		return errPageBudget
	}

	argBuf := make([]byte, argBytes)
	off := 0
	for _, a := range argv {
		copy(argBuf[off:], a)
		argBuf[off+len(a)] = 0
		off += len(a) + 1
	}

	if task.PageTable != nil && task.CodePages > 0 {
		unmapUserSegments(mm, task)
	}

	if err := mm.Map(task.PageTable, 0, hdr.TextPages, vmm.ProtR|vmm.ProtW); err != nil {
		return err
	}
	task.CodeStart, task.CodePages = 0, hdr.TextPages

	if err := mm.Map(task.PageTable, dataStart, hdr.DataPages, vmm.ProtR|vmm.ProtW); err != nil {
		return err
	}
	task.DataStart = dataStart
	task.Brk = dataStart + hdr.DataPages

	if err := mm.Map(task.PageTable, stackTopPage, stackPages, vmm.ProtR|vmm.ProtW); err != nil {
		return err
	}
	task.StackStart, task.StackPages = stackTopPage, stackPages

	if err := readSegment(mm, task.PageTable, file, hdr.TextFileOffset, 0, hdr.TextPages); err != nil {
		return err
	}
	dataFilePages := (hdr.DataFileBytes + machine.PageSize - 1) / machine.PageSize
	if err := readSegment(mm, task.PageTable, file, hdr.DataFileOffset, dataStart, dataFilePages); err != nil {
		return err
	}

	if err := mm.UpdateProt(task.PageTable, 0, hdr.TextPages, vmm.ProtR|vmm.ProtX); err != nil {
		return err
	}

	zeroBSS(mm, task.PageTable, dataStart, hdr.DataFileBytes, hdr.DataPages*machine.PageSize)

	buildArgv(mm, task.PageTable, cpp, cp, argv, argBuf)

	task.UserContext.PC = uintptr(hdr.EntryPage * machine.PageSize)
	task.UserContext.SP = uintptr(sp)
	task.State = proc.StateReady
	return nil
}

func unmapUserSegments(mm *vmm.MM, task *proc.PCB) {
	mm.Unmap(task.PageTable, task.CodeStart, task.CodePages)
	mm.Unmap(task.PageTable, task.DataStart, task.Brk-task.DataStart)
	mm.Unmap(task.PageTable, task.StackStart, task.StackPages)
}

// readSegment reads nPages worth of file content, starting at fileOffset,
// into the already-mapped pages [startPage, startPage+nPages).
func readSegment(mm *vmm.MM, table *vmm.Table, file io.ReaderAt, fileOffset int64, startPage, nPages int) *kernel.Error {
	for i := 0; i < nPages; i++ {
		page := mm.RAM.Page(table.Entries[startPage+i].Frame())
		n, err := file.ReadAt(page, fileOffset+int64(i*machine.PageSize))
		if err != nil && err != io.EOF {
			return &kernel.Error{Module: "loader", Message: err.Error()}
		}
		if n < len(page) && err != io.EOF {
			return errShortRead
		}
	}
	return nil
}

// zeroBSS clears the uninitialized tail of the data/heap region, starting
// right after the bytes that came from the file (spec.md §4.5 step 9
// "zero the bss").
func zeroBSS(mm *vmm.MM, table *vmm.Table, dataStart, fileBytes, totalBytes int) {
	if fileBytes >= totalBytes {
		return
	}
	remaining := totalBytes - fileBytes
	page := dataStart + fileBytes/machine.PageSize
	offset := fileBytes % machine.PageSize
	for remaining > 0 {
		buf := mm.RAM.Page(table.Entries[page].Frame())
		n := machine.PageSize - offset
		if n > remaining {
			n = remaining
		}
		for i := 0; i < n; i++ {
			buf[offset+i] = 0
		}
		remaining -= n
		offset = 0
		page++
	}
}

// buildArgv writes the argc/argv[]/envp vector at the top of the stack
// (spec.md §4.5 step 10): argc, then one pointer per argument into the
// bytes already copied from argBuf at cp, then two NULL terminators (argv
// and envp list ends).
func buildArgv(mm *vmm.MM, table *vmm.Table, cpp, cp int, argv []string, argBuf []byte) {
	writeWord(mm, table, cpp, uint64(len(argv)))
	cpp += 8

	writeBytes(mm, table, cp, argBuf)

	dataOff := 0
	for _, a := range argv {
		writeWord(mm, table, cpp, uint64(cp+dataOff))
		dataOff += len(a) + 1
		cpp += 8
	}
	writeWord(mm, table, cpp, 0) // argv terminator
	cpp += 8
	writeWord(mm, table, cpp, 0) // envp terminator
}

func pageOf(addr int) (int, int) {
	return addr / machine.PageSize, addr % machine.PageSize
}

func writeByte(mm *vmm.MM, table *vmm.Table, addr int, b byte) {
	page, off := pageOf(addr)
	mm.RAM.Page(table.Entries[page].Frame())[off] = b
}

func writeBytes(mm *vmm.MM, table *vmm.Table, addr int, data []byte) {
	for i, b := range data {
		writeByte(mm, table, addr+i, b)
	}
}

func writeWord(mm *vmm.MM, table *vmm.Table, addr int, v uint64) {
	for i := 0; i < 8; i++ {
		writeByte(mm, table, addr+i, byte(v>>(8*i)))
	}
}

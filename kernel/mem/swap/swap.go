// Package swap implements victim selection and page-out/page-in against
// the simulated disk (spec.md §4.3, Component C), grounded on
// original_source kernel/swap.c.
package swap

import (
	"osim/kernel"
	"osim/kernel/kfmt"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/machine"
)

var (
	errNoVictim   = &kernel.Error{Module: "swap", Message: "no eligible victim process to swap out"}
	errNotSwapped = &kernel.Error{Module: "swap", Message: "task is not swapped out"}
)

// Engine selects a victim process and moves its text/data/heap pages to
// and from a per-PID swap file on the simulated disk.
type Engine struct {
	mm   *vmm.MM
	disk *machine.Disk
	reg  *proc.Registry

	// Current returns the currently-running PCB, used to exclude it from
	// victim selection (spec.md §4.3: "skip idle, init, current"). It is
	// a callback rather than a field set once because the running
	// process changes every context switch and swap.Engine is
	// constructed once, before any process exists.
	Current func() *proc.PCB
}

// New builds a swap engine over mm's RAM/allocator and disk's per-PID
// swap files.
func New(mm *vmm.MM, disk *machine.Disk, reg *proc.Registry) *Engine {
	return &Engine{mm: mm, disk: disk, reg: reg}
}

// pickVictim scans the registry for the first process that is not idle,
// init, the currently running task, or already swapped (spec.md §4.3
// "Victim selection"). AllSortedByPID gives this a deterministic order;
// the original's hash iteration order is unspecified so this is a
// legitimate, more testable refinement.
func (e *Engine) pickVictim() *proc.PCB {
	var current *proc.PCB
	if e.Current != nil {
		current = e.Current()
	}
	for _, task := range e.reg.AllSortedByPID() {
		if task.PID <= 1 {
			continue
		}
		if current != nil && task.PID == current.PID {
			continue
		}
		if task.Swapped {
			continue
		}
		return task
	}
	return nil
}

// SwapOut picks a victim and writes its text and data+heap pages to its
// swap file, releasing each page's frame as it goes (spec.md §4.3
// "swap_out"). It satisfies pmm.SwapOutFn's signature so it can be wired
// directly into the frame allocator via SetSwapOut.
func (e *Engine) SwapOut() *kernel.Error {
	victim := e.pickVictim()
	if victim == nil {
		return errNoVictim
	}
	kfmt.Printf("swap: out pid %d\n", victim.PID)

	file, err := e.disk.Create(victim.PID)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := e.swapOutRegion(file, victim, victim.CodeStart, victim.CodePages); err != nil {
		return err
	}
	dataPages := victim.Brk - victim.DataStart
	if err := e.swapOutRegion(file, victim, victim.DataStart, dataPages); err != nil {
		return err
	}

	victim.Swapped = true
	return nil
}

func (e *Engine) swapOutRegion(file *machine.SwapFile, task *proc.PCB, start, n int) *kernel.Error {
	for i := start; i < start+n; i++ {
		frame, ok := e.mm.SwapOutPage(task.PageTable, i)
		if !ok {
			continue
		}
		if err := file.WritePage(i, e.mm.RAM.Page(frame)); err != nil {
			return err
		}
		e.mm.Alloc.Release(frame)
	}
	return nil
}

// SwapIn reads task's swapped pages back from its swap file, allocating a
// fresh frame for each (spec.md §4.3 "swap_in"). Called by the
// page-fault handler when it faults on a swap=1 PTE. On a short read the
// affected page is rolled back to its swapped state and an I/O error is
// returned, per spec.md.
func (e *Engine) SwapIn(task *proc.PCB) *kernel.Error {
	if !task.Swapped {
		return errNotSwapped
	}
	kfmt.Printf("swap: in pid %d\n", task.PID)

	file, err := e.disk.Open(task.PID)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := e.swapInRegion(file, task, task.CodeStart, task.CodePages); err != nil {
		return err
	}
	dataPages := task.Brk - task.DataStart
	if err := e.swapInRegion(file, task, task.DataStart, dataPages); err != nil {
		return err
	}

	task.Swapped = false
	e.disk.Unlink(task.PID)
	return nil
}

func (e *Engine) swapInRegion(file *machine.SwapFile, task *proc.PCB, start, n int) *kernel.Error {
	for i := start; i < start+n; i++ {
		pte := task.PageTable.Entries[i]
		if !pte.Swapped() || pte.Valid() {
			continue
		}

		frame, err := e.mm.Alloc.Alloc()
		if err != nil {
			return err
		}
		if err := file.ReadPage(i, e.mm.RAM.Page(frame)); err != nil {
			e.mm.Alloc.Release(frame)
			return err
		}
		if err := e.mm.SwapInPage(task.PageTable, i, frame); err != nil {
			e.mm.Alloc.Release(frame)
			return err
		}
	}
	return nil
}

package proc

import (
	"osim/kernel"
	"osim/kernel/mem/vmm"
)

var (
	errStackHeapCollision = &kernel.Error{Module: "proc", Message: "stack growth would collide with heap"}
	errStackRegionLimit   = &kernel.Error{Module: "proc", Message: "stack growth exceeds region 1"}
)

// SpawnChild allocates a fresh PCB for parent's child: a new pid, an empty
// page table sized like parent's, and parent/child links installed
// (spec.md §4.4 spawn_child). Copying the address space itself is the
// caller's job, via VMCopy or VMShareCopy, since the two fork variants
// build the child's table very differently.
func SpawnChild(reg *Registry, parent *PCB) *PCB {
	child := New(reg.NextPID(), len(parent.PageTable.Entries))
	child.CodeStart, child.CodePages = parent.CodeStart, parent.CodePages
	child.DataStart, child.DataPages = parent.DataStart, parent.DataPages
	child.Brk = parent.Brk
	child.StackStart, child.StackPages = parent.StackStart, parent.StackPages
	child.State = StateReady

	parent.AddChild(child)
	reg.Insert(child)
	return child
}

// VMCopyPlain builds child's address space as an independent physical copy
// of parent's text, data/heap and stack regions (spec.md §4.4 vm_copy, COW
// disabled). Text is restored to R|X once the copy completes since
// MapAndCopy always installs R|W for the duration of the copy.
func VMCopyPlain(mm *vmm.MM, parent, child *PCB) *kernel.Error {
	if err := copyRegionPlain(mm, parent, child, parent.CodeStart, parent.CodePages); err != nil {
		return err
	}
	if err := mm.UpdateProt(child.PageTable, parent.CodeStart, parent.CodePages, vmm.ProtR|vmm.ProtX); err != nil {
		return err
	}

	dataPages := child.Brk - parent.DataStart
	if err := copyRegionPlain(mm, parent, child, parent.DataStart, dataPages); err != nil {
		return err
	}
	return copyRegionPlain(mm, parent, child, parent.StackStart, parent.StackPages)
}

func copyRegionPlain(mm *vmm.MM, parent, child *PCB, start, n int) *kernel.Error {
	if n <= 0 {
		return nil
	}
	return mm.MapAndCopy(child.PageTable, parent.PageTable, start, n)
}

// VMCopyCOW builds child's address space as a deferred copy: every valid
// PTE in parent's text/data/stack range is cloned into child, both copies
// are downgraded to read-only, and the cow bit is set on both so the first
// write fault on either side triggers PageCOWCopy (spec.md §4.4 vm_copy,
// COW enabled). parent and child join a fresh PeerGroup so the frame isn't
// released until both sides are done with it (spec.md §9).
func VMCopyCOW(mm *vmm.MM, parent, child *PCB) *kernel.Error {
	start := parent.CodeStart
	n := (parent.StackStart + parent.StackPages) - start
	if n <= 0 {
		NewPeerGroup(parent, child)
		return nil
	}

	child.PageTable = parent.PageTable.Clone()

	for i := start; i < start+n; i++ {
		if !parent.PageTable.Entries[i].Valid() {
			continue
		}
		if err := downgradeToCOW(mm, parent.PageTable, i); err != nil {
			return err
		}
		if err := downgradeToCOW(mm, child.PageTable, i); err != nil {
			return err
		}
	}

	NewPeerGroup(parent, child)
	return nil
}

func downgradeToCOW(mm *vmm.MM, t *vmm.Table, page int) *kernel.Error {
	pte := t.Entries[page]
	prot := pte.Prot() &^ vmm.ProtW
	if err := mm.UpdateProt(t, page, 1, prot); err != nil {
		return err
	}
	return mm.MarkCOW(t, page, 1, true)
}

// VMShareCopy implements fork_share (spec.md §6 CUSTOM_0): text, data and
// heap are shared COW exactly like VMCopyCOW, but the stack is physically
// copied so each task keeps an independent call frame. Both tasks still
// join the same peer group, since the shared text/data/heap frames need
// the same deferred-release tracking.
func VMShareCopy(mm *vmm.MM, parent, child *PCB) *kernel.Error {
	start := parent.CodeStart
	n := child.Brk - start
	if n > 0 {
		child.PageTable = parent.PageTable.Clone()
		for i := start; i < start+n; i++ {
			if !parent.PageTable.Entries[i].Valid() {
				continue
			}
			if err := downgradeToCOW(mm, parent.PageTable, i); err != nil {
				return err
			}
			if err := downgradeToCOW(mm, child.PageTable, i); err != nil {
				return err
			}
		}
	}

	if err := copyRegionPlain(mm, parent, child, parent.StackStart, parent.StackPages); err != nil {
		return err
	}

	Join(parent, child)
	return nil
}

// PromoteCOW services a write fault against a COW page (spec.md §4.2
// page_cow_copy, applied group-wide): task keeps the frame it was already
// sharing, and every other member of its peer group is handed a fresh
// private copy of that frame, exactly mirroring original_source's
// task_cow_copy_page looping over task->cow_list before clearing task's own
// cow bit. Peers that had already privatized this page (e.g. promoted by an
// earlier fault of their own) are left alone by vmm.PageCOWCopy's frame
// check.
func PromoteCOW(mm *vmm.MM, task *PCB, page int) *kernel.Error {
	frame := task.PageTable.Entries[page].Frame()

	if task.COWPeers != nil {
		for _, peer := range task.COWPeers.Others(task) {
			if err := mm.PageCOWCopy(peer.PageTable, page, frame); err != nil {
				return err
			}
		}
	}

	if err := mm.UpdateProt(task.PageTable, page, 1, vmm.ProtR|vmm.ProtW); err != nil {
		return err
	}
	return mm.MarkCOW(task.PageTable, page, 1, false)
}

// ExpandStack grows (deltaPages > 0) or shrinks (deltaPages < 0) task's
// stack region by deltaPages, refusing any growth that would collide with
// the heap or run past the end of region 1 (spec.md §4.4 expand_stack).
func ExpandStack(mm *vmm.MM, task *PCB, deltaPages int) *kernel.Error {
	if deltaPages == 0 {
		return nil
	}
	if deltaPages > 0 {
		newStart := task.StackStart - deltaPages
		if newStart <= task.Brk {
			return errStackHeapCollision
		}
		if newStart < 0 {
			return errStackRegionLimit
		}
		if err := mm.Map(task.PageTable, newStart, deltaPages, vmm.ProtR|vmm.ProtW); err != nil {
			return err
		}
		task.StackStart = newStart
		task.StackPages += deltaPages
		return nil
	}

	shrink := -deltaPages
	if shrink > task.StackPages {
		shrink = task.StackPages
	}
	if err := mm.Unmap(task.PageTable, task.StackStart, shrink); err != nil {
		return err
	}
	task.StackStart += shrink
	task.StackPages -= shrink
	return nil
}

// AddressSpaceFree tears down task's entire address space (spec.md §4.4
// address_space_free). If task is the sole survivor of its COW peer group,
// the cow bit is cleared first, since Unmap never releases a frame whose
// entry has cow set and those frames would otherwise never return to the
// free list; otherwise Unmap leaves COW-shared frames for the surviving
// peers.
func AddressSpaceFree(mm *vmm.MM, task *PCB) *kernel.Error {
	if task.COWPeers != nil && task.COWPeers.SoleSurvivor(task) {
		start := task.CodeStart
		n := (task.StackStart + task.StackPages) - start
		if n > 0 {
			if err := mm.MarkCOW(task.PageTable, start, n, false); err != nil {
				return err
			}
		}
	}

	start := task.CodeStart
	n := (task.StackStart + task.StackPages) - start
	if n > 0 {
		if err := mm.Unmap(task.PageTable, start, n); err != nil {
			return err
		}
	}

	mm.Alloc.BulkRelease(task.KernelStackFrames)
	task.KernelStackFrames = nil

	if task.COWPeers != nil {
		task.COWPeers.Leave(task)
		task.COWPeers = nil
	}
	return nil
}

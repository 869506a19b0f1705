package trap

import (
	"osim/kernel/kfmt"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/kernel/syscall"
	"osim/machine"
)

// handleIllegal and handleMath both terminate the faulting process with
// ERROR (spec.md §4.8, original_source trap_illegal_handler /
// trap_math_handler both just call sys_exit(ERROR, user_ctx)).
func (d *Dispatcher) handleIllegal(info machine.TrapInfo) { d.killIllegal(d.current(), info.Regs) }
func (d *Dispatcher) handleMath(info machine.TrapInfo)    { d.killIllegal(d.current(), info.Regs) }

// handleDisk terminates the faulting process with ERROR as well — a disk
// trap in this design only ever reaches a process synchronously, through
// the swap engine's own I/O error returns, so its only observable use is
// the same "kill on unrecoverable hardware fault" contract spec.md §7
// gives every other terminal trap kind.
func (d *Dispatcher) handleDisk(info machine.TrapInfo) { d.killIllegal(d.current(), info.Regs) }

func (d *Dispatcher) killIllegal(current *proc.PCB, userCtx *machine.Regs) {
	kfmt.Printf("trap: pid %d killed (illegal trap)\n", current.PID)
	d.k.Exit(current, userCtx, syscall.ErrGeneral)
}

func (d *Dispatcher) killCurrent(current *proc.PCB, userCtx *machine.Regs, status int64) {
	d.k.Exit(current, userCtx, status)
}

// handleMemory is TrapMemory's handler: the page-fault policy spec.md §4.8
// describes, grounded on original_source trap_memory_handler's switch on
// user_ctx->code.
//
//   - MapErr on the page directly below the stack's current bottom: the
//     stack is growing, expand it by one page.
//   - MapErr on a page marked swapped: bring it back from disk.
//   - AccErr on a COW page: this is a write to a shared page, promote it to
//     a private copy.
//   - AccErr on the text segment (R|X): a write to code, which is always
//     illegal — kill the process.
//   - Anything else: kill the process (spec.md §7 "Segmentation
//     violation... process killed with ERROR").
func (d *Dispatcher) handleMemory(info machine.TrapInfo) {
	current := d.current()
	userCtx := info.Regs
	page := int(info.FaultAddr) / machine.PageSize

	if page < 0 || page >= len(current.PageTable.Entries) {
		d.killIllegal(current, userCtx)
		return
	}
	pte := current.PageTable.Entries[page]

	switch userCtx.Code {
	case machine.MapErr:
		if !pte.Valid() && !pte.Swapped() && page == current.StackStart-1 {
			if err := proc.ExpandStack(d.k.MM, current, 1); err != nil {
				d.killIllegal(current, userCtx)
			}
			return
		}
		if pte.Swapped() {
			if err := d.k.Swap.SwapIn(current); err != nil {
				d.killCurrent(current, userCtx, syscall.ErrIO)
			}
			return
		}
		d.killIllegal(current, userCtx)

	default: // machine.AccErr and anything unrecognized
		if pte.COW() && pte.Prot() == vmm.ProtR {
			if err := proc.PromoteCOW(d.k.MM, current, page); err != nil {
				d.killIllegal(current, userCtx)
				return
			}
			kfmt.Printf("trap: pid %d promoted cow page %d\n", current.PID, page)
			return
		}
		d.killIllegal(current, userCtx)
	}
}

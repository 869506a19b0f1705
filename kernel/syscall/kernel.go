// Package syscall wires the process/address-space core (D), scheduler
// (F), synchronization primitives (G), timers (H) and loader (E) into the
// user-visible system-call surface (spec.md §6, Component K), grounded on
// original_source's kernel/interrupt.c trap_kernel_handler switch and the
// sys_* routines scattered across kernel/process.c, kernel/utility.c and
// kernel/load.c.
package syscall

import (
	"osim/kernel/ipc"
	"osim/kernel/mem/swap"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/kernel/sched"
	"osim/kernel/timer"
	"osim/machine"
)

// Exit status codes (spec.md §6 "Exit codes").
const (
	OK        = 0
	ErrGeneral = -1
	ErrNoMem   = -2
	ErrIO      = -3
)

// Number is one of the stable system-call numbers (spec.md §6).
type Number uint64

const (
	Fork Number = iota
	Exec
	Exit
	Wait
	Getpid
	Brk
	Delay
	TTYRead
	TTYWrite
	PipeInit
	PipeRead
	PipeWrite
	LockInit
	LockAcquire
	LockRelease
	CvarInit
	CvarWait
	CvarSignal
	CvarBroadcast
	Reclaim
	Custom0 // fork_share
)

// Kernel bundles every piece of kernel state a syscall might touch — the
// "single kernel-state value threaded explicitly" spec.md §9 calls for in
// place of the original's scattered globals (current, jiffies, the PCB
// hash, the frame free list).
type Kernel struct {
	MM       *vmm.MM
	Sched    *sched.Scheduler
	Registry *proc.Registry
	Timers   *timer.List
	Swap     *swap.Engine
	Machine  *machine.Machine

	RegionPages      int
	KernelStackPages int
}

// Get and Put adapt proc's untyped handle-table slots to ipc's refcount
// discipline. They live here rather than in proc itself because proc must
// not import ipc (proc.PCB predates ipc's handle types; see
// kernel/proc/handles.go) — syscall is the first layer that knows both.
func Get(slot interface{}) {
	if u, ok := slot.(ipc.Utility); ok {
		ipc.Get(u)
	}
}

func Put(slot interface{}) {
	if u, ok := slot.(ipc.Utility); ok {
		ipc.Put(u)
	}
}

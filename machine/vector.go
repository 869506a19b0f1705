package machine

import "osim/kernel/sync"

// TrapKind identifies which slot of the trap vector fired. This plays the
// role of the hardware's REG_VECTOR_BASE table lookup (spec.md §6):
// dispatch-by-kind, modeled after the teacher's irq.HandleException /
// irq.HandleExceptionWithCode registration idiom (kernel/irq/handler_amd64.go),
// generalized from "exception number" to the full set of trap kinds spec.md
// §4.8 names.
type TrapKind uint8

const (
	TrapSyscall TrapKind = iota
	TrapClock
	TrapIllegal
	TrapMath
	TrapDisk
	TrapMemory
	TrapTTYReceive
	TrapTTYTransmit

	numTrapKinds
)

// TrapInfo carries whatever the hardware would have pushed to the stack for
// a given trap: the syscall arguments, the faulting address, the TTY index,
// and so on. Handlers type-assert on the fields relevant to TrapKind.
type TrapInfo struct {
	// Regs is the register file of the process that was running when the
	// trap occurred (the syscall argument registers, or the user context
	// to restore regs[0] into).
	Regs *Regs

	// FaultAddr is set for TrapMemory.
	FaultAddr uintptr

	// TTYID is set for TrapTTYReceive / TrapTTYTransmit.
	TTYID int
}

// Handler services one trap.
type Handler func(info TrapInfo)

// Vector is the trap vector: one handler slot per TrapKind. Installing it
// is Component J's job (spec.md §4.9 Boot); servicing traps through it is
// Component I's job (spec.md §4.8).
//
// A real machine services one interrupt per CPU at a time; this simulated
// one has no such guarantee for free, since the clock and each TTY's input
// path raise traps from independent goroutines. lock reproduces that
// single-trap-at-a-time exclusion.
type Vector struct {
	handlers [numTrapKinds]Handler
	lock     sync.Spinlock
}

func newVector() *Vector {
	return &Vector{}
}

// Install registers the handler for kind, overwriting any previous one.
func (v *Vector) Install(kind TrapKind, h Handler) {
	v.handlers[kind] = h
}

// Raise invokes the handler installed for kind. It panics if the vector
// slot was never installed, since that indicates boot wired the machine up
// incompletely rather than a recoverable runtime condition. Concurrent
// Raise calls are serialized so that trap handlers never observe the
// kernel's process/scheduler state mid-mutation from another trap.
func (v *Vector) Raise(kind TrapKind, info TrapInfo) {
	h := v.handlers[kind]
	if h == nil {
		panic("machine: no handler installed for trap kind")
	}
	v.lock.Acquire()
	defer v.lock.Release()
	h(info)
}

package machine

// Regs is a snapshot of a process's user register file: the syscall
// argument/return registers plus the saved program counter and stack
// pointer. Shaped after the teacher's gate.Registers /
// irq.Regs (kernel/gate/gate_amd64.go, kernel/irq/interrupt_amd64.go),
// collapsed to the handful of general-purpose slots spec.md's calling
// convention actually needs (args in regs[0..n], return in regs[0]).
type Regs struct {
	// R holds syscall arguments in R[1:] and, after a syscall trap, the
	// return value in R[0] (spec.md §6 calling convention).
	R [8]uint64

	// PC and SP are the saved program counter and stack pointer.
	PC uintptr
	SP uintptr

	// Code is the trap's cause: the syscall number for TrapSyscall, or
	// the fault reason (MapErr/AccErr, spec.md §4.8) for TrapMemory.
	// Equivalent to the original hardware frame's user_ctx->code.
	Code uint64
}

// Memory-fault causes, carried in Regs.Code for a TrapMemory trap (spec.md
// §4.8): MapErr means the faulting page simply isn't mapped yet (candidate
// for stack growth or swap-in), AccErr means it is mapped but the access
// violated its protection bits (candidate for COW promotion or a kill).
const (
	MapErr uint64 = iota
	AccErr
)

// Arg returns syscall argument n (1-indexed, matching spec.md's regs[1..n]
// convention where regs[0] is reserved for the return value).
func (r *Regs) Arg(n int) uint64 { return r.R[n] }

// SetReturn stores a syscall's return value in regs[0].
func (r *Regs) SetReturn(v int64) { r.R[0] = uint64(v) }

// Return reads back the value stored by SetReturn.
func (r *Regs) Return() int64 { return int64(r.R[0]) }

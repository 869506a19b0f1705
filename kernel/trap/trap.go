// Package trap wires the syscall table (Component K) and the page-fault
// policy (spec.md §4.8, Component I) into the simulated machine's trap
// vector. It is grounded on original_source's kernel/interrupt.c, whose
// trap_kernel_handler switch and trap_memory_handler branches this
// package's Dispatcher.handleSyscall and handleMemory mirror.
package trap

import (
	"osim/kernel"
	"osim/kernel/loader"
	"osim/kernel/proc"
	"osim/kernel/syscall"
	"osim/machine"
)

// ExecLookup resolves a YALNIX_EXEC filename argument to a readable
// program image plus its header. It exists purely so this package never
// has to know how a filename is turned into bytes (spec.md §1 scopes the
// executable file format out of the kernel); boot supplies the real
// implementation.
type ExecLookup func(name string) (file ExecFile, hdr loader.Header, argv []string, err *kernel.Error)

// ExecFile is the minimal file-reading contract loader.Load needs.
type ExecFile interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Dispatcher installs handlers into a machine.Vector for every
// machine.TrapKind and owns the page-fault policy (spec.md §4.8).
type Dispatcher struct {
	k    *syscall.Kernel
	exec ExecLookup

	// jiffies is this dispatcher's clock tick counter, advanced only by
	// the clock-trap handler (spec.md §4.8 "trap_clock: jiffies++").
	jiffies uint64
}

// New builds a Dispatcher and installs every handler into m.Vector. m is
// expected to be the same machine k.Machine points at.
func New(k *syscall.Kernel, m *machine.Machine, exec ExecLookup) *Dispatcher {
	d := &Dispatcher{k: k, exec: exec}

	m.Vector.Install(machine.TrapSyscall, d.handleSyscall)
	m.Vector.Install(machine.TrapClock, d.handleClock)
	m.Vector.Install(machine.TrapIllegal, d.handleIllegal)
	m.Vector.Install(machine.TrapMath, d.handleMath)
	m.Vector.Install(machine.TrapDisk, d.handleDisk)
	m.Vector.Install(machine.TrapMemory, d.handleMemory)
	m.Vector.Install(machine.TrapTTYReceive, d.handleTTYReceive)
	m.Vector.Install(machine.TrapTTYTransmit, d.handleTTYTransmit)

	return d
}

func (d *Dispatcher) current() *proc.PCB { return d.k.Sched.Current }

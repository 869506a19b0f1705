// Package boot assembles a simulated machine and a fully wired kernel
// around it: the trap vector, the scheduler's idle and init processes, the
// swap engine's frame-starvation hook, and every TTY's completion
// callbacks (spec.md §4.9 "Boot", Component J). It is grounded on the
// teacher's top-level kmain.go entry sequence and original_source
// kernel/boot.c's KernelStart/init_kernel_page_table/
// initialize_processes_at_boot.
package boot

import (
	"osim/kernel"
	"osim/kernel/loader"
	"osim/kernel/mem/pmm"
	"osim/kernel/mem/swap"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/kernel/sched"
	"osim/kernel/syscall"
	"osim/kernel/timer"
	"osim/kernel/trap"
	"osim/machine"
)

// Config controls the shape of the machine and kernel a call to Boot
// produces (spec.md §3 "Global state" plus the machine parameters of §6).
type Config struct {
	Machine machine.Config

	// KernelStackBase and KernelStackPages locate the currently-running
	// task's kernel stack window inside region 0.
	KernelStackBase  int
	KernelStackPages int

	// TimeSlice is the round-robin quantum in jiffies (spec.md §4.6).
	TimeSlice uint64
}

func (c *Config) applyDefaults() {
	if c.KernelStackPages <= 0 {
		c.KernelStackPages = 2
	}
	if c.TimeSlice <= 0 {
		c.TimeSlice = 10
	}
}

// System is everything Boot wires together. cmd/osim drives the machine
// from these three values: feed host TTY input to Machine, advance
// Machine.Clock and raise TrapClock, and raise TrapSyscall whenever the
// running user program traps in.
type System struct {
	Machine *machine.Machine
	Kernel  *syscall.Kernel
	Trap    *trap.Dispatcher
}

// Boot builds a Machine from cfg, constructs the idle (pid 0) and init
// (pid 1) processes, loads the init program named initName (with argv
// initArgv) into init's address space via exec, and installs the trap
// vector — the Go analogue of KernelStart plus
// initialize_processes_at_boot and the trailing sys_load call.
func Boot(cfg Config, exec trap.ExecLookup, initName string, initArgv []string) (*System, *kernel.Error) {
	cfg.applyDefaults()

	m := machine.New(cfg.Machine)
	alloc := pmm.NewAllocator(m.TotalFrames())
	mm := vmm.New(m.RAM, alloc)

	kernelTable := vmm.NewTable(cfg.KernelStackBase+cfg.KernelStackPages, true)
	if err := mm.Map(kernelTable, cfg.KernelStackBase, cfg.KernelStackPages, vmm.ProtR|vmm.ProtW); err != nil {
		return nil, err
	}

	reg := proc.NewRegistry()

	idle := proc.New(0, m.RegionPages())
	idleStack, err := allocKernelStack(mm, cfg.KernelStackPages)
	if err != nil {
		return nil, err
	}
	idle.KernelStackFrames = idleStack
	reg.Insert(idle)

	s := sched.New(mm, kernelTable, cfg.KernelStackBase, cfg.KernelStackPages, cfg.TimeSlice, len(m.TTYs), idle)

	init := proc.New(1, m.RegionPages())
	initStack, err := allocKernelStack(mm, cfg.KernelStackPages)
	if err != nil {
		return nil, err
	}
	init.KernelStackFrames = initStack
	reg.Insert(init)

	timers := &timer.List{}
	swapEngine := swap.New(mm, m.Disk, reg)
	swapEngine.Current = func() *proc.PCB { return s.Current }
	alloc.SetSwapOut(swapEngine.SwapOut)

	k := &syscall.Kernel{
		MM:               mm,
		Sched:            s,
		Registry:         reg,
		Timers:           timers,
		Swap:             swapEngine,
		Machine:          m,
		RegionPages:      m.RegionPages(),
		KernelStackPages: cfg.KernelStackPages,
	}

	// A zombie's turn to be reaped is the one point where every utility
	// handle it still holds on exit (spec.md §4.4) must be released and
	// its pid freed for reuse — both proc- and ipc-shaped work, so this
	// callback is where syscall (the layer that knows both) plugs into
	// sched (which knows neither).
	s.OnZombieDestroyed = func(task *proc.PCB) {
		for slot, u := range task.Utilities {
			if u == nil {
				continue
			}
			syscall.Put(u)
			task.ClearHandle(slot)
		}
		reg.Remove(task.PID)
	}

	wireTTYs(m)

	d := trap.New(k, m, exec)

	file, hdr, lookupArgv, lerr := exec(initName)
	if lerr != nil {
		return nil, lerr
	}
	argv := initArgv
	if lookupArgv != nil {
		argv = lookupArgv
	}
	if err := loader.Load(mm, init, file, hdr, argv, m.RegionPages()); err != nil {
		return nil, err
	}

	s.EnqueueReady(idle)
	init.State = proc.StateRunning
	s.Current = init
	if err := mm.UpdateIndexes(kernelTable, cfg.KernelStackBase, cfg.KernelStackPages, init.KernelStackFrames); err != nil {
		return nil, err
	}

	return &System{Machine: m, Kernel: k, Trap: d}, nil
}

// wireTTYs connects each simulated TTY's completion callbacks to the
// matching trap, so a host-side Transmit/DeliverInput call ultimately
// reaches the scheduler through the same path a real TTY controller's IRQ
// would (spec.md §4.8 trap_tty_receive/trap_tty_transmit).
func wireTTYs(m *machine.Machine) {
	for _, tty := range m.TTYs {
		tty.OnTransmitComplete(func(id int) {
			m.Vector.Raise(machine.TrapTTYTransmit, machine.TrapInfo{TTYID: id})
		})
		tty.OnReceiveReady(func(id int) {
			m.Vector.Raise(machine.TrapTTYReceive, machine.TrapInfo{TTYID: id})
		})
	}
}

func allocKernelStack(mm *vmm.MM, pages int) ([]pmm.Frame, *kernel.Error) {
	frames := make([]pmm.Frame, pages)
	for i := range frames {
		f, err := mm.Alloc.Alloc()
		if err != nil {
			for _, done := range frames[:i] {
				mm.Alloc.Release(done)
			}
			return nil, err
		}
		frames[i] = f
	}
	return frames, nil
}

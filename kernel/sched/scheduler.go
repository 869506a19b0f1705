package sched

import (
	"osim/kernel"
	"osim/kernel/kfmt"
	"osim/kernel/mem/pmm"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/machine"
)

// Scheduler owns the ready queue, the per-TTY transmit/read wait queues,
// and the context-switch trampoline (spec.md §4.6). It is built once
// during boot and threaded through the trap dispatcher and every syscall
// that can suspend the current task.
type Scheduler struct {
	mm          *vmm.MM
	kernelTable *vmm.Table

	// KernelStackBase and KernelStackPages locate the currently-running
	// task's kernel stack window inside region 0 (spec.md §3
	// kernel_stack_max_size / page_size).
	KernelStackBase  int
	KernelStackPages int

	// TimeSlice is the round-robin quantum in jiffies.
	TimeSlice  uint64
	rrDeadline uint64

	Idle    *proc.PCB
	Current *proc.PCB

	Ready Queue

	// TTYRead and TTYWrite are one read/write wait queue per TTY (spec.md
	// §4.6 "Queues"); CurrentReader/CurrentWriter track which task the
	// trap dispatcher's TTY receive/transmit handlers should wake.
	TTYRead       []Queue
	TTYWrite      []Queue
	CurrentReader []*proc.PCB
	CurrentWriter []*proc.PCB

	// OnZombieDestroyed is invoked by the kernel-context-switch callback
	// once a zombie's turn to be reaped arrives (spec.md §4.6 step "If
	// cur.state == ZOMBIE, destroy cur"). It is a hook rather than a
	// direct call because releasing a zombie also means putting every
	// utility handle it still holds, which lives in the ipc package —
	// sched cannot import ipc without an import cycle (ipc's wait
	// queues are sched.Queue values).
	OnZombieDestroyed func(*proc.PCB)
}

// New builds a Scheduler. numTTYs sizes the per-TTY wait-queue slices.
func New(mm *vmm.MM, kernelTable *vmm.Table, kernelStackBase, kernelStackPages int, timeSlice uint64, numTTYs int, idle *proc.PCB) *Scheduler {
	s := &Scheduler{
		mm:               mm,
		kernelTable:      kernelTable,
		KernelStackBase:  kernelStackBase,
		KernelStackPages: kernelStackPages,
		TimeSlice:        timeSlice,
		rrDeadline:       timeSlice,
		Idle:             idle,
		Current:          idle,
		TTYRead:          make([]Queue, numTTYs),
		TTYWrite:         make([]Queue, numTTYs),
		CurrentReader:    make([]*proc.PCB, numTTYs),
		CurrentWriter:    make([]*proc.PCB, numTTYs),
	}
	return s
}

// EnqueueReady marks task READY and appends it to the ready queue.
func (s *Scheduler) EnqueueReady(task *proc.PCB) {
	task.State = proc.StateReady
	s.Ready.Enqueue(task)
}

// dequeueReady pops the ready queue's head, re-enqueuing and retrying if it
// picked the idle task while other work is still waiting (spec.md §4.6
// "Dequeue policy from ready").
func (s *Scheduler) dequeueReady() *proc.PCB {
	for {
		task := s.Ready.Dequeue()
		if task == nil {
			return nil
		}
		if task == s.Idle && !s.Ready.Empty() {
			s.Ready.Enqueue(task)
			continue
		}
		return task
	}
}

// Schedule yields the CPU (spec.md §4.6 "Context switch (schedule)").
// Preconditions: Current.State already holds its intended outgoing state
// (READY, PENDING or ZOMBIE) before this is called. userCtx is the
// trap frame the caller is about to return through; it is updated in place
// to reflect whichever task ends up running.
func (s *Scheduler) Schedule(userCtx *machine.Regs) *kernel.Error {
	current := s.Current

	spPage := int(userCtx.SP) / machine.PageSize
	if spPage > current.StackStart {
		if err := proc.ExpandStack(s.mm, current, current.StackStart-spPage); err != nil {
			return err
		}
	}

	next := s.dequeueReady()
	if next == nil {
		if current.State == proc.StateReady {
			current.State = proc.StateRunning
		}
		return nil
	}
	if current.State == proc.StateReady {
		s.Ready.Enqueue(current)
	}

	return s.contextSwitch(next, userCtx)
}

// contextSwitch performs the save-current/invoke-callback/restore-next
// sequence spec.md §4.6 describes, then installs next's region-1 table.
func (s *Scheduler) contextSwitch(next *proc.PCB, userCtx *machine.Regs) *kernel.Error {
	current := s.Current
	if current.State != proc.StateZombie {
		current.UserContext = *userCtx
	}

	if err := s.kernelContextSwitch(current, next); err != nil {
		return err
	}

	*userCtx = s.Current.UserContext
	if s.Current != s.Idle {
		s.mm.FlushRegion(s.Current.PageTable)
	}
	return nil
}

// kernelContextSwitch is the callback the hardware's kernel-context-switch
// primitive invokes with (cur, next) (spec.md §4.6
// "Kernel-context-switch callback"). Real hardware would also capture
// cur's callee-saved machine registers here; since this machine is
// simulated and nothing besides cloneKernelStack reads or writes
// KernelContext, cur.KernelContext is left untouched.
func (s *Scheduler) kernelContextSwitch(cur, next *proc.PCB) *kernel.Error {
	kfmt.Printf("sched: switch pid %d -> pid %d\n", cur.PID, next.PID)
	next.State = proc.StateRunning
	s.Current = next

	if len(next.KernelStackFrames) == 0 {
		if err := s.cloneKernelStack(cur, next); err != nil {
			return err
		}
	}

	if err := s.mm.UpdateIndexes(s.kernelTable, s.KernelStackBase, s.KernelStackPages, next.KernelStackFrames); err != nil {
		return err
	}

	if cur.State == proc.StateZombie {
		s.destroyZombie(cur)
	}
	return nil
}

// cloneKernelStack realizes the "first-time child fork" branch of spec.md
// §4.6: a freshly forked child has no kernel stack frames of its own yet,
// so its user and kernel context are copied from the outgoing task cur, its
// regs[0] is set to its ReturnValue (fork's 0 for the child), and a private
// copy of the kernel stack currently mapped in the region-0 window (cur's,
// which stays readable there even after an exiting cur released its frames)
// is allocated.
func (s *Scheduler) cloneKernelStack(cur, next *proc.PCB) *kernel.Error {
	next.UserContext = cur.UserContext
	next.UserContext.SetReturn(next.ReturnValue)
	next.KernelContext = cur.KernelContext

	frames := make([]pmm.Frame, s.KernelStackPages)
	for i := 0; i < s.KernelStackPages; i++ {
		f, err := s.mm.Alloc.Alloc()
		if err != nil {
			for _, done := range frames[:i] {
				s.mm.Alloc.Release(done)
			}
			return err
		}
		frames[i] = f
	}

	for i, f := range frames {
		copy(s.mm.RAM.Page(f), s.mm.RAM.Page(s.kernelTable.Entries[s.KernelStackBase+i].Frame()))
	}
	next.KernelStackFrames = frames
	return nil
}

func (s *Scheduler) destroyZombie(task *proc.PCB) {
	if s.OnZombieDestroyed != nil {
		s.OnZombieDestroyed(task)
	}
}

// Tick advances round-robin bookkeeping (spec.md §4.6 "Round-robin"); it is
// called by the clock trap handler after firing timers. It only flags the
// current task READY and returns whether Schedule must now be invoked —
// the trap dispatcher owns the actual call since it also owns userCtx.
func (s *Scheduler) Tick(jiffies uint64) (mustSchedule bool) {
	if jiffies < s.rrDeadline {
		return false
	}
	s.rrDeadline = jiffies + s.TimeSlice
	s.Current.State = proc.StateReady
	return true
}

package sched

import (
	"testing"

	"osim/kernel/mem/pmm"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/machine"
)

const (
	regionPages      = 32
	kernelStackBase  = 0
	kernelStackPages = 2
)

func newTestScheduler(t *testing.T) (*Scheduler, *proc.Registry) {
	t.Helper()
	m := machine.New(machine.Config{TotalFrames: 64, RegionPages: regionPages, NumTTYs: 2})
	mm := vmm.New(m.RAM, pmm.NewAllocator(64))
	kernelTable := vmm.NewTable(regionPages, true)
	// The kernel-stack window must already be mapped, as boot does, since
	// every context switch rewrites it with UpdateIndexes.
	if err := mm.Map(kernelTable, kernelStackBase, kernelStackPages, vmm.ProtR|vmm.ProtW); err != nil {
		t.Fatalf("map kernel stack window: %v", err)
	}

	reg := proc.NewRegistry()
	idle := proc.New(0, regionPages)
	idle.KernelStackFrames = allocKStack(t, mm, kernelStackPages)
	reg.Insert(idle)

	s := New(mm, kernelTable, kernelStackBase, kernelStackPages, 5, 2, idle)
	return s, reg
}

func allocKStack(t *testing.T, mm *vmm.MM, n int) []pmm.Frame {
	t.Helper()
	frames := make([]pmm.Frame, n)
	for i := range frames {
		f, err := mm.Alloc.Alloc()
		if err != nil {
			t.Fatalf("alloc kernel stack frame: %v", err)
		}
		frames[i] = f
	}
	return frames
}

func newReadyTask(t *testing.T, s *Scheduler, reg *proc.Registry, mm *vmm.MM) *proc.PCB {
	t.Helper()
	task := proc.New(reg.NextPID(), regionPages)
	task.StackStart = regionPages - 1
	task.StackPages = 1
	task.KernelStackFrames = allocKStack(t, mm, kernelStackPages)
	reg.Insert(task)
	s.EnqueueReady(task)
	return task
}

func TestDequeueReadySkipsIdleWhenWorkPending(t *testing.T) {
	s, reg := newTestScheduler(t)
	mm := s.mm

	s.Ready.Enqueue(s.Idle)
	task := newReadyTask(t, s, reg, mm)

	got := s.dequeueReady()
	if got != task {
		t.Fatalf("expected idle to be skipped in favor of pending work, got pid=%d", got.PID)
	}
	if s.Ready.Len() != 1 {
		t.Fatalf("expected idle re-enqueued, ready len=%d", s.Ready.Len())
	}
}

func TestDequeueReadyReturnsIdleWhenNothingElsePending(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Ready.Enqueue(s.Idle)

	got := s.dequeueReady()
	if got != s.Idle {
		t.Fatal("expected idle returned when it is the only ready task")
	}
}

func TestScheduleSwitchesToReadyTask(t *testing.T) {
	s, reg := newTestScheduler(t)
	mm := s.mm
	task := newReadyTask(t, s, reg, mm)
	task.UserContext.R[0] = 42

	var userCtx machine.Regs
	if err := s.Schedule(&userCtx); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if s.Current != task {
		t.Fatalf("expected scheduler to switch to pid=%d, got pid=%d", task.PID, s.Current.PID)
	}
	if userCtx.R[0] != 42 {
		t.Fatal("expected caller's user context restored from new current task")
	}
}

func TestScheduleReenqueuesReadyCurrent(t *testing.T) {
	s, reg := newTestScheduler(t)
	mm := s.mm
	current := newReadyTask(t, s, reg, mm)
	s.Ready.Dequeue()
	s.Current = current
	current.State = proc.StateReady

	other := newReadyTask(t, s, reg, mm)

	var userCtx machine.Regs
	if err := s.Schedule(&userCtx); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if s.Current != other {
		t.Fatal("expected switch to the other ready task")
	}
	if s.Ready.Len() != 1 {
		t.Fatal("expected outgoing READY task re-enqueued")
	}
}

func TestBlockAndWakeRoundTrip(t *testing.T) {
	s, reg := newTestScheduler(t)
	mm := s.mm
	waiter := newReadyTask(t, s, reg, mm)
	s.Ready.Dequeue()

	var q Queue
	s.Current = waiter

	// waiter blocks on q while another task is ready to run.
	other := newReadyTask(t, s, reg, mm)
	var userCtx machine.Regs
	if err := s.Block(&q, &userCtx); err != nil {
		t.Fatalf("block: %v", err)
	}
	if waiter.State != proc.StatePending {
		t.Fatal("expected blocked task left PENDING")
	}
	if s.Current != other {
		t.Fatal("expected scheduler switched away from the blocked task")
	}

	if !s.WakeOne(&q) {
		t.Fatal("expected WakeOne to find the blocked waiter")
	}
	if waiter.State != proc.StateReady {
		t.Fatal("expected woken task marked READY")
	}
}

func TestTickRequestsRescheduleAtDeadline(t *testing.T) {
	s, _ := newTestScheduler(t)
	if s.Tick(4) {
		t.Fatal("expected no reschedule before the deadline")
	}
	if !s.Tick(5) {
		t.Fatal("expected reschedule once jiffies reaches the deadline")
	}
	if s.Current.State != proc.StateReady {
		t.Fatal("expected current task marked READY at the tick boundary")
	}
}

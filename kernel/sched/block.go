package sched

import (
	"osim/kernel"
	"osim/kernel/proc"
	"osim/machine"
)

// Block marks the current task PENDING, enqueues it onto q, and yields
// (spec.md §5 "Suspension points"). It returns once some waker has set the
// task back to READY, enqueued it onto the ready queue, and the scheduler
// has picked it to run again.
func (s *Scheduler) Block(q *Queue, userCtx *machine.Regs) *kernel.Error {
	current := s.Current
	current.State = proc.StatePending
	q.Enqueue(current)
	return s.Schedule(userCtx)
}

// Wake transitions task from PENDING to READY and enqueues it (spec.md
// §4.6 "reawoken by a waker that sets state READY and enqueues to ready").
func (s *Scheduler) Wake(task *proc.PCB) {
	task.State = proc.StateReady
	s.Ready.Enqueue(task)
}

// WakeOne wakes the head of q, if any, and reports whether it woke someone
// (used by cvar signal and by the TTY reader/writer turn hand-offs, which
// only need one waiter running).
func (s *Scheduler) WakeOne(q *Queue) bool {
	task := q.Dequeue()
	if task == nil {
		return false
	}
	s.Wake(task)
	return true
}

// WakeAll empties q, waking every waiter (spec.md §4.7: pipe readers,
// pipe writers and lock_release all wake "en masse").
func (s *Scheduler) WakeAll(q *Queue) {
	for _, task := range q.DequeueAll() {
		s.Wake(task)
	}
}

// Unlink removes task from the ready queue and every per-TTY wait queue it
// might be sitting on, used by sys_exit to splice a zombie out of whatever
// wait list it occupied before it is scheduled away (spec.md §5
// "Cancellation and timeouts"). Utility wait queues (pipe/lock/cvar) live
// in the ipc package and are not searched here or anywhere else.
func (s *Scheduler) Unlink(task *proc.PCB) {
	s.Ready.Remove(task)
	for i := range s.TTYRead {
		s.TTYRead[i].Remove(task)
	}
	for i := range s.TTYWrite {
		s.TTYWrite[i].Remove(task)
	}
}

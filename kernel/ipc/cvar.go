package ipc

import (
	"osim/kernel"
	"osim/kernel/sched"
	"osim/machine"
)

// Cvar is a condition variable (spec.md §4.7 "Cvar"), grounded on
// original_source kernel/utility.c's cvar_do_wait/cvar_do_signal.
type Cvar struct {
	refcount

	waitQ sched.Queue
}

// NewCvar allocates an empty cvar with a single open reference.
func NewCvar() *Cvar {
	c := &Cvar{}
	c.n = 1
	return c
}

// Wait must be called with lock held. It releases lock (taking a
// reference for the duration of the wait so a concurrent Put on the
// caller's handle can't free it out from under the wait), blocks on the
// cvar's wait queue, and on wake re-acquires lock before returning
// (spec.md §4.7 "wait").
func (c *Cvar) Wait(s *sched.Scheduler, userCtx *machine.Regs, lock *Lock) *kernel.Error {
	Get(lock)
	defer Put(lock)

	if err := lock.Release(s); err != nil {
		return err
	}
	if err := s.Block(&c.waitQ, userCtx); err != nil {
		return err
	}
	return lock.Acquire(s, userCtx)
}

// Signal wakes the single oldest waiter, if any (spec.md §4.7 "signal:
// wake one waiter (FIFO)").
func (c *Cvar) Signal(s *sched.Scheduler) {
	s.WakeOne(&c.waitQ)
}

// Broadcast wakes every waiter (spec.md §4.7 "broadcast").
func (c *Cvar) Broadcast(s *sched.Scheduler) {
	s.WakeAll(&c.waitQ)
}

package ipc

import (
	"osim/kernel"
	"osim/kernel/sched"
	"osim/machine"
)

// Lock is a binary mutex (spec.md §4.7 "Lock. Binary."), grounded on
// original_source kernel/utility.c's lock_do_acquire/lock_do_release
// (a held flag stands in for the original's LOCK_LOCK/LOCK_UNLOCK counter)
// with the wait queue reused from the pipe's sched.Queue.
type Lock struct {
	refcount

	held  bool
	waitQ sched.Queue
}

// NewLock allocates an unheld lock with a single open reference.
func NewLock() *Lock {
	l := &Lock{}
	l.n = 1
	return l
}

// Acquire blocks while the lock is held, retrying on wake (Mesa semantics,
// spec.md §4.7), then takes it.
func (l *Lock) Acquire(s *sched.Scheduler, userCtx *machine.Regs) *kernel.Error {
	for l.held {
		if err := s.Block(&l.waitQ, userCtx); err != nil {
			return err
		}
	}
	l.held = true
	return nil
}

// Release requires the lock to be held; it frees it and wakes every
// waiter, leaving the scheduler's ready order to decide who acquires next
// (spec.md §4.7 "release... wake all waiters").
func (l *Lock) Release(s *sched.Scheduler) *kernel.Error {
	if !l.held {
		return errNotHeld
	}
	l.held = false
	s.WakeAll(&l.waitQ)
	return nil
}

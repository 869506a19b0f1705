// Package sync provides the synchronization primitive the kernel uses to
// serialize trap dispatch: the simulated machine can have TrapClock and
// TrapTTYReceive/TrapTTYTransmit raised from independent goroutines (in
// cmd/osim, the monitor's host-input reader runs on its own goroutine,
// while the clock loop runs only when the monitor does not), which is the
// cooperative single-CPU kernel's analogue of a real machine's per-CPU
// interrupts-disabled critical section.
package sync

import (
	"runtime"
	"sync/atomic"
)

func defaultYield() { runtime.Gosched() }

var (
	// yieldFn is swapped out in tests to avoid busy-waiting the test binary.
	yieldFn = defaultYield
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available. The original arch-specific busy-wait used
// a HLT-and-retry loop backed by an assembly primitive; there is no real CPU
// to halt here, so Acquire spins on a compare-and-swap and periodically
// yields the goroutine instead.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for attempts := uint32(0); !atomic.CompareAndSwapUint32(&l.state, 0, 1); attempts++ {
		if attempts > 0 && attempts%64 == 0 {
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

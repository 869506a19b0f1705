// Package sched implements the ready queue, the per-TTY and per-utility
// wait queues, and the callback-driven kernel-context-switch primitive
// (spec.md §4.6, Component F).
package sched

import "osim/kernel/proc"

// Queue is an intrusive FIFO of PCBs. spec.md §4.6 calls every queue in the
// system — ready, per-TTY read/write, per-utility wait — an "intrusive
// FIFO"; this slice-based queue is the non-intrusive stand-in the teacher's
// kernel/sync package has no equivalent of (gopher-os never needed
// multi-process wait queues), so it is written fresh against the ring-
// buffer/FIFO idiom kernel/kfmt/ringbuf.go uses for its byte queue.
type Queue struct {
	tasks []*proc.PCB
}

// Enqueue appends task to the tail of the queue.
func (q *Queue) Enqueue(task *proc.PCB) {
	q.tasks = append(q.tasks, task)
}

// Dequeue removes and returns the head of the queue, or nil if empty.
func (q *Queue) Dequeue() *proc.PCB {
	if len(q.tasks) == 0 {
		return nil
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task
}

// Empty reports whether the queue has no waiters.
func (q *Queue) Empty() bool {
	return len(q.tasks) == 0
}

// Len returns the number of waiters.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// DequeueAll empties the queue and returns every waiter in FIFO order, used
// by the "wake en masse" operations spec.md §4.7 specifies for pipes and
// lock release.
func (q *Queue) DequeueAll() []*proc.PCB {
	all := q.tasks
	q.tasks = nil
	return all
}

// Remove splices task out of the queue if present, used by sys_exit to
// unlink an exiting zombie from whatever wait list it was on (spec.md §5
// "Cancellation and timeouts").
func (q *Queue) Remove(task *proc.PCB) {
	for i, t := range q.tasks {
		if t == task {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return
		}
	}
}

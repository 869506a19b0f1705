// Package timer implements the single sorted wakeup list driving
// sys_delay (spec.md §4.6 "Timers", Component H), grounded on
// original_source kernel/timer.c.
package timer

import (
	"sort"

	"osim/kernel/proc"
)

// entry pairs an absolute wakeup tick with the task sleeping until it.
type entry struct {
	deadline uint64
	task     *proc.PCB
}

// List is a single list of pending timers kept sorted by ascending
// deadline (spec.md §3 "Timer. {timeout_tick, pcb}, kept on a single list
// sorted by timeout_tick ascending").
type List struct {
	entries []entry
}

// Add inserts a new timer for task, due at deadline, maintaining sort
// order (original_source's add_timer walks the list looking for the first
// entry with a later timeout; inserting via sort.Search does the same in
// O(log n) comparisons, O(n) shift).
func (l *List) Add(deadline uint64, task *proc.PCB) {
	i := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].deadline > deadline
	})
	l.entries = append(l.entries, entry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = entry{deadline: deadline, task: task}
}

// Fire pops every timer whose deadline has passed (deadline <= now) and
// returns their tasks in ascending-deadline order, for the caller to wake
// (spec.md §4.8 clock handler: "fire timers"; spec.md §5 "Timers fire in
// sorted ascending order each clock tick").
func (l *List) Fire(now uint64) []*proc.PCB {
	i := 0
	for i < len(l.entries) && l.entries[i].deadline <= now {
		i++
	}
	if i == 0 {
		return nil
	}
	due := make([]*proc.PCB, i)
	for j := 0; j < i; j++ {
		due[j] = l.entries[j].task
	}
	l.entries = l.entries[i:]
	return due
}

// Remove deletes every pending timer belonging to task, used by sys_exit
// to cancel an in-flight sys_delay when a process exits early (spec.md §5
// "Cancellation and timeouts").
func (l *List) Remove(task *proc.PCB) {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.task != task {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

// Len reports the number of pending timers.
func (l *List) Len() int { return len(l.entries) }

package trap

import "osim/machine"

// handleClock is TrapClock's handler (spec.md §4.8, original_source
// trap_clock_handler): advance jiffies, fire any timers whose deadline has
// passed, waking their owners, then run the round-robin check and
// reschedule if the current quantum expired.
func (d *Dispatcher) handleClock(info machine.TrapInfo) {
	d.jiffies++

	for _, task := range d.k.Timers.Fire(d.jiffies) {
		d.k.Sched.Wake(task)
	}

	if d.k.Sched.Tick(d.jiffies) {
		d.k.Sched.Schedule(info.Regs)
	}
}

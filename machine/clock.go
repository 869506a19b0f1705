package machine

// Clock models the hardware clock that drives jiffies and round-robin
// preemption (spec.md §3 "Global state", §4.6 "Round-robin").
type Clock struct {
	jiffies uint64
}

func newClock() *Clock {
	return &Clock{}
}

// Jiffies returns the current tick count.
func (c *Clock) Jiffies() uint64 {
	return c.jiffies
}

// Tick advances the clock by one and returns the new jiffies value. It is
// called by cmd/osim's clock loop before it raises TrapClock; the trap
// dispatcher's clock handler keeps its own jiffies count.
func (c *Clock) Tick() uint64 {
	c.jiffies++
	return c.jiffies
}

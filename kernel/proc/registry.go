package proc

import "sort"

// Registry is the global PCB hash (pid -> PCB) plus the monotonic pid
// counter (spec.md §3 "Global state").
type Registry struct {
	byPID  map[uint64]*PCB
	nextPID uint64
}

// NewRegistry creates an empty registry. pid 0 is reserved for idle and pid
// 1 for init, per spec.md §3; callers insert those explicitly via Insert
// after constructing them, and the counter starts handing out pids at 2.
func NewRegistry() *Registry {
	return &Registry{byPID: make(map[uint64]*PCB), nextPID: 2}
}

// Insert adds a PCB to the registry.
func (r *Registry) Insert(p *PCB) {
	r.byPID[p.PID] = p
}

// Remove deletes a PCB from the registry (called once a zombie is
// destroyed).
func (r *Registry) Remove(pid uint64) {
	delete(r.byPID, pid)
}

// Lookup returns the PCB for pid, or nil.
func (r *Registry) Lookup(pid uint64) *PCB {
	return r.byPID[pid]
}

// NextPID allocates and returns the next process id.
func (r *Registry) NextPID() uint64 {
	pid := r.nextPID
	r.nextPID++
	return pid
}

// All returns every registered PCB. The iteration order is unspecified,
// matching the hash-table backed original (spec.md §4.3 victim selection
// just needs "the global PCB hash", not any particular order).
func (r *Registry) All() []*PCB {
	all := make([]*PCB, 0, len(r.byPID))
	for _, p := range r.byPID {
		all = append(all, p)
	}
	return all
}

// AllSortedByPID returns every registered PCB ordered by ascending pid,
// giving the swap engine's victim scan (spec.md §4.3) a deterministic,
// testable order.
func (r *Registry) AllSortedByPID() []*PCB {
	all := r.All()
	sort.Slice(all, func(i, j int) bool { return all[i].PID < all[j].PID })
	return all
}

package proc

// PeerGroup is the explicit, reference-counted shared-ownership group
// spec.md §9 asks for in place of the original's circular COW peer list: a
// frame is freeable only once no peer in the group still references it.
// Membership is generation-based (fork creates a fresh group or joins an
// existing one) rather than a doubly-linked list, which is the
// "arena-indexed set per generation" alternative spec.md §9 names.
type PeerGroup struct {
	members map[*PCB]struct{}
}

// NewPeerGroup creates a group containing exactly parent and child.
func NewPeerGroup(parent, child *PCB) *PeerGroup {
	g := &PeerGroup{members: map[*PCB]struct{}{parent: {}, child: {}}}
	parent.COWPeers = g
	child.COWPeers = g
	return g
}

// Join adds child to parent's existing peer group (or creates one if
// parent has none yet), used by fork_share, which only shares text/data/heap.
func Join(parent, child *PCB) {
	if parent.COWPeers == nil {
		NewPeerGroup(parent, child)
		return
	}
	parent.COWPeers.members[child] = struct{}{}
	child.COWPeers = parent.COWPeers
}

// Leave removes task from its peer group. It reports whether task was the
// last remaining member, in which case any frame it still privately shares
// is now uniquely owned by it.
func (g *PeerGroup) Leave(task *PCB) (wasLast bool) {
	delete(g.members, task)
	return len(g.members) == 0
}

// Others returns every member of the group other than task, the set
// task_cow_copy_page walks (task->cow_list) when privatizing a shared page
// on a write fault.
func (g *PeerGroup) Others(task *PCB) []*PCB {
	others := make([]*PCB, 0, len(g.members)-1)
	for p := range g.members {
		if p != task {
			others = append(others, p)
		}
	}
	return others
}

// SoleSurvivor reports whether task is the only member left in its peer
// group (spec.md §4.4 address_space_free: "clear cow ... if this task is
// the only remaining COW peer").
func (g *PeerGroup) SoleSurvivor(task *PCB) bool {
	if len(g.members) != 1 {
		return false
	}
	_, ok := g.members[task]
	return ok
}

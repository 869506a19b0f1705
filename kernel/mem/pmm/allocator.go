package pmm

import "osim/kernel"

var (
	errOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of physical memory"}
)

// SwapOutFn is called by Allocator.Alloc when the free list is exhausted. It
// must free at least one frame (by evicting some process's page to disk) and
// is supplied by the swap engine during boot via SetSwapOut.
type SwapOutFn func() *kernel.Error

// Allocator is a LIFO free list of physical frames. spec.md §4.1 permits an
// arbitrary allocation policy with no coalescing; LIFO keeps Release O(1).
type Allocator struct {
	free    []Frame
	swapOut SwapOutFn
}

// NewAllocator creates an allocator whose free list initially holds frames
// [0, total).
func NewAllocator(total int) *Allocator {
	free := make([]Frame, total)
	for i := range free {
		free[i] = Frame(i)
	}
	return &Allocator{free: free}
}

// SetSwapOut registers the function the allocator delegates to when it runs
// out of frames. It is set once, after the swap engine has been constructed,
// breaking the natural initialization cycle between pmm and swap.
func (a *Allocator) SetSwapOut(fn SwapOutFn) {
	a.swapOut = fn
}

// Alloc reserves a physical frame. If the free list is empty it delegates to
// the registered swap-out function and retries exactly once, per spec.md
// §4.1.
func (a *Allocator) Alloc() (Frame, *kernel.Error) {
	if f, ok := a.popFree(); ok {
		return f, nil
	}

	if a.swapOut == nil {
		return InvalidFrame, errOutOfMemory
	}
	if err := a.swapOut(); err != nil {
		return InvalidFrame, errOutOfMemory
	}

	if f, ok := a.popFree(); ok {
		return f, nil
	}
	return InvalidFrame, errOutOfMemory
}

func (a *Allocator) popFree() (Frame, bool) {
	if len(a.free) == 0 {
		return InvalidFrame, false
	}
	last := len(a.free) - 1
	f := a.free[last]
	a.free = a.free[:last]
	return f, true
}

// Release returns a frame to the free list. It is the caller's
// responsibility to have already torn down any page-table entry that
// referenced it (spec.md §4.1); releasing a frame still referenced by a PTE
// would violate the frame-conservation invariant (spec.md §8.1).
func (a *Allocator) Release(f Frame) {
	a.free = append(a.free, f)
}

// BulkRelease releases every frame in indices.
func (a *Allocator) BulkRelease(indices []Frame) {
	a.free = append(a.free, indices...)
}

// Free returns the number of frames currently on the free list.
func (a *Allocator) Free() int {
	return len(a.free)
}

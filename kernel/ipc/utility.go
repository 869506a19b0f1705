// Package ipc implements the three refcounted synchronization/IPC
// utilities processes can open handles to — pipes, locks and condition
// variables (spec.md §4.7, Component G). Every utility shares the same
// refcount-on-handle-table ownership discipline: Get bumps the count on
// fork's handle copy, Put drops it on sys_reclaim.
package ipc

import "osim/kernel"

var (
	errInvalidHandle = &kernel.Error{Module: "ipc", Message: "invalid or wrong-typed utility handle"}
	errNotHeld       = &kernel.Error{Module: "ipc", Message: "lock is not held"}
	errZeroLength    = &kernel.Error{Module: "ipc", Message: "zero-length or invalid buffer"}
)

// Utility is the common interface every pipe/lock/cvar handle satisfies,
// letting proc's untyped `Utilities [128]interface{}` table be put back
// without the syscall layer needing type-specific teardown logic (spec.md
// §4.7 "All three utility types share refcount ownership").
type Utility interface {
	get()
	// put drops a reference and reports whether it reached zero.
	put() bool
}

type refcount struct {
	n int
}

func (r *refcount) get()     { r.n++ }
func (r *refcount) put() bool {
	r.n--
	return r.n <= 0
}

// Get increments u's refcount (called when a handle is duplicated into a
// child's table on fork).
func Get(u Utility) {
	if u != nil {
		u.get()
	}
}

// Put decrements u's refcount, per sys_reclaim(slot) (spec.md §4.7): "puts
// the reference and clears the slot". The caller clears the PCB's slot;
// Put does no explicit teardown when the count reaches zero, the payload
// is simply left for the garbage collector once no slot references it.
func Put(u Utility) {
	if u != nil {
		u.put()
	}
}

package syscall

import (
	"io"

	"osim/kernel"
	"osim/kernel/loader"
	"osim/kernel/mem/vmm"
	"osim/kernel/proc"
	"osim/machine"
)

// Fork implements YALNIX_FORK (spec.md §6, original_source kernel/process.c
// sys_fork): spawn a child PCB, copy the address space plain (no COW), and
// hand both the parent and the child their own return value — the parent
// gets the child's pid, the child gets 0, exactly like the host fork(2)
// this was modeled after.
func (k *Kernel) Fork(current *proc.PCB, userCtx *machine.Regs) (int64, *kernel.Error) {
	child := proc.SpawnChild(k.Registry, current)
	if err := proc.VMCopyPlain(k.MM, current, child); err != nil {
		k.Registry.Remove(child.PID)
		current.RemoveChild(child)
		return 0, err
	}
	child.CopyHandles(current)
	for _, slot := range child.Utilities {
		Get(slot)
	}
	child.ReturnValue = 0
	k.Sched.EnqueueReady(child)
	return int64(child.PID), nil
}

// ForkShare implements YALNIX_CUSTOM_0 / sys_fork_share (spec.md §6, §9):
// the same as Fork except text/data/heap are COW-shared and the stack is
// physically copied, using VMShareCopy's explicit reference-counted peer
// group instead of the original's circular peer list.
func (k *Kernel) ForkShare(current *proc.PCB, userCtx *machine.Regs) (int64, *kernel.Error) {
	child := proc.SpawnChild(k.Registry, current)
	if err := proc.VMShareCopy(k.MM, current, child); err != nil {
		k.Registry.Remove(child.PID)
		current.RemoveChild(child)
		return 0, err
	}
	child.CopyHandles(current)
	for _, slot := range child.Utilities {
		Get(slot)
	}
	child.ReturnValue = 0
	k.Sched.EnqueueReady(child)
	return int64(child.PID), nil
}

// ForkCOW is the copy-on-write fork variant spec.md §4.4 also describes
// (address space privately COW-shared, not shared with the peer group
// indefinitely the way ForkShare is). No syscall number in the trap
// dispatcher routes to it: YALNIX_FORK calls Fork and YALNIX_CUSTOM_0 calls
// ForkShare.
func (k *Kernel) ForkCOW(current *proc.PCB, userCtx *machine.Regs) (int64, *kernel.Error) {
	child := proc.SpawnChild(k.Registry, current)
	if err := proc.VMCopyCOW(k.MM, current, child); err != nil {
		k.Registry.Remove(child.PID)
		current.RemoveChild(child)
		return 0, err
	}
	child.CopyHandles(current)
	for _, slot := range child.Utilities {
		Get(slot)
	}
	child.ReturnValue = 0
	k.Sched.EnqueueReady(child)
	return int64(child.PID), nil
}

// Exec implements YALNIX_EXEC: tears down current's address space and
// installs a new program image in its place (spec.md §4.5). Resolving the
// file name argument to an io.ReaderAt and a loader.Header is the
// host-side program loader's job, out of this kernel's scope (spec.md
// §1) — the trap dispatcher does that lookup and passes the results in.
func (k *Kernel) Exec(current *proc.PCB, userCtx *machine.Regs, file io.ReaderAt, hdr loader.Header, argv []string) (int64, *kernel.Error) {
	if err := loader.Load(k.MM, current, file, hdr, argv, k.RegionPages); err != nil {
		return ErrGeneral, err
	}
	*userCtx = current.UserContext
	return OK, nil
}

// Exit implements YALNIX_EXIT (spec.md §4.4 "process exit", original_source
// kernel/process.c's sys_exit). current becomes a zombie and is pushed onto
// its parent's zombie FIFO (or, if orphaned, simply forgotten — init is not
// responsible for reaping in this design since spec.md names no explicit
// init-reparenting requirement beyond what WaitChildren already handles for
// a blocked waiter). Every child is orphaned to nobody's supervision.
func (k *Kernel) Exit(current *proc.PCB, userCtx *machine.Regs, status int64) *kernel.Error {
	current.ExitCode = int(status)

	for _, child := range append([]*proc.PCB(nil), current.Children...) {
		child.Parent = nil
	}
	current.Children = nil

	for slot, u := range current.Utilities {
		if u == nil {
			continue
		}
		Put(u)
		current.ClearHandle(slot)
	}

	if err := proc.AddressSpaceFree(k.MM, current); err != nil {
		return err
	}

	k.Timers.Remove(current)
	k.Sched.Unlink(current)

	current.State = proc.StateZombie
	if parent := current.Parent; parent != nil {
		parent.RemoveChild(current)
		parent.PushZombie(proc.Zombie{PID: current.PID, ExitCode: current.ExitCode})
		if parent.State == proc.StatePending && parent.WaitChildren {
			parent.WaitChildren = false
			k.Sched.Wake(parent)
		}
	}

	return k.Sched.Schedule(userCtx)
}

// Wait implements YALNIX_WAIT: block until a zombie child is available,
// then reap the oldest one and report its pid/status (spec.md §4.4 "wait").
func (k *Kernel) Wait(current *proc.PCB, userCtx *machine.Regs) (pid int64, status int64, kerr *kernel.Error) {
	for {
		if z, ok := current.PopZombie(); ok {
			return int64(z.PID), int64(z.ExitCode), nil
		}
		if len(current.Children) == 0 {
			return 0, 0, errNoChildren
		}
		current.WaitChildren = true
		current.State = proc.StatePending
		if err := k.Sched.Schedule(userCtx); err != nil {
			return 0, 0, err
		}
	}
}

// Getpid implements YALNIX_GETPID.
func (k *Kernel) Getpid(current *proc.PCB) int64 {
	return int64(current.PID)
}

// Brk implements YALNIX_BRK: grow or shrink the heap to end at newBrk pages,
// refusing to collide with the stack (spec.md §4.4 "brk").
func (k *Kernel) Brk(current *proc.PCB, newBrkPage int) *kernel.Error {
	if newBrkPage < current.DataStart || newBrkPage >= current.StackStart {
		return errBrkRange
	}
	delta := newBrkPage - current.Brk
	if delta == 0 {
		return nil
	}
	if delta > 0 {
		if err := k.MM.Map(current.PageTable, current.Brk, delta, vmm.ProtR|vmm.ProtW); err != nil {
			return err
		}
	} else {
		if err := k.MM.Unmap(current.PageTable, newBrkPage, -delta); err != nil {
			return err
		}
	}
	current.Brk = newBrkPage
	return nil
}

// Delay implements YALNIX_DELAY: block current for the given number of
// clock ticks (spec.md §4.4 "delay", original_source kernel/timer.c).
func (k *Kernel) Delay(current *proc.PCB, userCtx *machine.Regs, ticks uint64, jiffies uint64) *kernel.Error {
	if ticks == 0 {
		return nil
	}
	current.State = proc.StatePending
	k.Timers.Add(jiffies+ticks, current)
	return k.Sched.Schedule(userCtx)
}

var (
	errNoChildren = &kernel.Error{Module: "syscall", Message: "no children to wait for"}
	errBrkRange   = &kernel.Error{Module: "syscall", Message: "brk would collide with data segment or stack"}
)

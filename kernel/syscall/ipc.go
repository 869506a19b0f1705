package syscall

import (
	"osim/kernel"
	"osim/kernel/ipc"
	"osim/kernel/proc"
	"osim/machine"
)

var (
	errBadHandle = &kernel.Error{Module: "syscall", Message: "utility handle does not refer to the expected type"}
)

// PipeInit implements YALNIX_PIPE_INIT: allocate a handle slot and a fresh
// pipe (spec.md §4.7/§6).
func (k *Kernel) PipeInit(current *proc.PCB) (int64, *kernel.Error) {
	slot, err := current.NewUtilitySlot()
	if err != nil {
		return 0, err
	}
	current.SetHandle(slot, ipc.NewPipe())
	return int64(slot), nil
}

func (k *Kernel) pipeAt(current *proc.PCB, slot int) (*ipc.Pipe, *kernel.Error) {
	p, ok := current.Handle(slot).(*ipc.Pipe)
	if !ok {
		return nil, errBadHandle
	}
	return p, nil
}

// PipeRead implements YALNIX_PIPE_READ.
func (k *Kernel) PipeRead(current *proc.PCB, userCtx *machine.Regs, slot int, buf []byte) (int64, *kernel.Error) {
	p, err := k.pipeAt(current, slot)
	if err != nil {
		return 0, err
	}
	n, rerr := p.Read(k.Sched, userCtx, buf)
	return int64(n), rerr
}

// PipeWrite implements YALNIX_PIPE_WRITE.
func (k *Kernel) PipeWrite(current *proc.PCB, userCtx *machine.Regs, slot int, buf []byte) (int64, *kernel.Error) {
	p, err := k.pipeAt(current, slot)
	if err != nil {
		return 0, err
	}
	n, werr := p.Write(k.Sched, userCtx, buf)
	return int64(n), werr
}

// LockInit implements YALNIX_LOCK_INIT.
func (k *Kernel) LockInit(current *proc.PCB) (int64, *kernel.Error) {
	slot, err := current.NewUtilitySlot()
	if err != nil {
		return 0, err
	}
	current.SetHandle(slot, ipc.NewLock())
	return int64(slot), nil
}

func (k *Kernel) lockAt(current *proc.PCB, slot int) (*ipc.Lock, *kernel.Error) {
	l, ok := current.Handle(slot).(*ipc.Lock)
	if !ok {
		return nil, errBadHandle
	}
	return l, nil
}

// LockAcquire implements YALNIX_LOCK_ACQUIRE.
func (k *Kernel) LockAcquire(current *proc.PCB, userCtx *machine.Regs, slot int) *kernel.Error {
	l, err := k.lockAt(current, slot)
	if err != nil {
		return err
	}
	return l.Acquire(k.Sched, userCtx)
}

// LockRelease implements YALNIX_LOCK_RELEASE.
func (k *Kernel) LockRelease(current *proc.PCB, slot int) *kernel.Error {
	l, err := k.lockAt(current, slot)
	if err != nil {
		return err
	}
	return l.Release(k.Sched)
}

// CvarInit implements YALNIX_CVAR_INIT.
func (k *Kernel) CvarInit(current *proc.PCB) (int64, *kernel.Error) {
	slot, err := current.NewUtilitySlot()
	if err != nil {
		return 0, err
	}
	current.SetHandle(slot, ipc.NewCvar())
	return int64(slot), nil
}

func (k *Kernel) cvarAt(current *proc.PCB, slot int) (*ipc.Cvar, *kernel.Error) {
	c, ok := current.Handle(slot).(*ipc.Cvar)
	if !ok {
		return nil, errBadHandle
	}
	return c, nil
}

// CvarWait implements YALNIX_CVAR_WAIT.
func (k *Kernel) CvarWait(current *proc.PCB, userCtx *machine.Regs, cvarSlot, lockSlot int) *kernel.Error {
	c, err := k.cvarAt(current, cvarSlot)
	if err != nil {
		return err
	}
	l, err := k.lockAt(current, lockSlot)
	if err != nil {
		return err
	}
	return c.Wait(k.Sched, userCtx, l)
}

// CvarSignal implements YALNIX_CVAR_SIGNAL.
func (k *Kernel) CvarSignal(current *proc.PCB, slot int) *kernel.Error {
	c, err := k.cvarAt(current, slot)
	if err != nil {
		return err
	}
	c.Signal(k.Sched)
	return nil
}

// CvarBroadcast implements YALNIX_CVAR_BROADCAST.
func (k *Kernel) CvarBroadcast(current *proc.PCB, slot int) *kernel.Error {
	c, err := k.cvarAt(current, slot)
	if err != nil {
		return err
	}
	c.Broadcast(k.Sched)
	return nil
}

// Reclaim implements YALNIX_RECLAIM (spec.md §4.7 "reclaim: puts the
// reference and clears the slot"): drop current's reference to the handle
// in slot, freeing the underlying utility once nobody else references it.
func (k *Kernel) Reclaim(current *proc.PCB, slot int) *kernel.Error {
	u := current.Handle(slot)
	if u == nil {
		return errBadHandle
	}
	Put(u)
	current.ClearHandle(slot)
	return nil
}

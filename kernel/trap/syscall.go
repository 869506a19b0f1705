package trap

import (
	"osim/kernel"
	"osim/kernel/proc"
	"osim/kernel/syscall"
	"osim/machine"
)

// handleSyscall is TrapSyscall's handler: dispatch by the number carried in
// Regs.Code to the matching syscall.Kernel method, validate any pointer
// arguments against region 1 (spec.md §6), and store the result in
// regs[0] — mirroring original_source's trap_kernel_handler switch +
// SET_RET macro.
func (d *Dispatcher) handleSyscall(info machine.TrapInfo) {
	current := d.current()
	userCtx := info.Regs
	num := syscall.Number(userCtx.Code)
	k := d.k

	switch num {
	case syscall.Fork:
		pid, err := k.Fork(current, userCtx)
		d.setReturn(userCtx, pid, err)

	case syscall.Custom0:
		pid, err := k.ForkShare(current, userCtx)
		d.setReturn(userCtx, pid, err)

	case syscall.Exec:
		d.handleExec(current, userCtx)

	case syscall.Exit:
		status := int64(userCtx.Arg(1))
		if err := k.Exit(current, userCtx, status); err != nil {
			userCtx.SetReturn(syscall.ErrGeneral)
		}

	case syscall.Wait:
		pid, status, err := k.Wait(current, userCtx)
		if err != nil {
			userCtx.SetReturn(syscall.ErrGeneral)
			return
		}
		userCtx.R[1] = uint64(status)
		userCtx.SetReturn(pid)

	case syscall.Getpid:
		userCtx.SetReturn(k.Getpid(current))

	case syscall.Brk:
		err := k.Brk(current, int(userCtx.Arg(1)))
		d.setReturn(userCtx, syscall.OK, err)

	case syscall.Delay:
		err := k.Delay(current, userCtx, userCtx.Arg(1), d.jiffies)
		d.setReturn(userCtx, syscall.OK, err)

	case syscall.TTYRead:
		d.handleTTYReadSyscall(current, userCtx)

	case syscall.TTYWrite:
		d.handleTTYWriteSyscall(current, userCtx)

	case syscall.PipeInit:
		slot, err := k.PipeInit(current)
		d.setReturn(userCtx, slot, err)

	case syscall.PipeRead:
		d.handlePipeReadWrite(current, userCtx, true)

	case syscall.PipeWrite:
		d.handlePipeReadWrite(current, userCtx, false)

	case syscall.LockInit:
		slot, err := k.LockInit(current)
		d.setReturn(userCtx, slot, err)

	case syscall.LockAcquire:
		err := k.LockAcquire(current, userCtx, int(userCtx.Arg(1)))
		d.setReturn(userCtx, syscall.OK, err)

	case syscall.LockRelease:
		err := k.LockRelease(current, int(userCtx.Arg(1)))
		d.setReturn(userCtx, syscall.OK, err)

	case syscall.CvarInit:
		slot, err := k.CvarInit(current)
		d.setReturn(userCtx, slot, err)

	case syscall.CvarWait:
		err := k.CvarWait(current, userCtx, int(userCtx.Arg(1)), int(userCtx.Arg(2)))
		d.setReturn(userCtx, syscall.OK, err)

	case syscall.CvarSignal:
		err := k.CvarSignal(current, int(userCtx.Arg(1)))
		d.setReturn(userCtx, syscall.OK, err)

	case syscall.CvarBroadcast:
		err := k.CvarBroadcast(current, int(userCtx.Arg(1)))
		d.setReturn(userCtx, syscall.OK, err)

	case syscall.Reclaim:
		err := k.Reclaim(current, int(userCtx.Arg(1)))
		d.setReturn(userCtx, syscall.OK, err)

	default:
		d.killIllegal(current, userCtx)
	}
}

func (d *Dispatcher) setReturn(userCtx *machine.Regs, v int64, err *kernel.Error) {
	if err != nil {
		userCtx.SetReturn(syscall.ErrGeneral)
		return
	}
	userCtx.SetReturn(v)
}

// handleExec decodes YALNIX_EXEC's arguments — a (pointer, length) for the
// program name and for a NUL-delimited argv blob plus an argument count —
// resolves the name via the dispatcher's ExecLookup, and installs the new
// image (spec.md §4.5).
func (d *Dispatcher) handleExec(current *proc.PCB, userCtx *machine.Regs) {
	nameAddr, nameLen := userCtx.Arg(1), int(userCtx.Arg(2))
	argvAddr, argvLen, argc := userCtx.Arg(3), int(userCtx.Arg(4)), int(userCtx.Arg(5))

	regionPages := d.k.RegionPages
	if err := checkUserPointer(current, regionPages, nameAddr, nameLen); err != nil {
		d.killCurrent(current, userCtx, syscall.ErrGeneral)
		return
	}
	if argc > 0 {
		if err := checkUserPointer(current, regionPages, argvAddr, argvLen); err != nil {
			d.killCurrent(current, userCtx, syscall.ErrGeneral)
			return
		}
	}

	name := readUserString(d.k.MM, current, nameAddr, nameLen)
	argv := splitNULDelimited(readUserBytes(d.k.MM, current, argvAddr, argvLen), argc)

	file, hdr, loaderArgv, lerr := d.exec(name)
	if lerr != nil {
		userCtx.SetReturn(syscall.ErrGeneral)
		return
	}
	if loaderArgv != nil {
		argv = loaderArgv
	}

	if _, err := d.k.Exec(current, userCtx, file, hdr, argv); err != nil {
		userCtx.SetReturn(syscall.ErrGeneral)
	}
}

// splitNULDelimited splits a run of NUL-terminated strings into at most n
// entries.
func splitNULDelimited(buf []byte, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	start := 0
	for i, b := range buf {
		if b == 0 {
			out = append(out, string(buf[start:i]))
			start = i + 1
			if len(out) == n {
				break
			}
		}
	}
	return out
}

func (d *Dispatcher) handleTTYReadSyscall(current *proc.PCB, userCtx *machine.Regs) {
	ttyID := int(userCtx.Arg(1))
	addr, length := userCtx.Arg(2), int(userCtx.Arg(3))
	if err := checkUserPointer(current, d.k.RegionPages, addr, length); err != nil {
		d.killCurrent(current, userCtx, syscall.ErrGeneral)
		return
	}

	n, err := d.k.TTYRead(current, userCtx, ttyID, length)
	if err != nil {
		userCtx.SetReturn(syscall.ErrGeneral)
		return
	}
	writeUserBytes(d.k.MM, current, addr, current.TTYBuf)
	userCtx.SetReturn(n)
}

func (d *Dispatcher) handleTTYWriteSyscall(current *proc.PCB, userCtx *machine.Regs) {
	ttyID := int(userCtx.Arg(1))
	addr, length := userCtx.Arg(2), int(userCtx.Arg(3))
	if err := checkUserPointer(current, d.k.RegionPages, addr, length); err != nil {
		d.killCurrent(current, userCtx, syscall.ErrGeneral)
		return
	}

	buf := readUserBytes(d.k.MM, current, addr, length)
	n, err := d.k.TTYWrite(current, userCtx, ttyID, buf)
	d.setReturn(userCtx, n, err)
}

func (d *Dispatcher) handlePipeReadWrite(current *proc.PCB, userCtx *machine.Regs, isRead bool) {
	slot := int(userCtx.Arg(1))
	addr, length := userCtx.Arg(2), int(userCtx.Arg(3))
	if err := checkUserPointer(current, d.k.RegionPages, addr, length); err != nil {
		d.killCurrent(current, userCtx, syscall.ErrGeneral)
		return
	}

	if isRead {
		buf := make([]byte, length)
		n, err := d.k.PipeRead(current, userCtx, slot, buf)
		if err != nil {
			userCtx.SetReturn(syscall.ErrGeneral)
			return
		}
		writeUserBytes(d.k.MM, current, addr, buf[:n])
		userCtx.SetReturn(n)
		return
	}

	buf := readUserBytes(d.k.MM, current, addr, length)
	n, err := d.k.PipeWrite(current, userCtx, slot, buf)
	d.setReturn(userCtx, n, err)
}

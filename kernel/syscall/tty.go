package syscall

import (
	"osim/kernel"
	"osim/kernel/proc"
	"osim/machine"
)

var (
	errBadTTY = &kernel.Error{Module: "syscall", Message: "invalid tty id"}
)

// TTYRead implements YALNIX_TTY_READ (spec.md §4.8/§6, original_source
// kernel/process.c's sys_tty_read / tty_read_request): block current on
// the tty's read queue as its turn as reader, hand the request off to
// the device, and block again until TrapTTYReceive's wake fires with at
// least one byte queued; it then returns up to want of the queued bytes.
func (k *Kernel) TTYRead(current *proc.PCB, userCtx *machine.Regs, ttyID int, want int) (int64, *kernel.Error) {
	if ttyID < 0 || ttyID >= len(k.Machine.TTYs) {
		return 0, errBadTTY
	}
	tty := k.Machine.TTYs[ttyID]

	for k.Sched.CurrentReader[ttyID] != nil && k.Sched.CurrentReader[ttyID] != current {
		if err := k.Sched.Block(&k.Sched.TTYRead[ttyID], userCtx); err != nil {
			return 0, err
		}
	}
	k.Sched.CurrentReader[ttyID] = current

	current.TTYRequest = proc.TTYRequest{Want: want}
	for tty.Pending() == 0 {
		if err := k.Sched.Block(&k.Sched.TTYRead[ttyID], userCtx); err != nil {
			return 0, err
		}
	}

	buf := make([]byte, want)
	n := tty.Receive(buf)
	current.TTYBuf = buf[:n]
	current.TTYRequest.Got = n

	k.Sched.CurrentReader[ttyID] = nil
	k.Sched.WakeOne(&k.Sched.TTYRead[ttyID])

	return int64(n), nil
}

// TTYWrite implements YALNIX_TTY_WRITE: take this tty's writer turn,
// transmit the whole buffer, and block until TrapTTYTransmit confirms
// completion (spec.md §4.8, original_source sys_tty_write /
// tty_trans_request).
func (k *Kernel) TTYWrite(current *proc.PCB, userCtx *machine.Regs, ttyID int, buf []byte) (int64, *kernel.Error) {
	if ttyID < 0 || ttyID >= len(k.Machine.TTYs) {
		return 0, errBadTTY
	}
	tty := k.Machine.TTYs[ttyID]

	for k.Sched.CurrentWriter[ttyID] != nil && k.Sched.CurrentWriter[ttyID] != current {
		if err := k.Sched.Block(&k.Sched.TTYWrite[ttyID], userCtx); err != nil {
			return 0, err
		}
	}
	k.Sched.CurrentWriter[ttyID] = current

	current.State = proc.StatePending
	tty.Transmit(buf)
	if err := k.Sched.Schedule(userCtx); err != nil {
		return 0, err
	}

	return int64(len(buf)), nil
}

// TTYReceiveComplete is the TrapTTYReceive handler body (spec.md §4.8):
// wake whichever task is waiting to read ttyID.
func (k *Kernel) TTYReceiveComplete(ttyID int) {
	k.Sched.WakeOne(&k.Sched.TTYRead[ttyID])
}

// TTYTransmitComplete is the TrapTTYTransmit handler body: the write that
// just finished was blocked in Schedule inside TTYWrite, so waking it here
// lets it resume and release the writer turn.
func (k *Kernel) TTYTransmitComplete(ttyID int) {
	writer := k.Sched.CurrentWriter[ttyID]
	k.Sched.CurrentWriter[ttyID] = nil
	if writer != nil {
		k.Sched.Wake(writer)
	}
	k.Sched.WakeOne(&k.Sched.TTYWrite[ttyID])
}

package trap

import "osim/machine"

// handleTTYReceive and handleTTYTransmit are TrapTTYReceive/
// TrapTTYTransmit's handlers: wake whichever task is waiting on that tty's
// read/write turn (spec.md §4.8, original_source trap_tty_receive_handler /
// trap_tty_transmit_handler).
func (d *Dispatcher) handleTTYReceive(info machine.TrapInfo) {
	d.k.TTYReceiveComplete(info.TTYID)
}

func (d *Dispatcher) handleTTYTransmit(info machine.TrapInfo) {
	d.k.TTYTransmitComplete(info.TTYID)
}

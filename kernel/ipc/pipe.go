package ipc

import (
	"osim/kernel"
	"osim/kernel/sched"
	"osim/machine"
)

// pipeCapacity is the ring buffer's fixed length (spec.md §4.7 "Ring
// buffer of fixed length 1024").
const pipeCapacity = 1024

// Pipe is a fixed-capacity byte ring buffer with a FIFO reader queue and a
// FIFO writer queue, grounded on kernel/kfmt/ringbuf.go's wrap-index
// arithmetic and original_source kernel/utility.c's pipe_do_read/
// pipe_do_write.
type Pipe struct {
	refcount

	buf            [pipeCapacity]byte
	readP, writeP  int
	bytes          int
	readQ, writeQ  sched.Queue
}

// NewPipe allocates an empty pipe with a single open reference.
func NewPipe() *Pipe {
	p := &Pipe{}
	p.n = 1
	return p
}

// Read copies min(bytes available, len(buf)) bytes out of the pipe,
// blocking on the read queue while it is empty (spec.md §4.7 "read").
func (p *Pipe) Read(s *sched.Scheduler, userCtx *machine.Regs, buf []byte) (int, *kernel.Error) {
	if len(buf) == 0 {
		return 0, errZeroLength
	}

	for p.bytes == 0 {
		if err := s.Block(&p.readQ, userCtx); err != nil {
			return 0, err
		}
	}

	n := min(p.bytes, len(buf))
	if pipeCapacity-p.readP >= n {
		copy(buf, p.buf[p.readP:p.readP+n])
		p.readP += n
	} else {
		first := pipeCapacity - p.readP
		copy(buf, p.buf[p.readP:])
		copy(buf[first:], p.buf[:n-first])
		p.readP = n - first
	}
	p.bytes -= n
	p.readP %= pipeCapacity

	if p.bytes < pipeCapacity {
		s.WakeAll(&p.writeQ)
	}
	return n, nil
}

// Write copies every byte of buf into the pipe, blocking on the write
// queue whenever the ring is full, and only returning once all of it has
// been deposited (spec.md §4.7 "write").
func (p *Pipe) Write(s *sched.Scheduler, userCtx *machine.Regs, buf []byte) (int, *kernel.Error) {
	if len(buf) == 0 {
		return 0, errZeroLength
	}

	total := 0
	for len(buf) > 0 {
		for p.bytes == pipeCapacity {
			if err := s.Block(&p.writeQ, userCtx); err != nil {
				return total, err
			}
		}

		n := min(len(buf), pipeCapacity-p.bytes)
		if pipeCapacity-p.writeP >= n {
			copy(p.buf[p.writeP:], buf[:n])
			p.writeP += n
		} else {
			first := pipeCapacity - p.writeP
			copy(p.buf[p.writeP:], buf[:first])
			second := n - first
			if second > p.readP {
				second = p.readP
			}
			copy(p.buf[:second], buf[first:first+second])
			p.writeP = p.writeP + n - pipeCapacity
		}

		p.bytes += n
		p.writeP %= pipeCapacity
		buf = buf[n:]
		total += n

		if p.bytes > 0 {
			s.WakeAll(&p.readQ)
		}
	}
	return total, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package machine

import "osim/kernel/mem/pmm"

// RAM is the byte slice standing in for physical memory. Every physical
// frame the pmm allocator hands out is a PageSize-sized window into this
// slice, addressed by Frame.Address().
type RAM struct {
	bytes []byte
}

func newRAM(totalFrames int) *RAM {
	return &RAM{bytes: make([]byte, totalFrames*PageSize)}
}

// Page returns the byte slice backing the given frame.
func (r *RAM) Page(f pmm.Frame) []byte {
	addr := f.Address()
	return r.bytes[addr : addr+uintptr(PageSize)]
}

// ReadByte returns the byte stored at the given offset within a frame.
func (r *RAM) ReadByte(f pmm.Frame, offset int) byte {
	return r.Page(f)[offset]
}

// WriteByte stores a byte at the given offset within a frame.
func (r *RAM) WriteByte(f pmm.Frame, offset int, v byte) {
	r.Page(f)[offset] = v
}

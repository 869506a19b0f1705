// Package machine simulates the hardware this kernel targets: an MMU with
// two virtual address regions, a trap vector, a clock, a configurable
// number of TTYs and a raw disk used for swap files. spec.md treats the
// real hardware-simulator ABI as an external collaborator; this package is
// a from-scratch, pure-Go stand-in for it, kept to the register-file and
// flush-by-address idiom the teacher's kernel/cpu and kernel/gate packages
// use for the real amd64 MMU, but implemented entirely in software since
// there is no real processor underneath.
package machine

import (
	"osim/kernel/mem"
)

// Config describes the shape of the simulated machine. Zero values are
// replaced with sane defaults by New.
type Config struct {
	// TotalFrames is the number of physical page frames backing RAM.
	TotalFrames int

	// RegionPages is the number of pages in each of region 0 and region 1.
	RegionPages int

	// NumTTYs is the number of simulated terminals.
	NumTTYs int

	// SwapDir is the host directory where per-PID swap files are created.
	SwapDir string
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		TotalFrames: 512,
		RegionPages: 128,
		NumTTYs:     4,
		SwapDir:     "_SWAP",
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.TotalFrames <= 0 {
		c.TotalFrames = def.TotalFrames
	}
	if c.RegionPages <= 0 {
		c.RegionPages = def.RegionPages
	}
	if c.NumTTYs <= 0 {
		c.NumTTYs = def.NumTTYs
	}
	if c.SwapDir == "" {
		c.SwapDir = def.SwapDir
	}
}

// Machine bundles every simulated device the kernel core is written
// against. It owns the one slice of bytes that stands in for physical RAM;
// every other device (MMU, TTYs, disk) is a view over addresses it hands
// out.
type Machine struct {
	cfg Config

	RAM   *RAM
	Clock *Clock
	TTYs  []*TTY
	Disk  *Disk
	Vector *Vector
}

// New builds a Machine from the given configuration.
func New(cfg Config) *Machine {
	cfg.applyDefaults()

	m := &Machine{
		cfg:    cfg,
		RAM:    newRAM(cfg.TotalFrames),
		Clock:  newClock(),
		Disk:   newDisk(cfg.SwapDir),
		Vector: newVector(),
	}
	m.TTYs = make([]*TTY, cfg.NumTTYs)
	for i := range m.TTYs {
		m.TTYs[i] = newTTY(i)
	}
	return m
}

// RegionPages returns the fixed page-table entry count for either region
// (spec.md §3: "Each table has a fixed entry count determined by the
// hardware (region size ÷ page size)").
func (m *Machine) RegionPages() int { return m.cfg.RegionPages }

// TotalFrames returns the number of installable physical frames.
func (m *Machine) TotalFrames() int { return m.cfg.TotalFrames }

// PageSize is the machine's fixed page size in bytes.
const PageSize = int(mem.PageSize)

// Halt stops the simulated machine. Analogous to the hardware ABI's Halt().
func (m *Machine) Halt() {
	panic("machine halted")
}

// Pause yields the simulated CPU without doing anything observable; used by
// the idle process when no other PCB is ready.
func (m *Machine) Pause() {}

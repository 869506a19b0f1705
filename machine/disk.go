package machine

import (
	"fmt"
	"os"
	"path/filepath"

	"osim/kernel"
)

// Disk is the raw per-PID swap-file store described in spec.md §6
// ("Persisted state"). It is deliberately the thinnest possible wrapper
// around the host filesystem: opening, truncating, writing, reading and
// unlinking files under SwapDir/<pid>. **stdlib justification** (see
// DESIGN.md): this is literal host file I/O, exactly what os/io are for;
// no third-party storage library in the retrieval pack improves on
// os.OpenFile/os.Remove for a handful of small sequential swap files.
type Disk struct {
	dir string
}

func newDisk(dir string) *Disk {
	return &Disk{dir: dir}
}

func (d *Disk) path(pid uint64) string {
	return filepath.Join(d.dir, fmt.Sprintf("%d", pid))
}

// errIO wraps a host I/O failure as a kernel error.
func errIO(err error) *kernel.Error {
	return &kernel.Error{Module: "disk", Message: err.Error()}
}

// Create truncates (or creates) the swap file for pid with user rwx
// permissions, per spec.md §6.
func (d *Disk) Create(pid uint64) (*SwapFile, *kernel.Error) {
	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return nil, errIO(err)
	}
	f, err := os.OpenFile(d.path(pid), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o700)
	if err != nil {
		return nil, errIO(err)
	}
	return &SwapFile{f: f}, nil
}

// Open opens an existing swap file for reading/writing.
func (d *Disk) Open(pid uint64) (*SwapFile, *kernel.Error) {
	f, err := os.OpenFile(d.path(pid), os.O_RDWR, 0o700)
	if err != nil {
		return nil, errIO(err)
	}
	return &SwapFile{f: f}, nil
}

// Unlink removes the swap file for pid after a successful swap-in.
func (d *Disk) Unlink(pid uint64) {
	os.Remove(d.path(pid))
}

// SwapFile is a sequential, page-sized-write view over one process's swap
// file.
type SwapFile struct {
	f *os.File
}

// WritePage appends/writes page at the given page-aligned offset.
func (s *SwapFile) WritePage(pageIndex int, data []byte) *kernel.Error {
	n, err := s.f.WriteAt(data, int64(pageIndex)*int64(PageSize))
	if err != nil {
		return errIO(err)
	}
	if n != len(data) {
		return errIO(fmt.Errorf("short write: %d of %d bytes", n, len(data)))
	}
	return nil
}

// ReadPage reads exactly one page's worth of bytes at the given page-aligned
// offset. A short read is reported as an I/O error so the caller can roll
// the page back to its swapped state (spec.md §4.3).
func (s *SwapFile) ReadPage(pageIndex int, data []byte) *kernel.Error {
	n, err := s.f.ReadAt(data, int64(pageIndex)*int64(PageSize))
	if err != nil || n != len(data) {
		if err == nil {
			err = fmt.Errorf("short read: %d of %d bytes", n, len(data))
		}
		return errIO(err)
	}
	return nil
}

// Close closes the underlying host file handle.
func (s *SwapFile) Close() {
	s.f.Close()
}

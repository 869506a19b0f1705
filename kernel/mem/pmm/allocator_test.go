package pmm

import (
	"testing"

	"osim/kernel"
)

func TestAllocatorLIFO(t *testing.T) {
	a := NewAllocator(3)

	f1, err := a.Alloc()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f1 != Frame(2) {
		t.Fatalf("expected frame 2 first (LIFO), got %d", f1)
	}

	a.Release(f1)
	f2, err := a.Alloc()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f2 != f1 {
		t.Fatalf("expected re-allocated frame to equal %d, got %d", f1, f2)
	}
}

func TestAllocatorExhaustionDelegatesToSwapOnce(t *testing.T) {
	a := NewAllocator(1)

	if _, err := a.Alloc(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	swapCalls := 0
	a.SetSwapOut(func() *kernel.Error {
		swapCalls++
		a.Release(Frame(0))
		return nil
	})

	f, err := a.Alloc()
	if err != nil {
		t.Fatalf("unexpected error after swap-out: %v", err)
	}
	if f != Frame(0) {
		t.Fatalf("expected frame 0 after swap-out freed it, got %d", f)
	}
	if swapCalls != 1 {
		t.Fatalf("expected exactly one swap-out call, got %d", swapCalls)
	}
}

func TestAllocatorOutOfMemoryWhenSwapCannotFree(t *testing.T) {
	a := NewAllocator(0)
	a.SetSwapOut(func() *kernel.Error {
		return &kernel.Error{Module: "swap", Message: "no victim"}
	})

	if _, err := a.Alloc(); err == nil {
		t.Fatal("expected out-of-memory error")
	}
}

func TestBulkRelease(t *testing.T) {
	a := NewAllocator(0)
	a.BulkRelease([]Frame{0, 1, 2})
	if a.Free() != 3 {
		t.Fatalf("expected 3 free frames, got %d", a.Free())
	}
}

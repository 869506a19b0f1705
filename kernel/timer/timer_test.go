package timer

import (
	"testing"

	"osim/kernel/proc"
)

func TestAddKeepsAscendingOrder(t *testing.T) {
	var l List
	a := proc.New(1, 0)
	b := proc.New(2, 0)
	c := proc.New(3, 0)

	l.Add(30, c)
	l.Add(10, a)
	l.Add(20, b)

	if l.entries[0].task != a || l.entries[1].task != b || l.entries[2].task != c {
		t.Fatal("expected timers kept sorted by ascending deadline")
	}
}

func TestFireReturnsOnlyDueTimersInOrder(t *testing.T) {
	var l List
	a := proc.New(1, 0)
	b := proc.New(2, 0)
	c := proc.New(3, 0)
	l.Add(10, a)
	l.Add(20, b)
	l.Add(30, c)

	due := l.Fire(20)
	if len(due) != 2 || due[0] != a || due[1] != b {
		t.Fatalf("expected a and b due at tick 20, got %v", due)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one timer remaining, got %d", l.Len())
	}
}

func TestFireWithNothingDueReturnsNil(t *testing.T) {
	var l List
	a := proc.New(1, 0)
	l.Add(50, a)

	if due := l.Fire(10); due != nil {
		t.Fatal("expected no timers due yet")
	}
}

func TestRemoveCancelsAllTimersForTask(t *testing.T) {
	var l List
	a := proc.New(1, 0)
	b := proc.New(2, 0)
	l.Add(10, a)
	l.Add(20, a)
	l.Add(15, b)

	l.Remove(a)
	if l.Len() != 1 {
		t.Fatalf("expected only b's timer left, got %d", l.Len())
	}
	if l.entries[0].task != b {
		t.Fatal("expected remaining timer to belong to b")
	}
}

package mailbox

import (
	"testing"
	"time"
)

func TestPutTake(t *testing.T) {
	m := New[int]()
	m.Put(1)

	v, ok := m.Take()
	if !ok || v != 1 {
		t.Fatalf("Take = (%d,%v), want (1,true)", v, ok)
	}
	if m.Overwrites() != 0 {
		t.Errorf("Overwrites = %d, want 0", m.Overwrites())
	}
}

func TestOverwriteKeepsLatest(t *testing.T) {
	m := New[int]()
	for i := 1; i <= 5; i++ {
		m.Put(i)
	}

	v, ok := m.Take()
	if !ok || v != 5 {
		t.Fatalf("Take = (%d,%v), want (5,true)", v, ok)
	}
	if got := m.Overwrites(); got != 4 {
		t.Errorf("Overwrites = %d, want 4", got)
	}
}

func TestTakeBlocksUntilPut(t *testing.T) {
	m := New[string]()
	got := make(chan string, 1)

	go func() {
		v, _ := m.Take()
		got <- v
	}()

	select {
	case v := <-got:
		t.Fatalf("Take returned %q before Put", v)
	case <-time.After(20 * time.Millisecond):
	}

	m.Put("frame")
	select {
	case v := <-got:
		if v != "frame" {
			t.Errorf("Take = %q, want frame", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Take did not wake after Put")
	}
}

func TestCloseWakesWaiters(t *testing.T) {
	m := New[int]()
	done := make(chan bool, 1)

	go func() {
		_, ok := m.Take()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	m.Close()
	m.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Take after Close should report false")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake Take")
	}

	if m.Put(1) {
		t.Error("Put after Close should report false")
	}
}

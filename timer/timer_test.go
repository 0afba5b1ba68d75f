// timer/timer_test.go
package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAddTimerFires(t *testing.T) {
	manager := NewManager()

	done := make(chan struct{})
	manager.AddTimer(10*time.Millisecond, 0, func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestIntervalReschedules(t *testing.T) {
	manager := NewManager()

	var fired int32
	manager.AddTimer(10*time.Millisecond, 50*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	deadline := time.Now().Add(3 * time.Second)
	for atomic.LoadInt32(&fired) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("interval timer did not fire twice")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRemoveTimer(t *testing.T) {
	manager := NewManager()

	var fired int32
	id := manager.AddTimer(500*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})
	manager.RemoveTimer(id)

	time.Sleep(800 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Error("removed timer still fired")
	}
}

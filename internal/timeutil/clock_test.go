package timeutil

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}

	start := c.Now()
	if c.Since(start) < 0 {
		t.Error("Since returned a negative duration")
	}

	timer := c.NewTimer(time.Millisecond)
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
	if timer.Stop() {
		t.Error("Stop on a fired timer reported active")
	}

	ticker := c.NewTicker(time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker did not tick")
	}
}

func TestMockClock_TimerFiresOnAdvance(t *testing.T) {
	c := NewMockClock(epoch)
	timer := c.NewTimer(100 * time.Millisecond)

	c.Advance(99 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case got := <-timer.C():
		if !got.Equal(epoch.Add(100 * time.Millisecond)) {
			t.Errorf("fired at %v", got)
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}

	if c.Since(epoch) != 100*time.Millisecond {
		t.Errorf("Since = %v", c.Since(epoch))
	}
}

func TestMockClock_StoppedTimerDoesNotFire(t *testing.T) {
	c := NewMockClock(epoch)
	timer := c.NewTimer(time.Second)
	if !timer.Stop() {
		t.Error("Stop on an active timer reported inactive")
	}
	c.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestMockClock_BlockUntil(t *testing.T) {
	c := NewMockClock(epoch)

	armed := make(chan struct{})
	go func() {
		c.BlockUntil(1)
		close(armed)
	}()

	select {
	case <-armed:
		t.Fatal("BlockUntil returned before any timer existed")
	case <-time.After(20 * time.Millisecond):
	}

	c.NewTimer(time.Second)
	select {
	case <-armed:
	case <-time.After(time.Second):
		t.Fatal("BlockUntil did not observe the new timer")
	}
}

func TestMockClock_Ticker(t *testing.T) {
	c := NewMockClock(epoch)
	ticker := c.NewTicker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		c.Advance(10 * time.Millisecond)
		select {
		case <-ticker.C():
		default:
			t.Fatalf("tick %d missing", i)
		}
	}

	ticker.Stop()
	c.Advance(10 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker ticked")
	default:
	}
}

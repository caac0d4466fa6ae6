package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	c := NewManual(epoch)
	var order []string

	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "b") })

	c.Advance(250 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected [a b], got %v", order)
	}

	c.Advance(50 * time.Millisecond)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("expected c to fire at 300ms, got %v", order)
	}
	if !c.Now().Equal(epoch.Add(300 * time.Millisecond)) {
		t.Fatalf("unexpected now %v", c.Now())
	}
}

func TestManualRunsChainedCallbacksWithinWindow(t *testing.T) {
	c := NewManual(epoch)
	var fired []time.Duration

	c.AfterFunc(100*time.Millisecond, func() {
		fired = append(fired, c.Now().Sub(epoch))
		c.AfterFunc(0, func() {
			fired = append(fired, c.Now().Sub(epoch))
			c.AfterFunc(500*time.Millisecond, func() {
				fired = append(fired, c.Now().Sub(epoch))
			})
		})
	})

	c.Advance(time.Second)
	want := []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 600 * time.Millisecond}
	if len(fired) != len(want) {
		t.Fatalf("expected %v, got %v", want, fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("callback %d fired at %v, expected %v", i, fired[i], want[i])
		}
	}
}

func TestManualStop(t *testing.T) {
	c := NewManual(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("expected first Stop to report true")
	}
	if timer.Stop() {
		t.Fatal("expected second Stop to report false")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.Pending())
	}
}

func TestRealAfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}

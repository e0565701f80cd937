package notification

import (
	"context"
	"testing"
	"time"
)

func TestDispatcherInvokesDeclaredCapabilities(t *testing.T) {
	var sent, discarded, requested int
	var perfName string
	d := &Dispatcher{}
	d.Add(Listener{
		EventsSent:        func(n int) { sent += n },
		EventsDiscarded:   func(n int, _ string) { discarded += n },
		EventsSendRequest: func(n int) { requested += n },
		PerfEvent:         func(name string, _ int64) { perfName = name },
	})
	d.Add(Listener{}) // listener with no capabilities must be tolerated

	d.EventsSendRequest(2)
	d.EventsSent(1)
	d.EventsDiscarded(1, "sink failure")
	d.PerfEvent("visit_duration", 1200)

	if requested != 2 || sent != 1 || discarded != 1 {
		t.Fatalf("counts: requested=%d sent=%d discarded=%d", requested, sent, discarded)
	}
	if perfName != "visit_duration" {
		t.Fatalf("perf event name: %q", perfName)
	}
}

func TestWaitUnloadSynchronousAndDeferred(t *testing.T) {
	d := &Dispatcher{}
	syncDone := false
	d.Add(Listener{Unload: func() <-chan struct{} {
		syncDone = true
		return nil // synchronous completion
	}})
	deferred := make(chan struct{})
	d.Add(Listener{Unload: func() <-chan struct{} { return deferred }})

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(deferred)
	}()
	if err := d.WaitUnload(context.Background()); err != nil {
		t.Fatalf("wait unload: %v", err)
	}
	if !syncDone {
		t.Fatalf("synchronous unload did not run")
	}
}

func TestWaitUnloadHonorsContext(t *testing.T) {
	d := &Dispatcher{}
	d.Add(Listener{Unload: func() <-chan struct{} { return make(chan struct{}) }})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.WaitUnload(ctx); err == nil {
		t.Fatalf("expected context error for a listener that never completes")
	}
}

package notification

import (
	"context"
	"sync"
)

// Listener is an optional capability set a hosting telemetry manager may
// attach to the emission pipeline. Every field may be nil; only the
// capabilities a listener declares are invoked.
//
// Unload may run synchronously (return nil) or hand back a completion channel
// the owner can wait on before finalizing shutdown.
type Listener struct {
	EventsSent        func(count int)
	EventsDiscarded   func(count int, reason string)
	EventsSendRequest func(count int)
	PerfEvent         func(name string, millis int64)
	Unload            func() <-chan struct{}
}

// Dispatcher fans pipeline notifications out to attached listeners. All
// methods are safe for concurrent use and tolerate zero listeners.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

// Add attaches a listener. Listeners cannot be detached; they live as long as
// the pipeline.
func (d *Dispatcher) Add(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// EventsSendRequest announces that count events are about to be sent.
func (d *Dispatcher) EventsSendRequest(count int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, l := range d.listeners {
		if l.EventsSendRequest != nil {
			l.EventsSendRequest(count)
		}
	}
}

// EventsSent announces that count events were delivered.
func (d *Dispatcher) EventsSent(count int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, l := range d.listeners {
		if l.EventsSent != nil {
			l.EventsSent(count)
		}
	}
}

// EventsDiscarded announces that count events were dropped.
func (d *Dispatcher) EventsDiscarded(count int, reason string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, l := range d.listeners {
		if l.EventsDiscarded != nil {
			l.EventsDiscarded(count, reason)
		}
	}
}

// PerfEvent forwards a named timing measurement.
func (d *Dispatcher) PerfEvent(name string, millis int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, l := range d.listeners {
		if l.PerfEvent != nil {
			l.PerfEvent(name, millis)
		}
	}
}

// WaitUnload runs every listener's Unload and blocks until all deferred
// completions have signalled or the context is done. It returns ctx.Err when
// teardown was cut short.
func (d *Dispatcher) WaitUnload(ctx context.Context) error {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	var pending []<-chan struct{}
	for _, l := range listeners {
		if l.Unload == nil {
			continue
		}
		if ch := l.Unload(); ch != nil {
			pending = append(pending, ch)
		}
	}
	for _, ch := range pending {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

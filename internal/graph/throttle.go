package graph

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// throttleGates is the process-wide registry of per-host throttle gates.
// Keyed by host so that every request to the same server shares one
// backoff clock, per §4.2/§9 ("Global state").
var throttleGates sync.Map // map[string]*throttleGate

// throttleGateFor returns the gate for host, creating it on first use.
func throttleGateFor(host string) *throttleGate {
	if g, ok := throttleGates.Load(host); ok {
		return g.(*throttleGate)
	}

	g, _ := throttleGates.LoadOrStore(host, &throttleGate{})

	return g.(*throttleGate)
}

// throttleGate holds the earliest unix-nano time at which the next request
// to its host may be dispatched. Updates always retain the later of the
// competing values via a CAS loop, satisfying the "no outbound request
// before the deadline has passed" invariant under concurrent writers.
type throttleGate struct {
	deadline atomic.Int64 // unix nanoseconds; 0 means open
}

// wait blocks until the gate's deadline has passed or ctx is done.
func (g *throttleGate) wait(ctx context.Context) error {
	for {
		deadline := g.deadline.Load()
		if deadline == 0 {
			return nil
		}

		remaining := time.Until(time.Unix(0, deadline))
		if remaining <= 0 {
			return nil
		}

		timer := time.NewTimer(remaining)

		select {
		case <-timer.C:
			// A concurrent setDeadline may have pushed the deadline further
			// out while this wait was already asleep; loop and re-check
			// rather than assuming the gate is open now.
			continue
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		}
	}
}

// setDeadline advances the gate's deadline to max(current, newDeadline).
func (g *throttleGate) setDeadline(newDeadline time.Time) {
	next := newDeadline.UnixNano()

	for {
		current := g.deadline.Load()
		if next <= current {
			return
		}

		if g.deadline.CompareAndSwap(current, next) {
			return
		}
	}
}

// observeRetryAfter parses a Retry-After header (HTTP-date or relative
// seconds) and advances the gate for host accordingly. A missing or
// unparseable header is a no-op — the gate is only ever tightened by a
// successful parse.
func observeRetryAfter(host string, header http.Header, now time.Time) {
	value := header.Get("Retry-After")
	if value == "" {
		return
	}

	var deadline time.Time

	if seconds, err := strconv.Atoi(value); err == nil {
		deadline = now.Add(time.Duration(seconds) * time.Second)
	} else if when, err := http.ParseTime(value); err == nil {
		deadline = when
	} else {
		return
	}

	throttleGateFor(host).setDeadline(deadline)
}

// waitForHost blocks the caller until host's throttle gate opens.
func waitForHost(ctx context.Context, host string) error {
	return throttleGateFor(host).wait(ctx)
}

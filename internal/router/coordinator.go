package router

import (
	"context"
	"sync"

	"shopsync/internal/wire"
)

// ElectCoordinator probes primary(key) and its replicas with
// HEALTH_CHECK and returns the first to answer within
// CoordinatorHealthCheckTimeout, preferring primary if it answered
// within the window — spec.md §4.4. Returns "" if none answered,
// which the caller reports to the client as "no coordinator
// available" (spec.md §7).
//
// The original Router.elect_coordinator busy-polls self.activity for
// the timeout window; this collects responses on a channel instead
// and returns the moment every candidate has answered or the window
// elapses, whichever is first — behavior-equivalent (first responder
// within the window wins, primary preferred) per SPEC_FULL §4.
func (r *Router) ElectCoordinator(ctx context.Context, key string) string {
	primary := r.ring.Primary(key)
	if primary == "" {
		return ""
	}
	candidates := candidatesWithPrimaryFirst(primary, r.ring.Replicas(key, r.cfg.Quorum.N))

	ctx, cancel := context.WithTimeout(ctx, r.cfg.CoordinatorHealthCheckTimeoutOrDefault())
	defer cancel()

	type reply struct {
		address string
		ok      bool
	}
	results := make(chan reply, len(candidates))
	for _, addr := range candidates {
		go func(addr string) {
			resp, err := r.sender.Send(ctx, addr, wire.Envelope{Type: wire.HealthCheck, NodeID: r.cfg.ID})
			results <- reply{address: addr, ok: err == nil && resp.Type == wire.HealthCheckResponse}
		}(addr)
	}

	var mu sync.Mutex
	answered := make(map[string]bool, len(candidates))
	done := make(chan struct{})
	go func() {
		for range candidates {
			rep := <-results
			if rep.ok {
				mu.Lock()
				answered[rep.address] = true
				mu.Unlock()
				r.markActive(rep.address, true)
			}
		}
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}

	mu.Lock()
	defer mu.Unlock()
	if answered[primary] {
		return primary
	}
	for _, addr := range candidates {
		if answered[addr] {
			return addr
		}
	}
	return ""
}

// candidatesWithPrimaryFirst returns primary followed by every
// distinct replica, deduplicated, the probe order elect_coordinator
// uses (primary node, then set(replicas)).
func candidatesWithPrimaryFirst(primary string, replicas []string) []string {
	seen := map[string]bool{primary: true}
	out := []string{primary}
	for _, addr := range replicas {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

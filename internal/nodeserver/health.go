package nodeserver

import (
	"context"
	"time"

	"shopsync/internal/wire"
)

// MarkHealthy records address as having answered successfully at now.
// Called both from an explicit HEALTH_CHECK_RESPONSE and from any
// other reply a peer sends back, the way the original router updated
// last_time_active on every non-client message.
func (n *Node) MarkHealthy(address string, now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peerHealth[address] = now
}

// MarkUnhealthy records address as having failed to answer at now.
// Learned reactively, from any failed send to the peer (each quorum
// send attempt or health probe), so that the *next* request touching
// a key this peer replicates
// knows to route around it ahead of time.
func (n *Node) MarkUnhealthy(address string, now time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peerFailed[address] = now
}

// IsHealthy reports address's last-known state: a peer is healthy
// until it fails, and recovers the moment a later contact succeeds —
// whichever of the two event times is more recent wins. A peer never
// contacted is optimistically assumed healthy; pre-emptively treating
// every never-probed peer as down would substitute them out of every
// quorum before the quorum even had a chance to try them.
func (n *Node) IsHealthy(address string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	failedAt, failed := n.peerFailed[address]
	if !failed {
		return true
	}
	healthyAt, healthy := n.peerHealth[address]
	if !healthy {
		return false
	}
	return healthyAt.After(failedAt)
}

// probeHealth sends a HEALTH_CHECK to address and records the result.
func (n *Node) probeHealth(ctx context.Context, address string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := n.sender.Send(ctx, address, wire.Envelope{Type: wire.HealthCheck, NodeID: n.address})
	if err != nil || resp.Type != wire.HealthCheckResponse {
		n.MarkUnhealthy(address, time.Now())
		return false
	}
	n.MarkHealthy(address, time.Now())
	return true
}

// unhealthySnapshot returns the set of nodes from candidates already
// known unhealthy, for ring.Resolve's substitution walk — a read of
// this node's existing peer-health table, not a fresh probe; a
// coordinator learns about a peer's failure from the outcome of its
// own send attempts (see fanOut), not by probing ahead of every quorum.
func (n *Node) unhealthySnapshot(candidates []string) map[string]bool {
	unhealthy := make(map[string]bool)
	for _, addr := range candidates {
		if addr == n.address {
			continue // self is always considered live
		}
		if !n.IsHealthy(addr) {
			unhealthy[addr] = true
		}
	}
	return unhealthy
}

package router

import (
	"context"
	"time"

	"shopsync/internal/wire"
)

// Register adds a newly announced node to the ring and activity
// table, returning the full set of previously known node addresses —
// the caller replies to the node with these as REGISTER_RESPONSE so
// it can build its own ring copy — then broadcasts ADD_NODE to every
// node that was already known, mirroring Router.add_node in the
// original.
func (r *Router) Register(ctx context.Context, address string) []string {
	r.mu.Lock()
	previous := make([]string, 0, len(r.activity))
	for addr := range r.activity {
		previous = append(previous, addr)
	}
	r.activity[address] = nodeActivity{lastSeen: time.Now(), immediatelyAvailable: true}
	r.mu.Unlock()

	r.ring.AddNode(address)
	r.broadcast(ctx, previous, wire.Envelope{Type: wire.AddNode, Address: address})
	return previous
}

// RemoveNode evicts address from the ring and activity table and
// broadcasts REMOVE_NODE to every remaining node, mirroring
// Router.remove_node.
func (r *Router) RemoveNode(ctx context.Context, address string) {
	r.mu.Lock()
	delete(r.activity, address)
	peers := make([]string, 0, len(r.activity))
	for addr := range r.activity {
		peers = append(peers, addr)
	}
	r.mu.Unlock()

	r.ring.RemoveNode(address)
	r.broadcast(ctx, peers, wire.Envelope{Type: wire.RemoveNode, Address: address})
}

func (r *Router) broadcast(ctx context.Context, addresses []string, env wire.Envelope) {
	for _, addr := range addresses {
		if _, err := r.sender.Send(ctx, addr, env); err != nil {
			r.logger.Warn().Err(err).Str("node", addr).Str("type", env.Type.String()).Msg("broadcast failed")
		}
	}
}

package nodeserver

import (
	"context"
	"time"

	"shopsync/internal/shoppinglist"
	"shopsync/internal/wire"
)

// FlushHints runs one pass of the hint-flush algorithm from spec.md
// §4.3: probe every peer with a pending hint, and for each that
// answers healthy within HealthCheckTimeout, replay its pending
// WRITE_HINTs as PUT_HANDED_OFF (carrying the node's current merged
// state) and its DELETE_HINTs as DELETE_HANDED_OFF. After emission,
// it re-checks ideal_replicas for every affected key and evicts any
// the node is no longer entitled to hold.
func (n *Node) FlushHints(ctx context.Context) {
	for _, peer := range n.hintedPeers() {
		if !n.probeHealth(ctx, peer, n.cfg.HealthCheckTimeout) {
			continue
		}
		n.flushPeerHints(ctx, peer)
	}
}

func (n *Node) hintedPeers() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	seen := make(map[string]bool)
	for peer := range n.writeHints {
		seen[peer] = true
	}
	for peer := range n.deleteHints {
		seen[peer] = true
	}
	peers := make([]string, 0, len(seen))
	for peer := range seen {
		peers = append(peers, peer)
	}
	return peers
}

func (n *Node) flushPeerHints(ctx context.Context, peer string) {
	n.mu.Lock()
	writeIDs := drain(n.writeHints[peer])
	deleteIDs := drain(n.deleteHints[peer])
	delete(n.writeHints, peer)
	delete(n.deleteHints, peer)
	n.mu.Unlock()

	for _, listID := range writeIDs {
		list, ok := n.readData(listID)
		if !ok {
			continue
		}
		raw, err := list.MarshalJSON()
		if err != nil {
			continue
		}
		env := wire.Envelope{Type: wire.PutHandedOff, ListID: list.ID, Value: string(raw)}
		if _, err := n.sender.Send(ctx, peer, env); err != nil {
			n.logger.Warn().Err(err).Str("peer", peer).Str("list_id", listID).Msg("failed to hand off write")
			continue
		}
		n.reconcileOwnership(listID)
	}

	for _, listID := range deleteIDs {
		env := wire.Envelope{Type: wire.DeleteHandedOff, Item: listID}
		if _, err := n.sender.Send(ctx, peer, env); err != nil {
			n.logger.Warn().Err(err).Str("peer", peer).Str("list_id", listID).Msg("failed to hand off delete")
			continue
		}
		n.reconcileOwnership(listID)
	}
}

// reconcileOwnership evicts listID from local memory if this node is
// no longer among its ideal replicas, the post-handoff check spec.md
// §4.3 requires.
func (n *Node) reconcileOwnership(listID string) {
	ideal := n.ring.IdealReplicas(listID, n.cfg.Quorum.N)
	for _, addr := range ideal {
		if addr == n.address {
			return
		}
	}
	n.evict(listID)
}

func drain(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// RunHintFlushLoop runs FlushHints on cfg.HintFlushInterval until ctx
// is cancelled — the periodic task spec.md §5 calls for.
func (n *Node) RunHintFlushLoop(ctx context.Context) {
	interval := n.cfg.HintFlushInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.FlushHints(ctx)
		}
	}
}

// ApplyHandedOffPut merges an incoming PUT_HANDED_OFF payload into
// local state, the target side of a hint flush.
func (n *Node) ApplyHandedOffPut(raw []byte) error {
	var list shoppinglist.List
	if err := list.UnmarshalJSON(raw); err != nil {
		return err
	}
	n.writeData(list)
	return nil
}

// ApplyHandedOffDelete applies a DELETE_HANDED_OFF notification.
func (n *Node) ApplyHandedOffDelete(listID string) {
	n.deleteData(listID)
}

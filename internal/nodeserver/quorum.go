package nodeserver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shopsync/internal/shoppinglist"
	"shopsync/internal/wire"
)

// peerAck is what a fan-out goroutine reports back about one peer.
type peerAck struct {
	address string
	ok      bool
	list    shoppinglist.List
	present bool
}

// resolveLive resolves the replica set for key against the node's own
// ring copy and current peer-health view, returning the live set
// (including self, if self is entitled to key) plus the ideal members
// that failed and the substitutes standing in for them, in ring order.
func (n *Node) resolveLive(key string) (live, failed, substitutes []string) {
	ideal := n.ring.IdealReplicas(key, n.cfg.Quorum.N)
	unhealthy := n.unhealthySnapshot(ideal)
	return n.ring.Resolve(key, n.cfg.Quorum.N, unhealthy)
}

// emitWriteHints sends a WRITE_HINT carrying list's current state to
// one distinct substitute per failed peer, in ring order — the
// coordinator-side half of spec.md §4.3's hinted handoff. The
// substitute stores the data and the obligation to forward it once
// the original owner is healthy again (see handleWriteHint).
func (n *Node) emitWriteHints(ctx context.Context, failed, substitutes []string, listID string, list shoppinglist.List) {
	raw, err := list.MarshalJSON()
	if err != nil {
		return
	}
	for i, failedPeer := range failed {
		if i >= len(substitutes) {
			n.logger.Warn().Str("failed_peer", failedPeer).Str("list_id", listID).
				Msg("no substitute available for hinted handoff")
			break
		}
		substitute := substitutes[i]
		hint := wire.Envelope{Type: wire.WriteHint, ListID: list.ID, Address: failedPeer, Value: string(raw)}
		if _, err := n.sender.Send(ctx, substitute, hint); err != nil {
			n.logger.Warn().Err(err).Str("substitute", substitute).Str("list_id", listID).
				Msg("failed to emit write hint")
			continue
		}
		n.logger.Info().Str("failed_peer", failedPeer).Str("substitute", substitute).
			Str("list_id", listID).Msg("emitted write hint for unreachable replica")
	}
}

// emitDeleteHints is emitWriteHints' counterpart for deletes: no
// payload travels with it, only the obligation to delete listID on
// failedPeer once it recovers.
func (n *Node) emitDeleteHints(ctx context.Context, failed, substitutes []string, listID uuid.UUID) {
	for i, failedPeer := range failed {
		if i >= len(substitutes) {
			n.logger.Warn().Str("failed_peer", failedPeer).Str("list_id", listID.String()).
				Msg("no substitute available for hinted handoff")
			break
		}
		substitute := substitutes[i]
		hint := wire.Envelope{Type: wire.DeleteHint, ListID: listID, Address: failedPeer}
		if _, err := n.sender.Send(ctx, substitute, hint); err != nil {
			n.logger.Warn().Err(err).Str("substitute", substitute).Str("list_id", listID.String()).
				Msg("failed to emit delete hint")
			continue
		}
		n.logger.Info().Str("failed_peer", failedPeer).Str("substitute", substitute).
			Str("list_id", listID.String()).Msg("emitted delete hint for unreachable replica")
	}
}

// CoordinatePut runs the PUT quorum algorithm of spec.md §4.3: the
// local write counts as the first acknowledgement, then every other
// live replica is asked in parallel, each retried at most once. The
// coordinator waits for every peer's outcome (or the deadline) rather
// than stopping once the target is met, and succeeds if 1+acks reaches
// min(W, 1+|peers|).
func (n *Node) CoordinatePut(ctx context.Context, env wire.Envelope, list shoppinglist.List) wire.Envelope {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.QuorumDeadlineOrDefault())
	defer cancel()

	key := env.ListID.String()
	live, failed, substitutes := n.resolveLive(key)

	n.writeData(list)
	n.emitWriteHints(ctx, failed, substitutes, key, list)
	peers := without(live, n.address)
	target := min(n.cfg.Quorum.W, 1+len(peers))

	raw, _ := list.MarshalJSON()
	put := wire.Envelope{Type: wire.Put, ListID: env.ListID, Value: string(raw)}

	acks := n.fanOut(ctx, peers, put, env.QuorumID)
	success := 1+acks >= target

	return wire.Envelope{
		Type:     wire.CoordinatePutResponse,
		QuorumID: env.QuorumID,
		ListID:   env.ListID,
		Value:    success,
	}
}

// CoordinateDelete runs the delete quorum. Per spec.md §4.3 it is
// "identical [to PUT] with DELETE_HINT and R as the target" — the R
// (not W) target is preserved here exactly as specified, a documented
// quirk rather than an oversight (see DESIGN.md).
func (n *Node) CoordinateDelete(ctx context.Context, env wire.Envelope) wire.Envelope {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.QuorumDeadlineOrDefault())
	defer cancel()

	key := env.ListID.String()
	live, failed, substitutes := n.resolveLive(key)

	present := n.deleteData(key)
	n.emitDeleteHints(ctx, failed, substitutes, env.ListID)
	peers := without(live, n.address)
	target := min(n.cfg.Quorum.R, 1+len(peers))

	del := wire.Envelope{Type: wire.Delete, ListID: env.ListID}
	acks := n.fanOut(ctx, peers, del, env.QuorumID)
	success := 1+acks >= target

	return wire.Envelope{
		Type:     wire.CoordinateDeleteResponse,
		QuorumID: env.QuorumID,
		ListID:   env.ListID,
		Value:    success && present,
	}
}

// CoordinateGet runs the read quorum: fan out GETs, merge every
// present response (plus the local copy, if any) and succeed once at
// least R replicas answered.
func (n *Node) CoordinateGet(ctx context.Context, env wire.Envelope) wire.Envelope {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.QuorumDeadlineOrDefault())
	defer cancel()

	key := env.ListID.String()
	live, _, _ := n.resolveLive(key)
	peers := without(live, n.address)

	get := wire.Envelope{Type: wire.Get, ListID: env.ListID}
	acks, merged, anyPresent := n.fanOutGet(ctx, peers, get, env.QuorumID)

	received := acks
	if local, ok := n.readData(key); ok {
		received++
		anyPresent = true
		if merged == nil {
			m := local
			merged = &m
		} else {
			m := merged.Merge(local)
			merged = &m
		}
	}

	if received < n.cfg.Quorum.R || !anyPresent {
		return wire.Envelope{Type: wire.CoordinateGetResponse, QuorumID: env.QuorumID, ListID: env.ListID, Error: "quorum not met or key absent"}
	}

	raw, _ := merged.MarshalJSON()
	return wire.Envelope{Type: wire.CoordinateGetResponse, QuorumID: env.QuorumID, ListID: env.ListID, Value: string(raw)}
}

// fanOut sends req to every peer in parallel, retries each at most
// once after MinRetryInterval, and returns the number of
// successful acknowledgements received before ctx's deadline. It
// returns early the moment len(peers) acks have all arrived or failed
// permanently — there is nothing further to wait for.
func (n *Node) fanOut(ctx context.Context, peers []string, req wire.Envelope, quorum wire.QuorumID) int {
	if len(peers) == 0 {
		return 0
	}
	results := make(chan bool, len(peers))
	for _, peer := range peers {
		go func(peer string) {
			results <- n.sendWithRetry(ctx, peer, req, quorum)
		}(peer)
	}

	acks := 0
	for i := 0; i < len(peers); i++ {
		if <-results {
			acks++
		}
	}
	return acks
}

// fanOutGet mirrors fanOut but also collects and merges the returned
// CRDT state from every peer that reported the key present.
func (n *Node) fanOutGet(ctx context.Context, peers []string, req wire.Envelope, quorum wire.QuorumID) (acks int, merged *shoppinglist.List, anyPresent bool) {
	if len(peers) == 0 {
		return 0, nil, false
	}
	results := make(chan peerAck, len(peers))
	for _, peer := range peers {
		go func(peer string) {
			results <- n.sendGetWithRetry(ctx, peer, req, quorum)
		}(peer)
	}

	for i := 0; i < len(peers); i++ {
		r := <-results
		if !r.ok {
			continue
		}
		acks++
		if r.present {
			anyPresent = true
			if merged == nil {
				m := r.list
				merged = &m
			} else {
				m := merged.Merge(r.list)
				merged = &m
			}
		}
	}
	return acks, merged, anyPresent
}

func (n *Node) sendWithRetry(ctx context.Context, peer string, req wire.Envelope, quorum wire.QuorumID) bool {
	env := req
	env.QuorumID = quorum
	if n.trySend(ctx, peer, env) {
		return true
	}
	select {
	case <-time.After(n.cfg.MinRetryIntervalOrDefault()):
	case <-ctx.Done():
		return false
	}
	return n.trySend(ctx, peer, env)
}

func (n *Node) trySend(ctx context.Context, peer string, env wire.Envelope) bool {
	resp, err := n.sender.Send(ctx, peer, env)
	if err != nil {
		n.MarkUnhealthy(peer, time.Now())
		return false
	}
	n.MarkHealthy(peer, time.Now())
	switch env.Type {
	case wire.Put:
		return resp.Type == wire.PutResponse
	case wire.Delete:
		return resp.Type == wire.DeleteResponse
	}
	return false
}

func (n *Node) sendGetWithRetry(ctx context.Context, peer string, req wire.Envelope, quorum wire.QuorumID) peerAck {
	env := req
	env.QuorumID = quorum
	ack := n.tryGet(ctx, peer, env)
	if ack.ok {
		return ack
	}
	select {
	case <-time.After(n.cfg.MinRetryIntervalOrDefault()):
	case <-ctx.Done():
		return ack
	}
	return n.tryGet(ctx, peer, env)
}

func (n *Node) tryGet(ctx context.Context, peer string, env wire.Envelope) peerAck {
	resp, err := n.sender.Send(ctx, peer, env)
	if err != nil || resp.Type != wire.GetResponse {
		n.MarkUnhealthy(peer, time.Now())
		return peerAck{address: peer, ok: false}
	}
	n.MarkHealthy(peer, time.Now())
	if resp.Error != "" {
		return peerAck{address: peer, ok: true, present: false}
	}
	raw, ok := resp.Value.(string)
	if !ok {
		return peerAck{address: peer, ok: true, present: false}
	}
	var list shoppinglist.List
	if err := list.UnmarshalJSON([]byte(raw)); err != nil {
		return peerAck{address: peer, ok: true, present: false}
	}
	return peerAck{address: peer, ok: true, present: true, list: list}
}

// repairGet is the opportunistic read-repair path of spec.md §4.3: a
// node that is entitled to listID (it appears in ideal_replicas) but
// holds no copy of it asks one other ideal replica directly, tagging
// the request with the NoQuorum sentinel since it is not part of any
// client-driven quorum. A successful repair adopts the fetched state
// locally so future reads don't repeat the trip.
func (n *Node) repairGet(ctx context.Context, listID string) (shoppinglist.List, bool) {
	id, err := uuid.Parse(listID)
	if err != nil {
		return shoppinglist.List{}, false
	}

	entitled := false
	ideal := n.ring.IdealReplicas(listID, n.cfg.Quorum.N)
	for _, addr := range ideal {
		if addr == n.address {
			entitled = true
			break
		}
	}
	if !entitled {
		return shoppinglist.List{}, false
	}

	req := wire.Envelope{Type: wire.Get, ListID: id, QuorumID: wire.NoQuorum}
	for _, peer := range ideal {
		if peer == n.address {
			continue
		}
		ack := n.tryGet(ctx, peer, req)
		if ack.ok && ack.present {
			n.writeData(ack.list)
			return ack.list, true
		}
	}
	return shoppinglist.List{}, false
}

func without(nodes []string, self string) []string {
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if node != self {
			out = append(out, node)
		}
	}
	return out
}

// Package nodeserver implements a storage node: the in-memory map of
// list-id to shopping-list CRDT, the quorum-coordinator engine for
// GET/PUT/DELETE, per-peer health tracking, and the hinted-handoff
// log — generalizing internal/store.Store (write-back
// cache, snapshot persistence) and internal/cluster/replicator.go
// (peer RPC fan-out) into the Dynamo-style coordinator spec.md §4.3
// describes, grounded in the original Python DynamoNode/Router pair
// in original_source/node.py and server.py.
package nodeserver

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shopsync/internal/config"
	"shopsync/internal/localstore"
	"shopsync/internal/ring"
	"shopsync/internal/shoppinglist"
	"shopsync/internal/transport"
)

// Node is a single storage node. It is safe for concurrent use.
type Node struct {
	mu sync.Mutex

	address string
	cfg     config.Node
	ring    *ring.Ring
	store   *localstore.Store
	sender  transport.Sender
	logger  zerolog.Logger

	// versions holds, per list id, every ShoppingList version the
	// node currently has in flight before the next GET collapses
	// them — the "CRDT convergence window" spec.md §4.3 describes.
	versions map[string][]shoppinglist.List

	writeHints  map[string]map[string]bool // peer address -> set of list ids
	deleteHints map[string]map[string]bool

	peerHealth map[string]time.Time // address -> last successful contact
	peerFailed map[string]time.Time // address -> last failed contact
}

// New builds a Node around an already-open local store and ring
// handle. ring is the node's own copy, mutated by ADD_NODE/REMOVE_NODE
// notifications from the router (§3 "Ring" lifecycle).
func New(address string, cfg config.Node, r *ring.Ring, store *localstore.Store, sender transport.Sender, logger zerolog.Logger) *Node {
	return &Node{
		address:     address,
		cfg:         cfg,
		ring:        r,
		store:       store,
		sender:      sender,
		logger:      logger,
		versions:    make(map[string][]shoppinglist.List),
		writeHints:  make(map[string]map[string]bool),
		deleteHints: make(map[string]map[string]bool),
		peerHealth:  make(map[string]time.Time),
		peerFailed:  make(map[string]time.Time),
	}
}

// LoadFromDisk replays every persisted blob into memory, the
// analogue of the original get_database_data startup step.
func (n *Node) LoadFromDisk() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range n.store.Keys() {
		raw, ok := n.store.Get(id)
		if !ok {
			continue
		}
		var list shoppinglist.List
		if err := list.UnmarshalJSON(raw); err != nil {
			n.logger.Error().Err(err).Str("list_id", id).Msg("skipping corrupt persisted list")
			continue
		}
		n.versions[id] = []shoppinglist.List{list}
	}
	return nil
}

// FlushDirty writes every list the node holds back to the local store —
// called on cmd/node's periodic flush ticker (Shutdown does the final
// flush). The node keeps no per-list dirty flag, so every held list is
// re-put on each call and the store rewrites its file whenever it
// holds any list.
func (n *Node) FlushDirty() error {
	n.mu.Lock()
	snapshot := make(map[string]shoppinglist.List, len(n.versions))
	for id, vs := range n.versions {
		snapshot[id] = mergeAll(vs)
	}
	n.mu.Unlock()

	for id, list := range snapshot {
		raw, err := list.MarshalJSON()
		if err != nil {
			n.logger.Error().Err(err).Str("list_id", id).Msg("failed to encode list for flush")
			continue
		}
		n.store.Put(id, raw)
	}
	return n.store.FlushDirty()
}

// Shutdown flushes every list unconditionally, regardless of dirty
// state, matching save_all_database_data in the original.
func (n *Node) Shutdown() error {
	n.mu.Lock()
	snapshot := make(map[string]shoppinglist.List, len(n.versions))
	for id, vs := range n.versions {
		snapshot[id] = mergeAll(vs)
	}
	n.mu.Unlock()

	for id, list := range snapshot {
		raw, err := list.MarshalJSON()
		if err != nil {
			continue
		}
		n.store.Put(id, raw)
	}
	return n.store.FlushAll()
}

func mergeAll(versions []shoppinglist.List) shoppinglist.List {
	merged := versions[0]
	for _, v := range versions[1:] {
		merged = merged.Merge(v)
	}
	return merged
}

// readData merges every version held for listID into one and
// collapses the stored slice to that single value, mirroring
// DynamoNode.read_data.
func (n *Node) readData(listID string) (shoppinglist.List, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	versions, ok := n.versions[listID]
	if !ok || len(versions) == 0 {
		return shoppinglist.List{}, false
	}
	merged := mergeAll(versions)
	n.versions[listID] = []shoppinglist.List{merged}
	return merged, true
}

// writeData appends a newly received version for listID, mirroring
// DynamoNode.write_data. The stored versions are merged lazily, on the
// next read. No dirty flag is recorded; see FlushDirty.
func (n *Node) writeData(list shoppinglist.List) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := list.ID.String()
	n.versions[id] = append(n.versions[id], list)
}

// deleteData removes listID entirely from memory, returning whether
// it was present.
func (n *Node) deleteData(listID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.versions[listID]
	delete(n.versions, listID)
	return ok
}

// has reports whether the node currently holds any version of listID,
// without merging.
func (n *Node) has(listID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.versions[listID]
	return ok
}

// evict drops a list the node is no longer entitled to, used by the
// hint-flush loop's ideal_replicas re-check.
func (n *Node) evict(listID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.versions, listID)
}

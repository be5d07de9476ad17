// Package ring implements the consistent hash ring that the router
// uses to assign shopping lists to storage nodes, following the same
// SHA-256-keyed virtual-node design of internal/cluster's original
// package, extended with health-aware replica substitution.
package ring

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// DefaultVnodes is the number of virtual nodes placed per physical
// node when the caller does not ask for a specific count.
const DefaultVnodes = 24

// Ring is a consistent hash ring over node IDs. It is safe for
// concurrent use.
type Ring struct {
	mu     sync.RWMutex
	vnodes int
	points map[uint32]string
	sorted []uint32
	nodes  map[string]bool
}

// New creates an empty ring. If vnodes <= 0, DefaultVnodes is used.
func New(vnodes int) *Ring {
	if vnodes <= 0 {
		vnodes = DefaultVnodes
	}
	return &Ring{
		vnodes: vnodes,
		points: make(map[uint32]string),
		nodes:  make(map[string]bool),
	}
}

// AddNode places vnodes virtual points for nodeID on the ring. It is
// a no-op if nodeID is already present.
func (r *Ring) AddNode(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nodes[nodeID] {
		return
	}
	r.nodes[nodeID] = true
	for i := 0; i < r.vnodes; i++ {
		pos := r.hash(fmt.Sprintf("%s#%d", nodeID, i))
		r.points[pos] = nodeID
	}
	r.rebuild()
}

// RemoveNode removes nodeID and all of its virtual points.
func (r *Ring) RemoveNode(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.nodes[nodeID] {
		return
	}
	delete(r.nodes, nodeID)
	for i := 0; i < r.vnodes; i++ {
		pos := r.hash(fmt.Sprintf("%s#%d", nodeID, i))
		delete(r.points, pos)
	}
	r.rebuild()
}

// Primary returns the single node clockwise-nearest to key, or "" if
// the ring is empty.
func (r *Ring) Primary(key string) string {
	nodes := r.Replicas(key, 1)
	if len(nodes) == 0 {
		return ""
	}
	return nodes[0]
}

// Replicas returns up to n distinct physical nodes responsible for
// key, walking clockwise from key's ring position.
func (r *Ring) Replicas(key string, n int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.walk(key, n, nil)
}

// ReplicasWithHealth returns up to n distinct healthy nodes for key.
// It walks the ring clockwise as Replicas does, but skips any node
// present in unhealthy, substituting the next clockwise node instead —
// spec.md §4.2's "ideal replicas and health-aware substitution".
// Because virtual points are per-physical-node, a node excluded here
// can still host a different key's replica set.
func (r *Ring) ReplicasWithHealth(key string, n int, unhealthy map[string]bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.walk(key, n, unhealthy)
}

// IdealReplicas returns the n nodes that would own key if every node
// in the ring were healthy — used to detect drift after a node
// rejoins and to decide whether a hinted write should be migrated
// back to its ideal owner.
func (r *Ring) IdealReplicas(key string, n int) []string {
	return r.Replicas(key, n)
}

// Resolve splits a key's ownership into the live replica set (with
// substitution applied), the ideal members that were unhealthy, and
// the substitutes standing in for them, all in ring order — exactly
// the three sets spec.md §4.3's coordinator algorithm needs to pair
// each failed peer with a distinct substitute for hint emission.
func (r *Ring) Resolve(key string, n int, unhealthy map[string]bool) (live, failed, substitutes []string) {
	r.mu.RLock()
	ideal := r.walk(key, n, nil)
	live = r.walk(key, n, unhealthy)
	r.mu.RUnlock()

	idealSet := make(map[string]bool, len(ideal))
	for _, node := range ideal {
		idealSet[node] = true
	}
	liveSet := make(map[string]bool, len(live))
	for _, node := range live {
		liveSet[node] = true
	}
	for _, node := range ideal {
		if !liveSet[node] {
			failed = append(failed, node)
		}
	}
	for _, node := range live {
		if !idealSet[node] {
			substitutes = append(substitutes, node)
		}
	}
	return live, failed, substitutes
}

func (r *Ring) walk(key string, n int, unhealthy map[string]bool) []string {
	if len(r.sorted) == 0 {
		return nil
	}
	pos := r.hash(key)
	idx := r.search(pos)

	seen := make(map[string]bool)
	nodes := make([]string, 0, n)
	for i := 0; i < len(r.sorted) && len(nodes) < n; i++ {
		vpos := r.sorted[(idx+i)%len(r.sorted)]
		nodeID := r.points[vpos]
		if seen[nodeID] {
			continue
		}
		seen[nodeID] = true
		if unhealthy != nil && unhealthy[nodeID] {
			continue
		}
		nodes = append(nodes, nodeID)
	}
	return nodes
}

// Nodes returns all distinct physical node IDs, sorted.
func (r *Ring) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// NodeCount reports how many physical nodes are in the ring.
func (r *Ring) NodeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Has reports whether nodeID is currently a ring member.
func (r *Ring) Has(nodeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodes[nodeID]
}

func (r *Ring) hash(s string) uint32 {
	h := sha256.Sum256([]byte(s))
	return binary.BigEndian.Uint32(h[:4])
}

func (r *Ring) search(pos uint32) int {
	idx := sort.Search(len(r.sorted), func(i int) bool {
		return r.sorted[i] >= pos
	})
	if idx == len(r.sorted) {
		idx = 0
	}
	return idx
}

func (r *Ring) rebuild() {
	sorted := make([]uint32, 0, len(r.points))
	for pos := range r.points {
		sorted = append(sorted, pos)
	}
	slices.Sort(sorted)
	r.sorted = sorted
}

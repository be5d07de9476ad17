// Package crdt implements the conflict-free replicated data types that
// back every shopping list: a grow-only counter, a positive-negative
// counter built from two of those, and a map from item name to
// PN-counter. Every operation returns a new value — nothing here is
// mutated in place — so callers never need a lock around a CRDT value
// itself, only around whatever slot holds the current version.
package crdt

import "maps"

// ReplicaID identifies the client (or node) on whose behalf a counter
// entry was incremented. It is opaque: only used for hashing and
// equality, never parsed.
type ReplicaID = string

// ClockRelation is the result of comparing two causal clocks.
type ClockRelation int

const (
	Equal ClockRelation = iota
	Before
	After
	Concurrent
)

// Clock is a per-replica logical tick count, bumped once per operation
// on that replica. It lets merge tell which of two counter states was
// derived from the other versus genuinely diverged.
type Clock map[ReplicaID]uint64

func (c Clock) clone() Clock {
	out := make(Clock, len(c))
	maps.Copy(out, c)
	return out
}

// compare reports how c relates to other: c dominates every entry of
// other (After), other dominates every entry of c (Before), they are
// identical (Equal), or each is ahead of the other on at least one
// entry (Concurrent).
func (c Clock) compare(other Clock) ClockRelation {
	cAhead, otherAhead := false, false
	for replica, tick := range c {
		switch o := other[replica]; {
		case tick > o:
			cAhead = true
		case tick < o:
			otherAhead = true
		}
	}
	for replica, tick := range other {
		if _, ok := c[replica]; !ok && tick > 0 {
			otherAhead = true
		}
	}
	switch {
	case !cAhead && !otherAhead:
		return Equal
	case cAhead && !otherAhead:
		return After
	case !cAhead && otherAhead:
		return Before
	default:
		return Concurrent
	}
}

func mergeClocks(a, b Clock) Clock {
	merged := make(Clock, len(a)+len(b))
	maps.Copy(merged, a)
	for replica, tick := range b {
		if tick > merged[replica] {
			merged[replica] = tick
		}
	}
	return merged
}

// GCounter is a grow-only counter: a per-replica non-negative tally plus
// the causal clock used to resolve merges. Value is the sum of every
// replica's tally; it only ever increases under inc or merge.
type GCounter struct {
	counts Clock
	clock  Clock
}

// ZeroGCounter returns the identity element for merge.
func ZeroGCounter() GCounter {
	return GCounter{counts: Clock{}, clock: Clock{}}
}

// Inc returns a new GCounter with replica's tally increased by delta and
// replica's clock tick bumped by one. delta must be non-negative.
func (g GCounter) Inc(replica ReplicaID, delta uint64) GCounter {
	counts := g.counts.clone()
	counts[replica] += delta

	clock := g.clock.clone()
	clock[replica]++

	return GCounter{counts: counts, clock: clock}
}

// Value is the sum of all replica tallies.
func (g GCounter) Value() uint64 {
	var total uint64
	for _, v := range g.counts {
		total += v
	}
	return total
}

// Merge combines g with other per spec: a dominant clock's counters win
// outright; concurrent clocks take the per-replica max of both the
// clock and the counter map.
func (g GCounter) Merge(other GCounter) GCounter {
	switch g.clock.compare(other.clock) {
	case Before:
		return GCounter{counts: other.counts.clone(), clock: other.clock.clone()}
	case After, Equal:
		return GCounter{counts: g.counts.clone(), clock: g.clock.clone()}
	default: // Concurrent
		mergedClock := mergeClocks(g.clock, other.clock)
		mergedCounts := make(Clock, len(mergedClock))
		for replica := range mergedClock {
			a, b := g.counts[replica], other.counts[replica]
			if a > b {
				mergedCounts[replica] = a
			} else {
				mergedCounts[replica] = b
			}
		}
		return GCounter{counts: mergedCounts, clock: mergedClock}
	}
}

// gcounterWire is the canonical JSON shape of a GCounter: sorted-key
// maps so two semantically equal counters serialize byte-identically.
type gcounterWire struct {
	Counts map[string]uint64 `json:"counts"`
	Clock  map[string]uint64 `json:"clock"`
}

func (g GCounter) toWire() gcounterWire {
	counts := make(map[string]uint64, len(g.counts))
	maps.Copy(counts, g.counts)
	clock := make(map[string]uint64, len(g.clock))
	maps.Copy(clock, g.clock)
	return gcounterWire{Counts: counts, Clock: clock}
}

func gcounterFromWire(w gcounterWire) GCounter {
	counts := Clock(w.Counts)
	clock := Clock(w.Clock)
	if counts == nil {
		counts = Clock{}
	}
	if clock == nil {
		clock = Clock{}
	}
	return GCounter{counts: counts, clock: clock}
}

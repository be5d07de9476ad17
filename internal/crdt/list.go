package crdt

import (
	"encoding/json"
	"maps"
	"slices"
)

// List is the shopping-list CRDT: a mapping from item name to
// PN-counter. A missing key is equivalent to PNCounter.zero, so Value
// never distinguishes "never added" from "added and fully removed".
type List struct {
	counters map[string]PNCounter
}

// ZeroList returns the empty shopping-list CRDT.
func ZeroList() List {
	return List{counters: map[string]PNCounter{}}
}

func (l List) counterFor(item string) PNCounter {
	if c, ok := l.counters[item]; ok {
		return c
	}
	return ZeroPNCounter()
}

// Inc increases item's quantity by delta under replica's identity.
// item must be non-empty; delta is not validated here, and a zero
// delta still bumps replica's clock tick.
func (l List) Inc(item string, replica ReplicaID, delta uint64) List {
	next := maps.Clone(l.counters)
	next[item] = l.counterFor(item).Inc(replica, delta)
	return List{counters: next}
}

// Dec decreases item's quantity by delta under replica's identity.
func (l List) Dec(item string, replica ReplicaID, delta uint64) List {
	next := maps.Clone(l.counters)
	next[item] = l.counterFor(item).Dec(replica, delta)
	return List{counters: next}
}

// Delete soft-deletes item by decrementing it by its own current value
// under replica's identity. The key is never removed from the map —
// it now carries a PN-counter whose value floors at zero — which is
// what lets a concurrent increment from another replica still converge
// (spec.md §8 scenario S2).
func (l List) Delete(item string, replica ReplicaID) List {
	return l.Dec(item, replica, l.counterFor(item).Value())
}

// Value returns item's current quantity.
func (l List) Value(item string) uint64 {
	return l.counterFor(item).Value()
}

// Items returns the set of item names the CRDT has ever seen, sorted,
// regardless of whether their current value is zero.
func (l List) Items() []string {
	items := make([]string, 0, len(l.counters))
	for item := range l.counters {
		items = append(items, item)
	}
	slices.Sort(items)
	return items
}

// Merge merges per-key PN-counters over the union of both lists' keys.
func (l List) Merge(other List) List {
	merged := make(map[string]PNCounter, len(l.counters)+len(other.counters))
	for item, counter := range l.counters {
		merged[item] = counter
	}
	for item, counter := range other.counters {
		if existing, ok := merged[item]; ok {
			merged[item] = existing.Merge(counter)
		} else {
			merged[item] = counter
		}
	}
	return List{counters: merged}
}

func (l List) MarshalJSON() ([]byte, error) {
	counters := l.counters
	if counters == nil {
		counters = map[string]PNCounter{}
	}
	return json.Marshal(counters)
}

func (l *List) UnmarshalJSON(data []byte) error {
	var counters map[string]PNCounter
	if err := json.Unmarshal(data, &counters); err != nil {
		return err
	}
	if counters == nil {
		counters = map[string]PNCounter{}
	}
	l.counters = counters
	return nil
}

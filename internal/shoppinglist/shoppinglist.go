// Package shoppinglist wraps the shopping-list CRDT in a named,
// identified entity, the way internal/store wraps a raw value with
// metadata in the original internal/store package.
package shoppinglist

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"shopsync/internal/crdt"
)

// List is a named shopping list. Name is set once, at creation, from
// the client's perspective — there is no CRDT for it, so two Lists
// sharing an ID are only mergeable if their names already agree (the
// caller's responsibility, same as the Python original's ShoppingList).
type List struct {
	ID    uuid.UUID
	Name  string
	Items crdt.List
}

// New creates an empty list with a fresh ID.
func New(name string) List {
	return List{ID: uuid.New(), Name: name, Items: crdt.ZeroList()}
}

// AddItem adds a brand-new item to the list under replica's identity.
// It refuses to add an item that already exists — use ChangeQuantity
// to change an existing item.
func (l List) AddItem(item string, quantity uint64, replica string) (List, error) {
	if item == "" {
		return l, fmt.Errorf("shoppinglist: item name must not be empty")
	}
	if l.Items.Value(item) > 0 || itemKnown(l.Items, item) {
		return l, fmt.Errorf("shoppinglist: item %q already exists", item)
	}
	l.Items = l.Items.Inc(item, replica, quantity)
	return l, nil
}

func itemKnown(items crdt.List, item string) bool {
	for _, known := range items.Items() {
		if known == item {
			return true
		}
	}
	return false
}

// RemoveItem soft-deletes item (decrement by its current value).
func (l List) RemoveItem(item string, replica string) List {
	l.Items = l.Items.Delete(item, replica)
	return l
}

// ChangeQuantity applies a signed delta to item's quantity: positive
// deltas increment, negative deltas decrement by their absolute value.
func (l List) ChangeQuantity(item string, delta int64, replica string) (List, error) {
	if !itemKnown(l.Items, item) {
		return l, fmt.Errorf("shoppinglist: item %q does not exist", item)
	}
	switch {
	case delta > 0:
		l.Items = l.Items.Inc(item, replica, uint64(delta))
	case delta < 0:
		l.Items = l.Items.Dec(item, replica, uint64(-delta))
	}
	return l, nil
}

// Merge merges the CRDT state of two Lists sharing the same ID. The
// caller is responsible for the two agreeing on Name; Merge keeps its
// own receiver's name.
func (l List) Merge(other List) List {
	return List{ID: l.ID, Name: l.Name, Items: l.Items.Merge(other.Items)}
}

// wireList is the JSON shape described in spec.md §6: {id, name, items}.
type wireList struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Items crdt.List `json:"items"`
}

func (l List) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireList{ID: l.ID, Name: l.Name, Items: l.Items})
}

func (l *List) UnmarshalJSON(data []byte) error {
	var w wireList
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	l.ID, l.Name, l.Items = w.ID, w.Name, w.Items
	return nil
}

// Snapshot is a flattened, read-only view of a list suitable for
// returning to clients: {item -> quantity}.
type Snapshot struct {
	ID    uuid.UUID         `json:"id"`
	Name  string            `json:"name"`
	Items map[string]uint64 `json:"items"`
}

// ToSnapshot flattens the CRDT into plain quantities.
func (l List) ToSnapshot() Snapshot {
	items := make(map[string]uint64)
	for _, item := range l.Items.Items() {
		items[item] = l.Items.Value(item)
	}
	return Snapshot{ID: l.ID, Name: l.Name, Items: items}
}

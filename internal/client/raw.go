package client

import (
	"context"

	"github.com/google/uuid"

	"shopsync/internal/shoppinglist"
)

// Snapshot fetches the list identified by id and flattens it to plain
// item/quantity pairs, the convenience shape shopctl prints — the same
// "typed wrapper around the raw call" role GetRaw originally played
// for endpoints that didn't fit the main typed API.
func (c *Client) Snapshot(ctx context.Context, id uuid.UUID) (shoppinglist.Snapshot, error) {
	list, err := c.Get(ctx, id)
	if err != nil {
		return shoppinglist.Snapshot{}, err
	}
	return list.ToSnapshot(), nil
}

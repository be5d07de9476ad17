// Package client provides a Go SDK for talking to a ShopSync router,
// generalizing the original HTTP-wrapping client.New (hide HTTP
// details and JSON, expose a clean Go API) to spec.md §4.6's
// client-adapter contract: a synchronous single-shot request per
// call, with the client responsible for retrying against the other
// router in the BStar pair on timeout or failure.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shopsync/internal/shoppinglist"
	"shopsync/internal/transport"
	"shopsync/internal/wire"
)

// Client is bound to one or more router addresses, tried in order on
// every call, and is safe for concurrent use.
type Client struct {
	routers []string
	sender  transport.Sender
}

// New builds a Client sending requests over sender. At least one
// router address is required.
func New(sender transport.Sender, routers ...string) (*Client, error) {
	if len(routers) == 0 {
		return nil, fmt.Errorf("client: at least one router address is required")
	}
	return &Client{routers: routers, sender: sender}, nil
}

// NewHTTP builds a Client backed by a transport.HTTPSender with the
// given per-request timeout.
func NewHTTP(timeout time.Duration, routers ...string) (*Client, error) {
	return New(transport.NewHTTPSender(timeout), routers...)
}

// Get fetches and merges the shopping list identified by id. A list
// no router has ever seen is reported as an error, per spec.md §4.3's
// GET semantics.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (shoppinglist.List, error) {
	resp, err := c.dispatch(ctx, wire.BuildGet(id))
	if err != nil {
		return shoppinglist.List{}, err
	}
	return decodeList(resp.Value)
}

// Put persists list, replacing any list sharing its ID after a
// storage-side CRDT merge.
func (c *Client) Put(ctx context.Context, list shoppinglist.List) error {
	encoded, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("client: encode list: %w", err)
	}
	_, err = c.dispatch(ctx, wire.Envelope{Type: wire.Put, ListID: list.ID, Value: string(encoded)})
	return err
}

// Delete removes the list identified by id.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := c.dispatch(ctx, wire.Envelope{Type: wire.Delete, ListID: id})
	return err
}

// dispatch sends env to the first router that answers without a
// transport error, trying each configured router in turn — the retry
// policy spec.md §4.6 leaves to the client.
func (c *Client) dispatch(ctx context.Context, env wire.Envelope) (wire.Envelope, error) {
	var lastErr error
	for _, router := range c.routers {
		resp, err := c.sender.Send(ctx, router, env)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Error != "" {
			return wire.Envelope{}, fmt.Errorf("client: %s", resp.Error)
		}
		return resp, nil
	}
	return wire.Envelope{}, fmt.Errorf("client: no router available: %w", lastErr)
}

func decodeList(value any) (shoppinglist.List, error) {
	raw, ok := value.(string)
	if !ok {
		return shoppinglist.List{}, fmt.Errorf("client: unexpected GET response shape %T", value)
	}
	var list shoppinglist.List
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return shoppinglist.List{}, fmt.Errorf("client: decode list: %w", err)
	}
	return list, nil
}

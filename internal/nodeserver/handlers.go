package nodeserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopsync/internal/shoppinglist"
	"shopsync/internal/transport"
	"shopsync/internal/wire"
)

// Handler adapts a Node to Gin, exposing the single tagged-dispatch
// endpoint spec.md §6 calls for: every peer message, whatever its
// kind, is a POST of a JSON wire.Envelope to the same path, routed by
// its Type field. This generalizes the per-route
// internal/api.Handler into the corpus's "one socket, tagged dispatch"
// shape used by the original ZeroMQ ROUTER.
type Handler struct {
	node *Node
}

// NewHandler builds a Handler around node.
func NewHandler(node *Node) *Handler {
	return &Handler{node: node}
}

// Register mounts the dispatch endpoint on r.
func (h *Handler) Register(r *gin.Engine) {
	r.POST(transport.DispatchPath, h.Dispatch)
}

// Dispatch decodes the envelope and switches on its Type, the node
// side of the tagged message set spec.md §6 defines. Malformed bodies
// are logged and answered with a bare 400 status and no envelope.
func (h *Handler) Dispatch(c *gin.Context) {
	var env wire.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.node.logger.Warn().Err(err).Msg("discarding malformed envelope")
		c.Status(http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, h.handle(c.Request.Context(), env))
}

func (h *Handler) handle(ctx context.Context, env wire.Envelope) wire.Envelope {
	n := h.node

	switch env.Type {
	case wire.Get:
		return n.handleGet(ctx, env)
	case wire.Put:
		return n.handlePut(env)
	case wire.Delete:
		return n.handleDelete(env)

	case wire.CoordinateGet:
		return n.CoordinateGet(ctx, env)
	case wire.CoordinatePut:
		return n.handleCoordinatePut(ctx, env)
	case wire.CoordinateDelete:
		return n.CoordinateDelete(ctx, env)

	case wire.WriteHint:
		return n.handleWriteHint(env)
	case wire.DeleteHint:
		return n.handleDeleteHint(env)

	case wire.PutHandedOff:
		return n.handlePutHandedOff(env)
	case wire.DeleteHandedOff:
		return n.handleDeleteHandedOff(env)

	case wire.HealthCheck:
		return wire.Envelope{Type: wire.HealthCheckResponse, NodeID: n.address}
	case wire.Heartbeat:
		n.MarkHealthy(env.NodeID, time.Now())
		return wire.Envelope{Type: wire.HeartbeatResponse, NodeID: n.address}

	case wire.AddNode:
		n.ring.AddNode(env.Address)
		return wire.Envelope{Type: wire.AddNode, NodeID: n.address}
	case wire.RemoveNode:
		n.ring.RemoveNode(env.Address)
		return wire.Envelope{Type: wire.RemoveNode, NodeID: n.address}

	default:
		return wire.Error(wire.GetResponse, "unsupported message type: "+env.Type.String())
	}
}

// handleGet serves replica-level direct GET traffic: a coordinator
// asking this node for its locally merged copy of a key. When this
// node has no copy but is still one of the key's ideal replicas
// (it fell behind, or just took over the key), it opportunistically
// read-repairs from another ideal replica before answering absent.
func (n *Node) handleGet(ctx context.Context, env wire.Envelope) wire.Envelope {
	list, ok := n.readData(env.ListID.String())
	if !ok {
		list, ok = n.repairGet(ctx, env.ListID.String())
	}
	if !ok {
		return wire.Envelope{Type: wire.GetResponse, ListID: env.ListID, QuorumID: env.QuorumID, Address: n.address, Error: "absent"}
	}
	raw, err := list.MarshalJSON()
	if err != nil {
		return wire.Envelope{Type: wire.GetResponse, ListID: env.ListID, QuorumID: env.QuorumID, Address: n.address, Error: err.Error()}
	}
	return wire.Envelope{Type: wire.GetResponse, ListID: env.ListID, QuorumID: env.QuorumID, Address: n.address, Value: string(raw)}
}

// handlePut serves replica-level direct PUT traffic: another node's
// coordinator pushing the full merged list state this node should
// hold for the key.
func (n *Node) handlePut(env wire.Envelope) wire.Envelope {
	list, err := decodeList(env.Value)
	if err != nil {
		return wire.Envelope{Type: wire.PutResponse, ListID: env.ListID, QuorumID: env.QuorumID, Address: n.address, Error: err.Error()}
	}
	n.writeData(list)
	return wire.Envelope{Type: wire.PutResponse, ListID: env.ListID, QuorumID: env.QuorumID, Address: n.address, Value: true}
}

// handleDelete serves replica-level direct DELETE traffic.
func (n *Node) handleDelete(env wire.Envelope) wire.Envelope {
	present := n.deleteData(env.ListID.String())
	if !present {
		return wire.Envelope{Type: wire.DeleteResponse, ListID: env.ListID, QuorumID: env.QuorumID, Address: n.address, Error: "absent"}
	}
	return wire.Envelope{Type: wire.DeleteResponse, ListID: env.ListID, QuorumID: env.QuorumID, Address: n.address, Value: true}
}

// handleCoordinatePut decodes the client-supplied ShoppingList state
// carried in env.Value — per spec.md §6, "the value for PUT is a
// JSON-serialized ShoppingList" — merges it with whatever this node
// already holds, and drives it through the write quorum.
func (n *Node) handleCoordinatePut(ctx context.Context, env wire.Envelope) wire.Envelope {
	incoming, err := decodeList(env.Value)
	if err != nil {
		return wire.Envelope{Type: wire.CoordinatePutResponse, QuorumID: env.QuorumID, ListID: env.ListID, Error: err.Error()}
	}
	if existing, ok := n.readData(env.ListID.String()); ok {
		incoming = existing.Merge(incoming)
	}
	return n.CoordinatePut(ctx, env, incoming)
}

// handleWriteHint is the substitute side of hinted handoff: it stores
// the carried state locally and records the obligation to forward it
// to env.Address (the original, currently-unreachable owner) once a
// future FlushHints probe finds that peer healthy again.
func (n *Node) handleWriteHint(env wire.Envelope) wire.Envelope {
	list, err := decodeList(env.Value)
	if err != nil {
		return wire.Envelope{Type: wire.WriteHint, ListID: env.ListID, Error: err.Error()}
	}
	n.writeData(list)
	n.mu.Lock()
	if n.writeHints[env.Address] == nil {
		n.writeHints[env.Address] = make(map[string]bool)
	}
	n.writeHints[env.Address][env.ListID.String()] = true
	n.mu.Unlock()
	return wire.Envelope{Type: wire.WriteHint, ListID: env.ListID, Value: true}
}

// handleDeleteHint is the substitute side of a deferred delete: it
// carries no payload, only the obligation to propagate the delete to
// env.Address once that peer is healthy again.
func (n *Node) handleDeleteHint(env wire.Envelope) wire.Envelope {
	n.mu.Lock()
	if n.deleteHints[env.Address] == nil {
		n.deleteHints[env.Address] = make(map[string]bool)
	}
	n.deleteHints[env.Address][env.ListID.String()] = true
	n.mu.Unlock()
	return wire.Envelope{Type: wire.DeleteHint, ListID: env.ListID, Value: true}
}

// handlePutHandedOff applies an incoming hinted-handoff write.
func (n *Node) handlePutHandedOff(env wire.Envelope) wire.Envelope {
	raw, err := valueBytes(env.Value)
	if err != nil {
		return wire.Envelope{Type: wire.PutHandedOff, ListID: env.ListID, Error: err.Error()}
	}
	if err := n.ApplyHandedOffPut(raw); err != nil {
		return wire.Envelope{Type: wire.PutHandedOff, ListID: env.ListID, Error: err.Error()}
	}
	return wire.Envelope{Type: wire.PutHandedOff, ListID: env.ListID, Value: true}
}

// handleDeleteHandedOff applies an incoming hinted-handoff delete. The
// affected list id travels in Item, mirroring BuildHint's reuse of the
// PUT/DELETE envelope shape for handoff traffic.
func (n *Node) handleDeleteHandedOff(env wire.Envelope) wire.Envelope {
	listID := env.Item
	if listID == "" {
		listID = env.ListID.String()
	}
	n.ApplyHandedOffDelete(listID)
	return wire.Envelope{Type: wire.DeleteHandedOff, Item: listID, Value: true}
}

// decodeList extracts a ShoppingList from an envelope's Value field,
// which travels as a plain JSON string (see the encoding note in
// internal/wire).
func decodeList(value any) (shoppinglist.List, error) {
	raw, err := valueBytes(value)
	if err != nil {
		return shoppinglist.List{}, err
	}
	var list shoppinglist.List
	if err := list.UnmarshalJSON(raw); err != nil {
		return shoppinglist.List{}, err
	}
	return list, nil
}

func valueBytes(value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errNotAString
	}
	return []byte(s), nil
}

var errNotAString = errValueType("wire: envelope value is not a string")

type errValueType string

func (e errValueType) Error() string { return string(e) }

// Package wire defines the tagged message envelope exchanged between
// clients, routers and storage nodes, generalizing the original api.Request/Response pair into the full message set spec.md
// describes: client operations, node-to-node coordination, cluster
// membership, health checks and hinted handoff.
package wire

import "github.com/google/uuid"

// MessageType tags the payload carried by an Envelope, mirroring the
// MessageType enum of the original Python implementation, extended
// with the coordination and hinted-handoff messages the CRDT-backed,
// multi-node design needs.
type MessageType int

const (
	Get MessageType = iota + 1
	Put
	Delete
	GetResponse
	PutResponse
	DeleteResponse

	Register
	RegisterResponse

	AddNode
	RemoveNode

	Heartbeat
	HeartbeatResponse

	HealthCheck
	HealthCheckResponse

	CoordinateGet
	CoordinatePut
	CoordinateDelete
	CoordinateGetResponse
	CoordinatePutResponse
	CoordinateDeleteResponse

	WriteHint
	DeleteHint
	PutHandedOff
	DeleteHandedOff
)

func (t MessageType) String() string {
	switch t {
	case Get:
		return "GET"
	case Put:
		return "PUT"
	case Delete:
		return "DELETE"
	case GetResponse:
		return "GET_RESPONSE"
	case PutResponse:
		return "PUT_RESPONSE"
	case DeleteResponse:
		return "DELETE_RESPONSE"
	case Register:
		return "REGISTER"
	case RegisterResponse:
		return "REGISTER_RESPONSE"
	case AddNode:
		return "ADD_NODE"
	case RemoveNode:
		return "REMOVE_NODE"
	case Heartbeat:
		return "HEARTBEAT"
	case HeartbeatResponse:
		return "HEARTBEAT_RESPONSE"
	case HealthCheck:
		return "HEALTH_CHECK"
	case HealthCheckResponse:
		return "HEALTH_CHECK_RESPONSE"
	case CoordinateGet:
		return "COORDINATE_GET"
	case CoordinatePut:
		return "COORDINATE_PUT"
	case CoordinateDelete:
		return "COORDINATE_DELETE"
	case CoordinateGetResponse:
		return "COORDINATE_GET_RESPONSE"
	case CoordinatePutResponse:
		return "COORDINATE_PUT_RESPONSE"
	case CoordinateDeleteResponse:
		return "COORDINATE_DELETE_RESPONSE"
	case WriteHint:
		return "WRITE_HINT"
	case DeleteHint:
		return "DELETE_HINT"
	case PutHandedOff:
		return "PUT_HANDED_OFF"
	case DeleteHandedOff:
		return "DELETE_HANDED_OFF"
	default:
		return "UNKNOWN"
	}
}

// QuorumID identifies an in-flight quorum operation across the
// coordinator and the replicas it fans out to. The zero value, an
// empty string, is the "repair" sentinel: a read-repair or
// hinted-handoff write carries no quorum of its own to report back
// into, so it is tagged with NoQuorum instead of a fresh UUID.
type QuorumID string

// NoQuorum is the sentinel QuorumID used for messages that are not
// part of a client-initiated quorum operation (repairs, handed-off
// writes).
const NoQuorum QuorumID = ""

// NewQuorumID mints a fresh, random quorum identifier.
func NewQuorumID() QuorumID {
	return QuorumID(uuid.New().String())
}

// IsRepair reports whether id is the NoQuorum sentinel.
func (id QuorumID) IsRepair() bool {
	return id == NoQuorum
}

// Envelope is the single message shape that crosses the wire between
// routers, nodes and clients. Not every field is populated for every
// Type; see the per-type builders in builders.go for the fields each
// one uses.
type Envelope struct {
	Type    MessageType `json:"type"`
	ListID  uuid.UUID   `json:"list_id,omitempty"`
	Value   any         `json:"value,omitempty"`
	Error   string      `json:"error,omitempty"`
	Address string      `json:"address,omitempty"`
	NodeID  string      `json:"node_id,omitempty"`

	QuorumID QuorumID `json:"quorum_id,omitempty"`

	// Item/Delta/Replica carry a single CRDT operation in the
	// envelopes BuildPut and BuildDelete build; nodes and routers do
	// not apply them. Item is also reused for a BStar state name in
	// HEARTBEAT and for the list id in DELETE_HANDED_OFF.
	Item    string `json:"item,omitempty"`
	Delta   int64  `json:"delta,omitempty"`
	Replica string `json:"replica,omitempty"`
}

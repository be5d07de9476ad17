package wire

import "github.com/google/uuid"

// BuildGet builds a client-facing GET request for listID.
func BuildGet(listID uuid.UUID) Envelope {
	return Envelope{Type: Get, ListID: listID}
}

// BuildPut builds a PUT envelope for listID carrying a single
// item/delta/replica CRDT operation. Nodes do not apply these fields:
// a PUT they act on carries the full serialized list in Value.
func BuildPut(listID uuid.UUID, item string, delta int64, replica string) Envelope {
	return Envelope{Type: Put, ListID: listID, Item: item, Delta: delta, Replica: replica}
}

// BuildDelete builds a DELETE envelope for listID carrying item and
// replica. Nodes act on ListID alone and delete the whole list; the
// item is not removed on its own.
func BuildDelete(listID uuid.UUID, item string, replica string) Envelope {
	return Envelope{Type: Delete, ListID: listID, Item: item, Replica: replica}
}

// BuildCoordinate wraps a client request as a router-to-node
// coordination message, attaching the quorum it belongs to.
func BuildCoordinate(req Envelope, quorum QuorumID) Envelope {
	coordinated := req
	coordinated.QuorumID = quorum
	switch req.Type {
	case Get:
		coordinated.Type = CoordinateGet
	case Put:
		coordinated.Type = CoordinatePut
	case Delete:
		coordinated.Type = CoordinateDelete
	}
	return coordinated
}

// BuildHint wraps a write or delete as a hinted-handoff message
// destined for a temporary, non-owning node.
func BuildHint(op Envelope) Envelope {
	hinted := op
	switch op.Type {
	case Put, CoordinatePut:
		hinted.Type = WriteHint
	case Delete, CoordinateDelete:
		hinted.Type = DeleteHint
	}
	hinted.QuorumID = NoQuorum
	return hinted
}

// BuildRegister builds a node's REGISTER announcement to its router.
func BuildRegister(nodeID, address string) Envelope {
	return Envelope{Type: Register, NodeID: nodeID, Address: address}
}

// BuildHeartbeat builds a liveness ping.
func BuildHeartbeat(nodeID string) Envelope {
	return Envelope{Type: Heartbeat, NodeID: nodeID}
}

// Error turns any response-shaped envelope into an error response of
// the same type, carrying msg.
func Error(responseType MessageType, msg string) Envelope {
	return Envelope{Type: responseType, Error: msg}
}

package router

import (
	"context"

	"shopsync/internal/wire"
)

// Forward elects a coordinator for env's key and relays the request
// to it, translating the coordinator's quorum response into the
// client-facing response type — the router's "pick a coordinator,
// forward it, relay the response" responsibility from spec.md §4.4.
//
// spec.md §3 describes a router-side forwarded-quorums map keyed by
// quorum-id, recording the request kind and client address so an
// async COORDINATE_*_RESPONSE can be matched back to its caller. This
// implementation's transport is a synchronous request/response HTTP
// call (see internal/transport), so that bookkeeping collapses to
// this call's own stack frame: the HTTP response writer the Gin
// handler holds already IS the tracked client address, and the
// response arrives as Forward's own return value rather than a
// separately-routed push. See DESIGN.md.
func (r *Router) Forward(ctx context.Context, env wire.Envelope) wire.Envelope {
	key := env.ListID.String()
	coordinator := r.ElectCoordinator(ctx, key)
	if coordinator == "" {
		return wire.Error(responseTypeFor(env.Type), "no coordinator available")
	}

	coordinated := wire.BuildCoordinate(env, wire.NewQuorumID())
	resp, err := r.sender.Send(ctx, coordinator, coordinated)
	if err != nil {
		r.logger.Warn().Err(err).Str("coordinator", coordinator).Str("list_id", key).Msg("coordinator request failed")
		return wire.Error(responseTypeFor(env.Type), "coordinator unreachable")
	}
	r.markActive(coordinator, true)
	return wire.Envelope{Type: responseTypeFor(env.Type), ListID: env.ListID, Value: resp.Value, Error: resp.Error}
}

func responseTypeFor(t wire.MessageType) wire.MessageType {
	switch t {
	case wire.Get:
		return wire.GetResponse
	case wire.Put:
		return wire.PutResponse
	case wire.Delete:
		return wire.DeleteResponse
	default:
		return wire.GetResponse
	}
}

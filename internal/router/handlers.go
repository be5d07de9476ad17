package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopsync/internal/bstar"
	"shopsync/internal/transport"
	"shopsync/internal/wire"
)

// Handler adapts a Router to Gin's single tagged-dispatch endpoint,
// the same "one socket, switch on Type" shape internal/nodeserver
// uses for its own traffic — client GET/PUT/DELETE, a node's
// REGISTER, and the BStar peer's heartbeat all arrive on this path.
type Handler struct {
	router *Router
}

// NewHandler builds a Handler around router.
func NewHandler(router *Router) *Handler {
	return &Handler{router: router}
}

// Register mounts the dispatch endpoint on r.
func (h *Handler) Register(r *gin.Engine) {
	r.POST(transport.DispatchPath, h.Dispatch)
}

// Dispatch decodes the envelope and switches on its Type. Malformed
// bodies are logged and answered with a bare 400 status and no
// envelope.
func (h *Handler) Dispatch(c *gin.Context) {
	var env wire.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.router.logger.Warn().Err(err).Msg("discarding malformed envelope")
		c.Status(http.StatusBadRequest)
		return
	}

	switch env.Type {
	case wire.Get, wire.Put, wire.Delete:
		h.dispatchClientRequest(c, env)
	case wire.Register:
		c.JSON(http.StatusOK, h.router.handleRegister(c.Request.Context(), env))
	case wire.Heartbeat:
		c.JSON(http.StatusOK, h.router.handleHeartbeat(env))
	case wire.HealthCheck:
		c.JSON(http.StatusOK, wire.Envelope{Type: wire.HealthCheckResponse, NodeID: h.router.cfg.ID})
	default:
		c.JSON(http.StatusOK, wire.Error(wire.GetResponse, "unsupported message type: "+env.Type.String()))
	}
}

// dispatchClientRequest runs the BStar admission check before
// forwarding: a router that is not ACTIVE (or PASSIVE with an expired
// peer) rejects client traffic. Per spec.md §4.5/§7, "rejected client
// requests get no response" so the client's own timeout falls through
// to retrying the other router — over HTTP that means closing the
// connection without writing a status line, not replying with an
// error status.
func (h *Handler) dispatchClientRequest(c *gin.Context, env wire.Envelope) {
	if err := h.router.fsm.ApplyClientRequest(time.Now()); err != nil {
		h.router.logger.Warn().Err(err).Str("state", h.router.fsm.State().String()).Msg("rejecting client request")
		rejectSilently(c)
		return
	}
	c.JSON(http.StatusOK, h.router.Forward(c.Request.Context(), env))
}

func rejectSilently(c *gin.Context) {
	hijacker, ok := c.Writer.(http.Hijacker)
	if !ok {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	conn, _, err := hijacker.Hijack()
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	conn.Close()
}

// handleRegister is the node-facing REGISTER handler: it admits the
// node into the ring and replies with the previously known node
// addresses so the new node can build its own ring copy, per
// spec.md §4.4.
func (r *Router) handleRegister(ctx context.Context, env wire.Envelope) wire.Envelope {
	previous := r.Register(ctx, env.Address)
	return wire.Envelope{Type: wire.RegisterResponse, NodeID: r.cfg.ID, Value: previous}
}

// handleHeartbeat answers a liveness ping. When it carries a BStar
// peer state in Item, the reported state is also fed into this
// router's own Exchange so the FSM advances on the push, not only on
// the outbound tick's response.
func (r *Router) handleHeartbeat(env wire.Envelope) wire.Envelope {
	if env.NodeID != "" {
		r.markActive(env.NodeID, true)
	}
	if r.exchange != nil && env.Item != "" {
		if state := bstar.ParseState(env.Item); state != 0 {
			r.exchange.ReceivePeerState(state, time.Now())
		}
	}
	return wire.Envelope{Type: wire.HeartbeatResponse, NodeID: r.cfg.ID, Item: r.fsm.State().String()}
}

// Package router implements the stateful front door of spec.md §4.4:
// the consistent hash ring storage nodes are assigned against,
// per-node liveness tracking, coordinator election, the BStar
// active/standby state machine, and request forwarding. It
// generalizes internal/cluster.Membership and
// internal/api.Handler into the single front-door process the
// original Python Router class (original_source/server.py)
// implements over ZeroMQ.
package router

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shopsync/internal/bstar"
	"shopsync/internal/config"
	"shopsync/internal/ring"
	"shopsync/internal/transport"
)

// nodeActivity mirrors one entry of the original Router.activity
// dict: when the node last answered anything, and an availability
// flag that is set true on registration and on every successful
// contact. Nothing sets the flag back to false or reads it.
type nodeActivity struct {
	lastSeen             time.Time
	immediatelyAvailable bool
}

// Router is the stateful front door for one side of a BStar pair. It
// is safe for concurrent use.
type Router struct {
	mu       sync.Mutex
	ring     *ring.Ring
	activity map[string]nodeActivity

	cfg      config.Router
	sender   transport.Sender
	logger   zerolog.Logger
	fsm      *bstar.FSM
	exchange *bstar.Exchange
}

// New builds a Router with an empty ring and activity table. primary
// selects the BStar FSM's starting state (PRIMARY or BACKUP).
func New(cfg config.Router, sender transport.Sender, logger zerolog.Logger, primary bool) *Router {
	return &Router{
		ring:     ring.New(cfg.VirtualNodes),
		activity: make(map[string]nodeActivity),
		cfg:      cfg,
		sender:   sender,
		logger:   logger,
		fsm:      bstar.New(primary),
	}
}

// FSM exposes the router's BStar state machine, for a bstar.Exchange
// to drive and for the admission check in Dispatch.
func (r *Router) FSM() *bstar.FSM { return r.fsm }

// SetExchange wires the BStar heartbeat exchange this router drives,
// so an incoming peer heartbeat (see handleHeartbeat) can feed the
// peer's reported state into the same Exchange that emits this
// router's own ticks.
func (r *Router) SetExchange(e *bstar.Exchange) { r.exchange = e }

// Nodes returns a snapshot of every node address currently known.
func (r *Router) Nodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.activity))
	for addr := range r.activity {
		out = append(out, addr)
	}
	return out
}

func (r *Router) markActive(address string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.activity[address]; !known {
		return
	}
	r.activity[address] = nodeActivity{lastSeen: time.Now(), immediatelyAvailable: available}
}

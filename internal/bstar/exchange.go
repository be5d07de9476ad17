package bstar

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"shopsync/internal/transport"
	"shopsync/internal/wire"
)

// Exchange drives the FSM's periodic peer heartbeat. The original
// Python router published its state over a ZeroMQ PUB/SUB pair every
// HEARTBEAT_BSTAR; no such pub/sub library exists anywhere in the
// retrieved corpus (see DESIGN.md), so this realizes the same
// periodic push over the same HTTP transport.Sender every other
// component uses, POSTing a wire.Heartbeat-tagged envelope carrying
// the sender's State in its Item field.
type Exchange struct {
	fsm    *FSM
	sender transport.Sender
	peer   string
	period time.Duration
	logger zerolog.Logger

	mu           sync.Mutex
	lastPeerSeen time.Time
}

// NewExchange builds an Exchange that pushes this router's state to
// peerAddress every period and advances fsm when the peer's state is
// learned, either from the peer's own push (ReceivePeerState, called by
// the router's heartbeat handler) or from the response to this
// struct's periodic push to the peer's dispatch endpoint.
func NewExchange(fsm *FSM, sender transport.Sender, peerAddress string, period time.Duration, logger zerolog.Logger) *Exchange {
	return &Exchange{fsm: fsm, sender: sender, peer: peerAddress, period: period, logger: logger}
}

// Run polls the peer every e.period until ctx is cancelled, feeding
// the peer's reported state into the FSM and refreshing peer expiry
// on every successful exchange.
func (e *Exchange) Run(ctx context.Context) {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Exchange) tick(ctx context.Context) {
	if e.peer == "" {
		return
	}
	self := wire.Envelope{Type: wire.Heartbeat, Item: e.fsm.State().String()}
	resp, err := e.sender.Send(ctx, e.peer, self)
	if err != nil {
		e.logger.Warn().Err(err).Str("peer", e.peer).Msg("bstar heartbeat exchange failed")
		return
	}
	e.ReceivePeerState(ParseState(resp.Item), time.Now())
}

// ReceivePeerState feeds a peer-reported state into the FSM, mapping
// it to the matching PEER_* event and refreshing peer expiry to
// now + 2*period as spec.md §4.5 requires.
func (e *Exchange) ReceivePeerState(peerState State, now time.Time) {
	e.mu.Lock()
	e.lastPeerSeen = now
	e.mu.Unlock()

	var event Event
	switch peerState {
	case StatePrimary:
		event = PeerPrimary
	case StateBackup:
		event = PeerBackup
	case StateActive:
		event = PeerActive
	case StatePassive:
		event = PeerPassive
	default:
		return
	}

	if err := e.fsm.ApplyPeerEvent(event, now); err != nil {
		e.logger.Error().Err(err).Str("peer_state", peerState.String()).Msg("bstar fatal transition")
		return
	}
	e.fsm.SetPeerExpiry(now.Add(2 * e.period))
}

// ParseState maps a wire-carried state name back to a State, or 0 if
// unrecognized.
func ParseState(s string) State {
	switch s {
	case "PRIMARY":
		return StatePrimary
	case "BACKUP":
		return StateBackup
	case "ACTIVE":
		return StateActive
	case "PASSIVE":
		return StatePassive
	default:
		return 0
	}
}

// Package bstar implements the Binary Star active/standby finite
// state machine that the two routers run to decide which of them
// accepts client traffic. It is a direct, idiomatic-Go port of the
// transition table in the retrieved Python original's bstar_utils.py
// (the ZeroMQ Guide's Binary Star pattern) — no other retrieved repo
// has an equivalent component, so this package follows spec.md §4.5
// and that table directly.
package bstar

import (
	"errors"
	"sync"
	"time"
)

// State is one of the four states a router can be in.
type State int

const (
	StatePrimary State = iota + 1
	StateBackup
	StateActive
	StatePassive
)

func (s State) String() string {
	switch s {
	case StatePrimary:
		return "PRIMARY"
	case StateBackup:
		return "BACKUP"
	case StateActive:
		return "ACTIVE"
	case StatePassive:
		return "PASSIVE"
	default:
		return "UNKNOWN"
	}
}

// Event is something that can move the FSM: a peer's reported state,
// or a client request arriving locally.
type Event int

const (
	PeerPrimary Event = iota + 1
	PeerBackup
	PeerActive
	PeerPassive
	ClientRequest
)

// ErrFatal is returned when the FSM detects an unrecoverable
// condition: two active routers, or two passive routers both trying
// to take over. The caller should abort the process, per spec.md
// §4.5/§8 testable property 6.
var ErrFatal = errors.New("bstar: fatal dual-master/dual-slave condition")

// ErrRejected is returned when a CLIENT_REQUEST event cannot be
// accepted in the FSM's current state — the caller should send no
// response and let the client's own retry-against-the-other-router
// logic take over.
var ErrRejected = errors.New("bstar: client request rejected in current state")

// FSM is a Binary Star state machine. Zero value is not usable; build
// one with New.
type FSM struct {
	mu         sync.Mutex
	state      State
	peerExpiry time.Time
}

// New creates an FSM starting as StatePrimary or StateBackup depending
// on primary.
func New(primary bool) *FSM {
	state := StateBackup
	if primary {
		state = StatePrimary
	}
	return &FSM{state: state}
}

// State returns the current state.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetPeerExpiry records when the peer's last state message is
// considered stale — last-received + 2*HEARTBEAT_BSTAR, per spec.md
// §4.5.
func (f *FSM) SetPeerExpiry(expiry time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peerExpiry = expiry
}

// ApplyPeerEvent advances the FSM on receipt of the peer's reported
// state. now is threaded in (rather than taken internally) so
// callers, and tests, control time precisely.
func (f *FSM) ApplyPeerEvent(event Event, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apply(event, now)
}

// ApplyClientRequest advances the FSM on receipt of a client request
// arriving at this router. Unlike peer events, CLIENT_REQUEST in
// StatePassive is conditionally accepted based on peer expiry:
// expired peer promotes self to ACTIVE and accepts; a live peer
// rejects (ErrRejected).
func (f *FSM) ApplyClientRequest(now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apply(ClientRequest, now)
}

// apply runs one transition-table lookup, matching run_fsm in
// bstar_utils.py exactly: StatePrimary and StateBackup both reject
// CLIENT_REQUEST outright (a non-active router receiving a client
// request directly is itself an error condition), and the PASSIVE +
// CLIENT_REQUEST case defers to peer expiry.
func (f *FSM) apply(event Event, now time.Time) error {
	switch f.state {
	case StatePrimary:
		switch event {
		case PeerBackup:
			f.state = StateActive
			return nil
		case PeerActive:
			f.state = StatePassive
			return nil
		case ClientRequest:
			return ErrRejected
		}
	case StateBackup:
		switch event {
		case PeerActive:
			f.state = StatePassive
			return nil
		case ClientRequest:
			return ErrRejected
		}
	case StateActive:
		if event == PeerActive {
			return ErrFatal
		}
	case StatePassive:
		switch event {
		case PeerPrimary, PeerBackup:
			f.state = StateActive
			return nil
		case PeerPassive:
			return ErrFatal
		case ClientRequest:
			if f.peerExpiry.IsZero() || now.After(f.peerExpiry) {
				f.state = StateActive
				return nil
			}
			return ErrRejected
		}
	}
	// No matching transition for this (state, event) pair: the
	// Python original silently ignores these (e.g. PRIMARY receiving
	// PEER_PRIMARY, or ACTIVE receiving PEER_BACKUP).
	return nil
}

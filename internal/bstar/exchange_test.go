package bstar

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceivePeerStateAdvancesFSMAndSetsExpiry(t *testing.T) {
	fsm := New(true)
	ex := NewExchange(fsm, nil, "http://backup", time.Second, zerolog.Nop())

	ex.ReceivePeerState(StateBackup, epoch)
	assert.Equal(t, StateActive, fsm.State())

	// A second primary that hears its peer is already ACTIVE goes
	// PASSIVE with peer expiry epoch + 2s: a client request before that
	// is rejected, one after it promotes.
	passive := New(true)
	ex2 := NewExchange(passive, nil, "http://backup", time.Second, zerolog.Nop())
	ex2.ReceivePeerState(StateActive, epoch)
	require.Equal(t, StatePassive, passive.State())

	err := passive.ApplyClientRequest(epoch.Add(time.Second))
	assert.ErrorIs(t, err, ErrRejected)

	require.NoError(t, passive.ApplyClientRequest(epoch.Add(3*time.Second)))
	assert.Equal(t, StateActive, passive.State())
}

func TestReceivePeerStateIgnoresUnknownState(t *testing.T) {
	fsm := New(true)
	ex := NewExchange(fsm, nil, "http://backup", time.Second, zerolog.Nop())

	ex.ReceivePeerState(State(0), epoch)
	assert.Equal(t, StatePrimary, fsm.State())
}

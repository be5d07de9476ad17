package bstar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(0, 0)

func TestPrimaryBecomesActiveWhenPeerBackupSeen(t *testing.T) {
	f := New(true)
	require.NoError(t, f.ApplyPeerEvent(PeerBackup, epoch))
	assert.Equal(t, StateActive, f.State())
}

func TestPrimaryBecomesPassiveWhenPeerAlreadyActive(t *testing.T) {
	f := New(true)
	require.NoError(t, f.ApplyPeerEvent(PeerActive, epoch))
	assert.Equal(t, StatePassive, f.State())
}

func TestBackupBecomesPassiveWhenPeerActive(t *testing.T) {
	f := New(false)
	require.NoError(t, f.ApplyPeerEvent(PeerActive, epoch))
	assert.Equal(t, StatePassive, f.State())
}

func TestBackupRejectsDirectClientRequest(t *testing.T) {
	f := New(false)
	err := f.ApplyClientRequest(epoch)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, StateBackup, f.State())
}

func TestTwoActiveRoutersIsFatal(t *testing.T) {
	f := New(true)
	require.NoError(t, f.ApplyPeerEvent(PeerBackup, epoch)) // now ACTIVE
	err := f.ApplyPeerEvent(PeerActive, epoch)
	assert.ErrorIs(t, err, ErrFatal)
}

func TestTwoPassiveRoutersIsFatal(t *testing.T) {
	f := New(true)
	require.NoError(t, f.ApplyPeerEvent(PeerActive, epoch)) // now PASSIVE
	err := f.ApplyPeerEvent(PeerPassive, epoch)
	assert.ErrorIs(t, err, ErrFatal)
}

func TestPassiveRestartsPeerAsMaster(t *testing.T) {
	f := New(true)
	require.NoError(t, f.ApplyPeerEvent(PeerActive, epoch)) // now PASSIVE
	require.NoError(t, f.ApplyPeerEvent(PeerPrimary, epoch))
	assert.Equal(t, StateActive, f.State())
}

func TestPassiveClientRequestRejectedWithLivePeer(t *testing.T) {
	f := New(true)
	require.NoError(t, f.ApplyPeerEvent(PeerActive, epoch)) // now PASSIVE
	f.SetPeerExpiry(epoch.Add(10 * time.Second))

	err := f.ApplyClientRequest(epoch.Add(time.Second))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, StatePassive, f.State())
}

func TestPassiveClientRequestPromotesOnExpiredPeer(t *testing.T) {
	f := New(true)
	require.NoError(t, f.ApplyPeerEvent(PeerActive, epoch)) // now PASSIVE
	f.SetPeerExpiry(epoch.Add(time.Second))

	require.NoError(t, f.ApplyClientRequest(epoch.Add(5*time.Second)))
	assert.Equal(t, StateActive, f.State())
}

func TestPrimaryRejectsDirectClientRequest(t *testing.T) {
	f := New(true)
	err := f.ApplyClientRequest(epoch)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, StatePrimary, f.State())
}

func TestActiveAcceptsClientRequestWithoutStateChange(t *testing.T) {
	f := New(true)
	require.NoError(t, f.ApplyPeerEvent(PeerBackup, epoch)) // now ACTIVE
	require.NoError(t, f.ApplyClientRequest(epoch))
	assert.Equal(t, StateActive, f.State())
}

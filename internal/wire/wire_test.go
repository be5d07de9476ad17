package wire

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTypeStringsAreStable(t *testing.T) {
	cases := map[MessageType]string{
		Get:               "GET",
		CoordinateDelete:  "COORDINATE_DELETE",
		DeleteHandedOff:   "DELETE_HANDED_OFF",
		HeartbeatResponse: "HEARTBEAT_RESPONSE",
	}
	for mt, want := range cases {
		assert.Equal(t, want, mt.String())
	}
}

func TestNoQuorumIsRepairSentinel(t *testing.T) {
	assert.True(t, NoQuorum.IsRepair())
	assert.False(t, NewQuorumID().IsRepair())
}

func TestBuildCoordinateRetagsType(t *testing.T) {
	listID := uuid.New()
	get := BuildGet(listID)
	q := NewQuorumID()

	coordinated := BuildCoordinate(get, q)
	assert.Equal(t, CoordinateGet, coordinated.Type)
	assert.Equal(t, q, coordinated.QuorumID)
	assert.Equal(t, listID, coordinated.ListID)
}

func TestBuildHintClearsQuorum(t *testing.T) {
	listID := uuid.New()
	put := BuildPut(listID, "milk", 2, "r1")
	coordinated := BuildCoordinate(put, NewQuorumID())

	hint := BuildHint(coordinated)
	assert.Equal(t, WriteHint, hint.Type)
	assert.True(t, hint.QuorumID.IsRepair())
	assert.Equal(t, "milk", hint.Item)
}

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	listID := uuid.New()
	env := BuildPut(listID, "bread", 1, "r1")

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env, decoded)
}

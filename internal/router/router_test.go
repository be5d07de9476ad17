package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"shopsync/internal/config"
	"shopsync/internal/wire"
)

// fakeSender dispatches Register/HealthCheck/Heartbeat/Get/Put/Delete
// directly against a map of peer handlers, standing in for an HTTP
// round trip the way nodeserver's routingSender does for node tests.
type fakeSender struct {
	handlers map[string]func(ctx context.Context, env wire.Envelope) wire.Envelope
	down     map[string]bool
	calls    []string
}

func newFakeSender() *fakeSender {
	return &fakeSender{handlers: make(map[string]func(context.Context, wire.Envelope) wire.Envelope), down: make(map[string]bool)}
}

func (s *fakeSender) Send(ctx context.Context, address string, env wire.Envelope) (wire.Envelope, error) {
	s.calls = append(s.calls, address)
	if s.down[address] {
		return wire.Envelope{}, errors.New("peer unreachable")
	}
	h, ok := s.handlers[address]
	if !ok {
		return wire.Envelope{}, errors.New("unknown peer")
	}
	return h(ctx, env), nil
}

func healthyNodeHandler() func(context.Context, wire.Envelope) wire.Envelope {
	return func(ctx context.Context, env wire.Envelope) wire.Envelope {
		switch env.Type {
		case wire.HealthCheck:
			return wire.Envelope{Type: wire.HealthCheckResponse}
		case wire.Heartbeat:
			return wire.Envelope{Type: wire.HeartbeatResponse}
		case wire.CoordinatePut:
			return wire.Envelope{Type: wire.CoordinatePutResponse, QuorumID: env.QuorumID, Value: true}
		case wire.CoordinateGet:
			return wire.Envelope{Type: wire.CoordinateGetResponse, QuorumID: env.QuorumID, Value: `{"id":"x"}`}
		case wire.CoordinateDelete:
			return wire.Envelope{Type: wire.CoordinateDeleteResponse, QuorumID: env.QuorumID, Value: true}
		default:
			return wire.Envelope{}
		}
	}
}

func testCfg() config.Router {
	return config.Router{
		ID:                            "router-1",
		VirtualNodes:                  8,
		Quorum:                        config.Quorum{N: 4, R: 2, W: 3},
		CoordinatorHealthCheckTimeout: 50 * time.Millisecond,
		MonitorInterval:               10 * time.Millisecond,
		TimeoutThreshold:              20 * time.Millisecond,
	}
}

func TestRegisterReturnsPreviousNodesAndBroadcastsAddNode(t *testing.T) {
	sender := newFakeSender()
	r := New(testCfg(), sender, zerolog.Nop(), true)

	var n1SawAddNode bool
	sender.handlers["n1"] = func(ctx context.Context, env wire.Envelope) wire.Envelope {
		if env.Type == wire.AddNode && env.Address == "n2" {
			n1SawAddNode = true
		}
		return wire.Envelope{Type: wire.AddNode}
	}

	previous := r.Register(context.Background(), "n1")
	require.Empty(t, previous, "first node has no predecessors")

	sender.handlers["n2"] = healthyNodeHandler()
	previous = r.Register(context.Background(), "n2")
	require.Equal(t, []string{"n1"}, previous)
	require.True(t, n1SawAddNode, "previously known node should be notified of the new one")
}

func TestElectCoordinatorPrefersPrimaryWhenHealthy(t *testing.T) {
	sender := newFakeSender()
	r := New(testCfg(), sender, zerolog.Nop(), true)
	for _, addr := range []string{"n1", "n2", "n3", "n4"} {
		sender.handlers[addr] = healthyNodeHandler()
		r.Register(context.Background(), addr)
	}

	key := "some-list-id"
	primary := r.ring.Primary(key)
	coordinator := r.ElectCoordinator(context.Background(), key)
	require.Equal(t, primary, coordinator)
}

func TestElectCoordinatorFallsBackWhenPrimaryDown(t *testing.T) {
	sender := newFakeSender()
	r := New(testCfg(), sender, zerolog.Nop(), true)
	for _, addr := range []string{"n1", "n2", "n3", "n4"} {
		sender.handlers[addr] = healthyNodeHandler()
		r.Register(context.Background(), addr)
	}

	key := "another-list-id"
	primary := r.ring.Primary(key)
	sender.down[primary] = true

	coordinator := r.ElectCoordinator(context.Background(), key)
	require.NotEmpty(t, coordinator)
	require.NotEqual(t, primary, coordinator)
}

func TestElectCoordinatorReturnsEmptyWhenAllDown(t *testing.T) {
	sender := newFakeSender()
	r := New(testCfg(), sender, zerolog.Nop(), true)
	for _, addr := range []string{"n1", "n2", "n3", "n4"} {
		sender.down[addr] = true
		r.Register(context.Background(), addr)
	}

	coordinator := r.ElectCoordinator(context.Background(), "whatever")
	require.Empty(t, coordinator)
}

func TestForwardTranslatesCoordinateResponseToClientResponse(t *testing.T) {
	sender := newFakeSender()
	r := New(testCfg(), sender, zerolog.Nop(), true)
	for _, addr := range []string{"n1", "n2", "n3", "n4"} {
		sender.handlers[addr] = healthyNodeHandler()
		r.Register(context.Background(), addr)
	}

	req := wire.Envelope{Type: wire.Get, ListID: [16]byte{1}}
	resp := r.Forward(context.Background(), req)
	require.Equal(t, wire.GetResponse, resp.Type)
	require.Empty(t, resp.Error)
	require.Equal(t, `{"id":"x"}`, resp.Value)
}

func TestForwardReturnsNoCoordinatorAvailable(t *testing.T) {
	sender := newFakeSender()
	r := New(testCfg(), sender, zerolog.Nop(), true)
	sender.handlers["n1"] = healthyNodeHandler()
	r.Register(context.Background(), "n1")
	sender.down["n1"] = true

	resp := r.Forward(context.Background(), wire.Envelope{Type: wire.Put, ListID: [16]byte{2}})
	require.Equal(t, wire.PutResponse, resp.Type)
	require.Equal(t, "no coordinator available", resp.Error)
}

func TestMonitorTickEvictsStaleNodeAndHeartbeatsSurvivors(t *testing.T) {
	sender := newFakeSender()
	r := New(testCfg(), sender, zerolog.Nop(), true)
	sender.handlers["stale"] = healthyNodeHandler()
	sender.handlers["fresh"] = healthyNodeHandler()
	r.Register(context.Background(), "stale")

	time.Sleep(25 * time.Millisecond) // older than the 20ms TimeoutThreshold
	r.Register(context.Background(), "fresh")

	r.monitorTick(context.Background())

	require.ElementsMatch(t, []string{"fresh"}, r.Nodes())
}

package router

import (
	"context"
	"time"

	"shopsync/internal/wire"
)

// RunLivenessMonitor evicts any node whose last-seen activity is
// older than TimeoutThreshold, broadcasting REMOVE_NODE for each
// (via RemoveNode), then sends a heartbeat burst to the survivors —
// mirroring Router.monitor_nodes in the original, including its
// post-eviction heartbeat burst (SPEC_FULL §4 supplemented feature).
func (r *Router) RunLivenessMonitor(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.MonitorIntervalOrDefault())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.monitorTick(ctx)
		}
	}
}

func (r *Router) monitorTick(ctx context.Context) {
	threshold := r.cfg.TimeoutThresholdOrDefault()
	now := time.Now()

	r.mu.Lock()
	var dead []string
	for addr, a := range r.activity {
		if now.Sub(a.lastSeen) > threshold {
			dead = append(dead, addr)
		}
	}
	r.mu.Unlock()

	for _, addr := range dead {
		r.logger.Warn().Str("node", addr).Msg("node timed out, evicting")
		r.RemoveNode(ctx, addr)
	}

	for _, addr := range r.Nodes() {
		resp, err := r.sender.Send(ctx, addr, wire.Envelope{Type: wire.Heartbeat, NodeID: r.cfg.ID})
		if err != nil {
			r.logger.Warn().Err(err).Str("node", addr).Msg("heartbeat failed")
			continue
		}
		if resp.Type == wire.HeartbeatResponse {
			r.markActive(addr, true)
		}
	}
}

package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeFlagsDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("node", pflag.ContinueOnError)
	load := NodeFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, "node1", cfg.ID)
	assert.Equal(t, Quorum{N: 4, R: 2, W: 3}, cfg.Quorum)
	assert.Equal(t, 15*time.Second, cfg.HintFlushInterval)
}

func TestQuorumValidateRejectsWeakConsistency(t *testing.T) {
	q := Quorum{N: 4, R: 1, W: 1}
	assert.Error(t, q.Validate())

	q = Quorum{N: 4, R: 2, W: 3}
	assert.NoError(t, q.Validate())
}

func TestRouterFlagsDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("router", pflag.ContinueOnError)
	load := RouterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--id", "router-backup"}))

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, "router-backup", cfg.ID)
	assert.Equal(t, 24, cfg.VirtualNodes)
	assert.Equal(t, time.Second, cfg.HeartbeatBStar)
}

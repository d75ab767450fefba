package rivuletconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.DownstreamBuffer)
	assert.Equal(t, 16, cfg.DiagnosticsBuffer)
}

func TestFromEnvOverride(t *testing.T) {
	t.Setenv("RIVULET_DOWNSTREAM_BUFFER", "8")
	t.Setenv("RIVULET_DIAGNOSTICS_BUFFER", "64")

	cfg, err := FromEnv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.DownstreamBuffer)
	assert.Equal(t, 64, cfg.DiagnosticsBuffer)
}

// Package rivuletconfig holds the engine tuning knobs that are legitimate
// to source from the environment (buffer sizes for the channel-bridging
// surface) rather than from the program's own construction of a Root,
// following the cmd/traffic/cmd/manager.Env convention of a flat struct
// processed by go-envconfig.
package rivuletconfig

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Config holds rivulet's environment-sourced tuning knobs. These only
// affect the channel-bridging surface (State.Downstream); the core
// engine has no tunables because it has no internal queues to size.
type Config struct {
	// DownstreamBuffer sizes the channel returned by State.Downstream
	// when a caller doesn't pick a buffer size explicitly.
	DownstreamBuffer int `env:"RIVULET_DOWNSTREAM_BUFFER,default=1"`

	// DiagnosticsBuffer sizes the channel used when bridging a Root's
	// diagnostics out via a plain channel instead of a callback sink.
	DiagnosticsBuffer int `env:"RIVULET_DIAGNOSTICS_BUFFER,default=16"`
}

// FromEnv loads Config from the process environment, applying the
// defaults above for anything unset.
func FromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	err := envconfig.Process(ctx, &cfg)
	return cfg, err
}

// Package sync parses sync service flags and launches the service.
package sync

import (
	"context"
	"flag"

	entrypoint "github.com/driftline/syncd/internal/platform/cmd"
	server "github.com/driftline/syncd/internal/services/sync/app"
)

// Config holds sync command configuration.
type Config struct {
	Port int `env:"SYNCD_PORT" envDefault:"8388"`

	// RebuildCache recomputes the stream head cache from the record log and
	// exits instead of serving.
	RebuildCache bool
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The sync HTTP server port")
	fs.BoolVar(&cfg.RebuildCache, "rebuild-cache", false, "Rebuild the stream head cache from the record log and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the sync HTTP API service, or runs cache maintenance when
// requested.
func Run(ctx context.Context, cfg Config) error {
	if cfg.RebuildCache {
		return server.RebuildStreamHeads(ctx)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSync, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}

// Package foo is the typed Go binding of the foo test core.
//
// Every function validates its arguments before the core is reached and
// returns the bridge's typed errors: *ffierr.ArgumentError and
// *ffierr.EnumRangeError for programmer errors, *ffierr.OperationError for
// domain failures and *ffierr.LifecycleError for use after Close.
package foo

import (
	"context"
	"io/fs"

	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/bridge"
	"github.com/woxQAQ/oobridge/internal/config"
	"github.com/woxQAQ/oobridge/internal/dispatch"
	"github.com/woxQAQ/oobridge/internal/fooffi"
	"github.com/woxQAQ/oobridge/internal/lifecycle"
)

// Library is a loaded foo core.
type Library struct {
	b *bridge.Bridge
}

// Open loads the foo core described by cfg from bundle. See bridge.Open.
func Open(ctx context.Context, cfg *config.BridgeConfig, bundle fs.FS, logger *zap.Logger) (*Library, error) {
	b, err := bridge.Open(ctx, cfg, bundle, logger)
	if err != nil {
		return nil, err
	}
	return &Library{b: b}, nil
}

// OpenReference binds the in-process reference core. Only the lifecycle
// and dispatch sections of cfg apply; a nil cfg uses their defaults.
func OpenReference(ctx context.Context, cfg *config.BridgeConfig, logger *zap.Logger) (*Library, error) {
	var (
		opts    bridge.Options
		workers dispatch.WorkerConfig
	)
	if cfg != nil {
		opts.Lifecycle = cfg.Lifecycle
		workers = cfg.Dispatch
	}

	core := fooffi.New(workers, logger)
	b, err := bridge.New(ctx, core, opts, logger)
	if err != nil {
		_ = core.Close(ctx)
		return nil, err
	}
	return &Library{b: b}, nil
}

// Wrap returns the foo binding of an already open bridge.
func Wrap(b *bridge.Bridge) *Library {
	return &Library{b: b}
}

// Bridge returns the underlying bridge.
func (l *Library) Bridge() *bridge.Bridge {
	return l.b
}

// Stats returns the lifecycle counters of the objects created through l.
func (l *Library) Stats() lifecycle.Stats {
	return l.b.Tracker().Stats()
}

// Close stops the core. Objects still open afterwards fail with
// *ffierr.LifecycleError.
func (l *Library) Close(ctx context.Context) error {
	return l.b.Close(ctx)
}

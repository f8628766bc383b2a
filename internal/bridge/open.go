package bridge

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/config"
	"github.com/woxQAQ/oobridge/internal/loader"
	"github.com/woxQAQ/oobridge/internal/wasm"
)

// Open loads the configured core from bundle and binds a bridge to it.
// A nil bundle reads cfg.Library.BundleDir.
//
// Candidates come from cfg.Library.Targets, else from the bundle manifest,
// else from the platform defaults for cfg.Library.Name.
func Open(ctx context.Context, cfg *config.BridgeConfig, bundle fs.FS, logger *zap.Logger) (*Bridge, error) {
	if bundle == nil {
		bundle = os.DirFS(cfg.Library.BundleDir)
	}

	runtime, err := wasm.NewRuntime(ctx, logger, &cfg.Wasm)
	if err != nil {
		return nil, err
	}

	l := loader.New(bundle, cfg.Library.Config, logger)
	if err := l.Openers().Register("wasm", loader.WasmOpener(wasm.NewModuleLoader(runtime, logger))); err != nil {
		return nil, multierr.Append(err, runtime.Close(ctx))
	}

	candidates, err := candidates(bundle, cfg.Library, l)
	if err != nil {
		return nil, multierr.Append(err, runtime.Close(ctx))
	}

	loaded, err := l.LoadFirstAvailable(ctx, candidates)
	if err != nil {
		return nil, multierr.Combine(err, l.Close(), runtime.Close(ctx))
	}

	b, err := New(ctx, loaded.Library, Options{Lifecycle: cfg.Lifecycle}, logger)
	if err != nil {
		return nil, multierr.Combine(err, loaded.Library.Close(ctx), l.Close(), runtime.Close(ctx))
	}

	b.closers = append(b.closers,
		func(context.Context) error { return l.Close() },
		runtime.Close,
	)
	return b, nil
}

func candidates(bundle fs.FS, lib config.LibraryConfig, l *loader.Loader) ([]loader.Target, error) {
	if len(lib.Targets) > 0 {
		return lib.Targets, nil
	}

	m, err := loader.ParseManifest(bundle)
	var notFound *loader.ManifestNotFoundError
	switch {
	case errors.As(err, &notFound):
		return loader.DefaultTargets(lib.Name), nil
	case err != nil:
		return nil, err
	}

	l.UseManifest(m)
	return m.Candidates(loader.Platform()), nil
}

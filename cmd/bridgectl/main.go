package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/config"
	"github.com/woxQAQ/oobridge/internal/foo"
	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/loader"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := pflag.StringP("config", "c", "", "Path to configuration file")
	logLevel := pflag.String("log-level", "", "Log level (debug, info, warn, error); overrides the configuration")
	bundleDir := pflag.String("bundle", "", "Bundle directory; overrides library.bundle_dir")
	reference := pflag.Bool("reference", false, "Use the in-process reference core instead of loading an artifact")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *bundleDir != "" {
		cfg.Library.BundleDir = *bundleDir
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.LogLevel == "debug" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting bridgectl",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, *reference, logger)
	stop()
	if err != nil {
		logger.Error("Check failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run opens the core, checks it and closes it. The core and its temporary
// artifacts are released before run returns, whatever the outcome.
func run(ctx context.Context, cfg *config.BridgeConfig, reference bool, logger *zap.Logger) (err error) {
	lib, err := open(ctx, cfg, reference, logger)
	if err != nil {
		return fmt.Errorf("failed to open core: %w", err)
	}
	defer multierr.AppendFunc(&err, func() error {
		return lib.Close(context.Background())
	})

	if err := check(ctx, lib, logger); err != nil {
		return err
	}

	logger.Info("Check complete",
		zap.Any("resources", lib.Stats()),
		zap.Any("callbacks", lib.Bridge().Callbacks().Stats()),
	)
	return nil
}

// open loads the configured artifact, falling back to the reference core
// when the bundle has nothing loadable.
func open(ctx context.Context, cfg *config.BridgeConfig, reference bool, logger *zap.Logger) (*foo.Library, error) {
	if reference {
		return foo.OpenReference(ctx, cfg, logger)
	}

	lib, err := foo.Open(ctx, cfg, nil, logger)
	if err == nil {
		return lib, nil
	}

	var (
		noCandidates *loader.NoCandidatesError
		notFound     *loader.ArtifactNotFoundError
	)
	if !errors.As(err, &noCandidates) && !errors.As(err, &notFound) {
		return nil, err
	}
	logger.Warn("No loadable artifact, using the reference core",
		zap.String("bundle_dir", cfg.Library.BundleDir),
		zap.Error(err),
	)
	return foo.OpenReference(ctx, cfg, logger)
}

// check drives a short round trip through every part of the bridge.
func check(ctx context.Context, lib *foo.Library, logger *zap.Logger) error {
	s, err := lib.StringEcho(ctx, "Émile")
	if err != nil {
		return err
	}
	n, err := lib.StringLength(ctx, s)
	if err != nil {
		return err
	}
	logger.Info("Strings", zap.String("echo", s), zap.Uint32("bytes", n))

	var chunks []string
	if err := lib.InvokeChunked(ctx, "Hello World!", 3, func(c string) { chunks = append(chunks, c) }); err != nil {
		return err
	}
	logger.Info("Chunks", zap.Strings("chunks", chunks))

	pw, err := lib.NewClassWithPassword(ctx, "12345")
	if err != nil {
		return err
	}
	special, err := pw.GetSpecialValue(ctx)
	if err := multierr.Append(err, pw.Close(ctx)); err != nil {
		return err
	}
	logger.Info("Password", zap.Uint32("special_value", special))

	var values []uint32
	tc, err := lib.NewThreadClass(ctx, 42, func(v uint32) { values = append(values, v) })
	if err != nil {
		return err
	}
	sum, err := tc.Add(ctx, 4).Wait(ctx)
	if err != nil {
		return multierr.Append(err, tc.Close(ctx))
	}
	if err := tc.Close(ctx); err != nil {
		return err
	}
	logger.Info("Thread class", zap.Uint32("sum", sum), zap.Uint32s("observed", values))

	return leakCheck(lib.Stats())
}

func leakCheck(s lifecycle.Stats) error {
	if s.Live != 0 {
		return fmt.Errorf("%d resources still open", s.Live)
	}
	return nil
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/oobridge/internal/config"
)

func testConfig(t *testing.T) *config.BridgeConfig {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	cfg.Library.BundleDir = t.TempDir()
	cfg.Library.Config.TempDir = t.TempDir()
	return cfg
}

func TestRun_Reference(t *testing.T) {
	cfg := testConfig(t)
	if err := run(context.Background(), cfg, true, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Failed to run against the reference core: %v", err)
	}
}

func TestRun_EmptyBundleFallsBack(t *testing.T) {
	cfg := testConfig(t)
	if err := run(context.Background(), cfg, false, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Failed to run against an empty bundle: %v", err)
	}

	entries, err := os.ReadDir(cfg.Library.Config.TempDir)
	if err != nil {
		t.Fatalf("Failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%d temporary artifacts left after run", len(entries))
	}
}

func TestRun_UnloadableCoreIsReported(t *testing.T) {
	cfg := testConfig(t)
	manifest := "name: foo\nversion: 1.0.0\ntargets:\n  - directory: wasm32-unknown-unknown\n    name: foo\n    extension: wasm\n"
	if err := os.WriteFile(filepath.Join(cfg.Library.BundleDir, "bundle.yaml"), []byte(manifest), 0o600); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.Library.BundleDir, "wasm32-unknown-unknown"), 0o700); err != nil {
		t.Fatalf("Failed to create target dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Library.BundleDir, "wasm32-unknown-unknown", "foo.wasm"), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	if err := run(context.Background(), cfg, false, zaptest.NewLogger(t)); err == nil {
		t.Fatal("run() should fail for an unloadable core")
	}

	entries, err := os.ReadDir(cfg.Library.Config.TempDir)
	if err != nil {
		t.Fatalf("Failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%d temporary artifacts left after a failed run", len(entries))
	}
}

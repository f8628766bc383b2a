package wasm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestNewRuntime_Defaults(t *testing.T) {
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	if runtime.config.MemoryPages != 256 || runtime.config.MaxInstances != 100 {
		t.Errorf("Unexpected default config %+v", runtime.config)
	}
	if runtime.config.DebugEnabled {
		t.Error("Debug should be disabled by default")
	}
	if runtime.Live() != 0 {
		t.Errorf("Live() = %d, want 0", runtime.Live())
	}

	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Failed to close runtime: %v", err)
	}
}

func TestRuntime_CloseIdempotent(t *testing.T) {
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	if err := runtime.Close(ctx); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
	if !runtime.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
}

func TestRuntime_CloseWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	runtime, err := NewRuntime(ctx, zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	cancel()

	if err := runtime.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Unexpected error when closing with cancelled context: %v", err)
	}
}

func TestRuntime_CompilationCacheDir(t *testing.T) {
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, zaptest.NewLogger(t), &RuntimeConfig{
		MemoryPages: 16,
		CacheDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to create runtime with cache dir: %v", err)
	}
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Failed to close runtime: %v", err)
	}
}

func TestRuntime_Reserve(t *testing.T) {
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, zaptest.NewLogger(t), &RuntimeConfig{MaxInstances: 2})
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	defer runtime.Close(ctx)

	for i := range 2 {
		if err := runtime.reserve(); err != nil {
			t.Fatalf("Failed to reserve slot %d: %v", i, err)
		}
	}
	var limitErr *InstanceLimitError
	if err := runtime.reserve(); !errors.As(err, &limitErr) || limitErr.Max != 2 {
		t.Fatalf("Expected InstanceLimitError, got %v", err)
	}
	if runtime.Live() != 2 {
		t.Errorf("Live() = %d after a rejected reservation, want 2", runtime.Live())
	}
}

func TestErrors_Messages(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		err  error
		want string
	}{
		{&CompileError{Core: "foo.wasm", Err: cause}, "failed to compile core 'foo.wasm': boom"},
		{&InstantiateError{Core: "foo.wasm", InstanceID: "i-1", Err: cause}, "failed to instantiate core 'foo.wasm' as i-1: boom"},
		{&InstanceLimitError{Max: 2}, "instance limit reached (max: 2)"},
		{&CacheDirError{Dir: "/tmp/c", Err: cause}, "cannot use compilation cache '/tmp/c': boom"},
		{&HostImportError{Import: "log_message", InstanceID: "i-1", Err: errNotBound}, "host import 'log_message' called by i-1: instance has no bound host"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}

	if !errors.Is(&CompileError{Err: cause}, cause) {
		t.Error("CompileError should unwrap its cause")
	}
}

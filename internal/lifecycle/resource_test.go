package lifecycle

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/oobridge/internal/ffierr"
)

func TestResource_CloseIdempotent(t *testing.T) {
	tracker := NewTracker(Config{}, zaptest.NewLogger(t))
	ctx := context.Background()

	var destroyed []uint64
	r := tracker.Track("TestClass", 41, func(_ context.Context, h uint64) error {
		destroyed = append(destroyed, h)
		return nil
	})

	if err := r.Use("getValue", func(h uint64) error {
		if h != 41 {
			t.Errorf("expected handle 41, got %d", h)
		}
		return nil
	}); err != nil {
		t.Fatalf("Use() failed: %v", err)
	}

	if err := r.Close(ctx); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}
	if err := r.Close(ctx); err != nil {
		t.Errorf("second Close() should succeed, got %v", err)
	}

	if len(destroyed) != 1 || destroyed[0] != 41 {
		t.Errorf("destructor calls = %v, want [41]", destroyed)
	}
	if !r.IsClosed() {
		t.Error("resource should report closed")
	}

	stats := tracker.Stats()
	if stats.Created != 1 || stats.Closed != 1 || stats.Live != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestResource_UseAfterClose(t *testing.T) {
	tracker := NewTracker(Config{}, zap.NewNop())
	r := tracker.Track("ClassWithPassword", 7, func(context.Context, uint64) error { return nil })
	_ = r.Close(context.Background())

	called := false
	err := r.Use("getSpecialValue", func(uint64) error {
		called = true
		return nil
	})

	var lifeErr *ffierr.LifecycleError
	if !errors.As(err, &lifeErr) {
		t.Fatalf("expected LifecycleError, got %v", err)
	}
	if lifeErr.Op != "getSpecialValue" || lifeErr.Type != "ClassWithPassword" {
		t.Errorf("unexpected error fields %+v", lifeErr)
	}
	if called {
		t.Error("closed handle must not be lent out")
	}
}

func TestResource_DestructorError(t *testing.T) {
	tracker := NewTracker(Config{}, zap.NewNop())
	boom := errors.New("boom")
	r := tracker.Track("Faulty", 1, func(context.Context, uint64) error { return boom })

	if err := r.Close(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected destructor error, got %v", err)
	}
	if !r.IsClosed() {
		t.Error("resource should be closed even when the destructor fails")
	}
}

func TestResource_CloseDefersDestroyUntilUseReturns(t *testing.T) {
	tracker := NewTracker(Config{}, zap.NewNop())

	var inUse, destroyed atomic.Bool
	r := tracker.Track("Busy", 1, func(_ context.Context, h uint64) error {
		if inUse.Load() {
			t.Error("destructor ran while the handle was lent out")
		}
		if h != 1 {
			t.Errorf("destructor got handle %d, want 1", h)
		}
		destroyed.Store(true)
		return nil
	})

	entered := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Use("slow", func(uint64) error {
			inUse.Store(true)
			close(entered)
			time.Sleep(20 * time.Millisecond)
			inUse.Store(false)
			return nil
		})
	}()

	<-entered
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Failed to close resource: %v", err)
	}
	if err := r.Use("late", func(uint64) error { return nil }); err == nil {
		t.Error("Use() after Close() should fail")
	}
	wg.Wait()

	if !destroyed.Load() {
		t.Error("destructor should run once the use returns")
	}
}

func TestResource_CloseFromWithinUse(t *testing.T) {
	tracker := NewTracker(Config{}, zap.NewNop())

	var destroys atomic.Int32
	r := tracker.Track("Reentrant", 7, func(context.Context, uint64) error {
		destroys.Add(1)
		return nil
	})

	done := make(chan error, 1)
	go func() {
		done <- r.Use("callback", func(uint64) error {
			if err := r.Close(context.Background()); err != nil {
				return err
			}
			if destroys.Load() != 0 {
				t.Error("destructor ran before the use returned")
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Use() failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close() from within Use() deadlocked")
	}

	if got := destroys.Load(); got != 1 {
		t.Errorf("destructor ran %d times, want 1", got)
	}
	if !r.IsClosed() {
		t.Error("resource should be closed")
	}
	if s := tracker.Stats(); s.Closed != 1 || s.Live != 0 {
		t.Errorf("Stats() = %+v, want one closed and none live", s)
	}
}

func TestTracker_LeakedResourcesAreReleased(t *testing.T) {
	const n = 50
	tracker := NewTracker(Config{LeakWarnings: true}, zap.NewNop())

	var released atomic.Int64
	func() {
		for i := 0; i < n; i++ {
			tracker.Track("Leaky", uint64(i+1), func(context.Context, uint64) error {
				released.Add(1)
				return nil
			})
		}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for released.Load() < n && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	got := released.Load()
	if got < n*9/10 || got > n {
		t.Errorf("expected about %d releases, got %d", n, got)
	}
	if leaked := tracker.Stats().Leaked; leaked != got {
		t.Errorf("Leaked = %d, want %d", leaked, got)
	}
}

func TestTracker_ClosedResourcesAreNotLeaked(t *testing.T) {
	tracker := NewTracker(Config{}, zap.NewNop())
	var released atomic.Int64

	func() {
		for i := 0; i < 10; i++ {
			r := tracker.Track("Tidy", uint64(i+1), func(context.Context, uint64) error {
				released.Add(1)
				return nil
			})
			_ = r.Close(context.Background())
		}
	}()

	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	if got := released.Load(); got != 10 {
		t.Errorf("expected exactly 10 releases, got %d", got)
	}
	if stats := tracker.Stats(); stats.Leaked != 0 || stats.Closed != 10 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

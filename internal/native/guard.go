package native

import (
	"context"
	"sync"
)

type guardKey struct {
	g *Guard
}

// Guard serializes calls into a core that is not safe for concurrent use.
//
// A goroutine already inside the guard (a host callback running on the
// calling goroutine) carries a marker in its context and re-enters freely,
// so callbacks must pass the ctx they were given to any nested call.
// A nil Guard never blocks.
type Guard struct {
	mu sync.Mutex
}

// NewGuard returns a guard for lib, or nil when lib allows concurrent calls.
func NewGuard(lib Library) *Guard {
	if !lib.Serialized() {
		return nil
	}
	return &Guard{}
}

// Enter acquires the guard unless ctx already holds it.
func (g *Guard) Enter(ctx context.Context) (context.Context, func()) {
	if g == nil || g.Held(ctx) {
		return ctx, func() {}
	}
	g.mu.Lock()
	return context.WithValue(ctx, guardKey{g}, true), g.mu.Unlock
}

// Held reports whether ctx was derived from a context inside the guard.
func (g *Guard) Held(ctx context.Context) bool {
	if g == nil {
		return false
	}
	held, _ := ctx.Value(guardKey{g}).(bool)
	return held
}

package callback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

// UnknownHandleError occurs when native code names a handle that was never
// registered or has already been released.
type UnknownHandleError struct {
	Handle uint64
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf("callback handle %d is not registered", e.Handle)
}

type entry struct {
	handle  uint64
	binding *Binding

	inflight  int
	destroyed bool
	invoked   bool
}

// Stats counts registrations over the table's lifetime.
type Stats struct {
	Registered int
	Released   int
	Live       int
}

// Table pins Go bindings for as long as native code may invoke them.
//
// Each entry is shared between the table and every in-flight invocation:
// a destroy notification that arrives mid-call marks the entry, and the
// pin is dropped when the last invocation finishes.
type Table struct {
	mu      sync.Mutex
	entries map[uint64]*entry
	next    uint64
	stats   Stats
	logger  *zap.Logger
}

// NewTable creates an empty callback table.
func NewTable(logger *zap.Logger) *Table {
	return &Table{
		entries: make(map[uint64]*entry),
		logger:  logger.With(zap.String("component", "callback-table")),
	}
}

// Register pins b and returns the handle native code uses to reach it.
func (t *Table) Register(b *Binding) (uint64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	h := t.next
	t.entries[h] = &entry{handle: h, binding: b}
	t.stats.Registered++

	t.logger.Debug("Callback registered",
		zap.Uint64("handle", h),
		zap.String("interface", b.Interface.Name),
		zap.Bool("one_shot", b.OneShot),
	)

	return h, nil
}

// RegisterBinding implements marshal.Interfaces.
func (t *Table) RegisterBinding(_ context.Context, b marshal.Binding) (uint64, error) {
	cb, ok := b.(*Binding)
	if !ok {
		return 0, fmt.Errorf("unsupported binding type %T", b)
	}
	return t.Register(cb)
}

// ReleaseBinding implements marshal.Interfaces.
func (t *Table) ReleaseBinding(handle uint64) {
	t.Destroy(handle)
}

// TakeBinding implements marshal.Interfaces. The handle is released and its
// binding handed back to Go.
func (t *Table) TakeBinding(handle uint64) (marshal.Binding, bool) {
	t.mu.Lock()
	e, ok := t.entries[handle]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	t.Destroy(handle)
	return e.binding, true
}

// Lookup returns the binding registered under handle.
func (t *Table) Lookup(handle uint64) (*Binding, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[handle]
	if !ok || e.destroyed {
		return nil, false
	}
	return e.binding, true
}

// Acquire takes a shared reference for one invocation. The caller must
// Release the returned Ref.
func (t *Table) Acquire(handle uint64) (*Ref, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[handle]
	if !ok || e.destroyed || (e.binding.OneShot && e.invoked) {
		return nil, &UnknownHandleError{Handle: handle}
	}
	e.inflight++
	if e.binding.OneShot {
		e.invoked = true
	}
	return &Ref{table: t, entry: e}, nil
}

// Destroy handles native code's destroy notification. Unknown handles are
// ignored so a one-shot entry that already released itself is harmless.
func (t *Table) Destroy(handle uint64) {
	t.mu.Lock()
	e, ok := t.entries[handle]
	if !ok || e.destroyed {
		t.mu.Unlock()
		return
	}
	e.destroyed = true
	release := e.inflight == 0
	if release {
		t.removeLocked(e)
	}
	t.mu.Unlock()

	if release {
		t.released(e)
	}
}

// Len returns the number of pinned bindings.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Stats returns registration counters.
func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stats
	s.Live = len(t.entries)
	return s
}

// Clear releases every remaining binding, as at shutdown.
func (t *Table) Clear() {
	t.mu.Lock()
	var pending []*entry
	for _, e := range t.entries {
		e.destroyed = true
		if e.inflight == 0 {
			pending = append(pending, e)
		}
	}
	for _, e := range pending {
		t.removeLocked(e)
	}
	t.mu.Unlock()

	if len(pending) > 0 {
		t.logger.Warn("Releasing callbacks never destroyed by native code",
			zap.Int("count", len(pending)),
		)
	}
	for _, e := range pending {
		t.released(e)
	}
}

func (t *Table) removeLocked(e *entry) {
	delete(t.entries, e.handle)
	t.stats.Released++
}

func (t *Table) released(e *entry) {
	t.logger.Debug("Callback released",
		zap.Uint64("handle", e.handle),
		zap.String("interface", e.binding.Interface.Name),
	)
	if e.binding.OnRelease != nil {
		e.binding.OnRelease()
	}
}

// Ref is a shared reference to a pinned binding, held for one invocation.
type Ref struct {
	table *Table
	entry *entry
	once  sync.Once
}

// Binding returns the pinned binding.
func (r *Ref) Binding() *Binding {
	return r.entry.binding
}

// Call runs operation op. Panics are recovered and reported as a
// *ffierr.CallbackError.
func (r *Ref) Call(ctx context.Context, op int, args []marshal.Value) (marshal.Value, error) {
	b := r.entry.binding
	if op < 0 || op >= len(b.Interface.Operations) {
		return marshal.Null(), &UnknownOperationError{
			Interface: b.Interface.Name,
			Operation: fmt.Sprintf("#%d", op),
		}
	}
	name := b.Interface.Operations[op].Name

	var (
		result marshal.Value
		err    error
	)
	var pc panics.Catcher
	pc.Try(func() {
		result, err = b.method(op)(ctx, args)
	})
	if rec := pc.Recovered(); rec != nil {
		err = rec.AsError()
	}
	if err != nil {
		var cbErr *ffierr.CallbackError
		if !errors.As(err, &cbErr) {
			err = &ffierr.CallbackError{Interface: b.Interface.Name, Operation: name, Err: err}
		}
		return marshal.Null(), err
	}
	return result, nil
}

// Release drops the shared reference. A one-shot or destroyed entry is
// released once its last invocation finishes.
func (r *Ref) Release() {
	r.once.Do(func() {
		t := r.table
		e := r.entry

		t.mu.Lock()
		e.inflight--
		release := e.inflight == 0 && (e.destroyed || e.binding.OneShot)
		if release {
			if _, ok := t.entries[e.handle]; ok {
				t.removeLocked(e)
			} else {
				release = false
			}
		}
		t.mu.Unlock()

		if release {
			t.released(e)
		}
	})
}

package wasm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/native"
)

// Instance is one instantiated Wasm core. It implements native.Library.
type Instance struct {
	ID        string
	Core      string
	CreatedAt time.Time

	module  api.Module
	runtime *Runtime
	exports sync.Map // symbol -> api.Function

	closeOnce sync.Once
}

// instantiate creates a core from compiled. Its host imports are unrouted
// until Bind is called.
func (r *Runtime) instantiate(ctx context.Context, compiled *CompiledModule) (*Instance, error) {
	if err := r.reserve(); err != nil {
		return nil, err
	}

	// wazero routes host imports by module name, so every instance gets a
	// unique one.
	id := uuid.NewString()
	cfg := wazero.NewModuleConfig().
		WithName(id).
		WithStartFunctions("_initialize")

	mod, err := r.runtime.InstantiateModule(ctx, compiled.Module, cfg)
	if err != nil {
		r.live.Add(-1)
		return nil, &InstantiateError{Core: compiled.Name, InstanceID: id, Err: err}
	}

	inst := &Instance{
		ID:        id,
		Core:      compiled.Name,
		CreatedAt: time.Now(),
		module:    mod,
		runtime:   r,
	}
	r.track(inst)

	r.logger.Info("Core instantiated",
		zap.String("core", compiled.Name),
		zap.String("instance_id", id),
		zap.Int("live_instances", r.Live()),
	)
	return inst, nil
}

// Name implements native.Library.
func (i *Instance) Name() string {
	return i.Core
}

// Lookup implements native.Library.
func (i *Instance) Lookup(symbol string) (native.Function, error) {
	if fn, ok := i.exports.Load(symbol); ok {
		return fn.(api.Function), nil
	}
	fn := i.module.ExportedFunction(symbol)
	if fn == nil {
		return nil, &native.SymbolNotFoundError{Library: i.Core, Symbol: symbol}
	}
	actual, _ := i.exports.LoadOrStore(symbol, fn)
	return actual.(api.Function), nil
}

// Memory implements native.Library with the guest's linear memory.
func (i *Instance) Memory() native.Memory {
	return NewMemory(i.module)
}

// Bind implements native.Library by routing the instance's host imports
// to host.
func (i *Instance) Bind(_ context.Context, host native.Host) error {
	i.runtime.bindHost(i.ID, host)
	return nil
}

// Serialized is true: a wazero module instance is not safe for concurrent
// calls.
func (i *Instance) Serialized() bool {
	return true
}

// Close implements native.Library. Safe to call multiple times.
func (i *Instance) Close(ctx context.Context) error {
	var err error
	i.closeOnce.Do(func() {
		err = i.module.Close(ctx)
		i.runtime.untrack(i.ID)
	})
	return err
}

package wasm

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/native"
)

// RuntimeConfig configures the wazero runtime shared by every Wasm core.
type RuntimeConfig struct {
	// MemoryPages caps each core's linear memory, in 64KiB pages.
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// DebugEnabled keeps DWARF info for guest stack traces.
	DebugEnabled bool `mapstructure:"debug"`
	// CacheDir persists compiled code between processes. Empty keeps the
	// cache in memory.
	CacheDir string `mapstructure:"cache_dir"`
	// MaxInstances bounds the number of live cores. Zero is unlimited.
	MaxInstances int `mapstructure:"max_instances"`
}

// DefaultRuntimeConfig returns the defaults used when no configuration is
// given.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:  256, // 16MB
		MaxInstances: 100,
	}
}

// Runtime owns the wazero runtime, the "host" import module and every core
// instantiated from it.
type Runtime struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	config  *RuntimeConfig

	compiled  sync.Map // core name -> *CompiledModule
	instances sync.Map // instance ID -> *Instance
	hosts     sync.Map // instance ID -> native.Host
	live      atomic.Int32

	logger *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewRuntime starts a runtime and instantiates the host import module.
// A nil config uses DefaultRuntimeConfig.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	rc := wazero.NewRuntimeConfig().
		WithDebugInfoEnabled(config.DebugEnabled).
		WithCloseOnContextDone(true)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}

	var cache wazero.CompilationCache
	if config.CacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, &CacheDirError{Dir: config.CacheDir, Err: err}
		}
		cache = c
		rc = rc.WithCompilationCache(cache)
	}

	r := &Runtime{
		runtime: wazero.NewRuntimeWithConfig(ctx, rc),
		cache:   cache,
		config:  config,
		logger:  logger.With(zap.String("component", "wasm-runtime")),
		closed:  make(chan struct{}),
	}

	if err := r.instantiateHost(ctx); err != nil {
		return nil, multierr.Append(err, r.runtime.Close(ctx))
	}

	r.logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
	)
	return r, nil
}

// Close closes every live core, then the runtime. Safe to call multiple
// times.
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down Wasm runtime", zap.Int32("live_instances", r.live.Load()))

		r.instances.Range(func(_, v any) bool {
			inst := v.(*Instance)
			if closeErr := inst.Close(ctx); closeErr != nil {
				r.logger.Warn("Failed to close instance",
					zap.String("instance_id", inst.ID),
					zap.Error(closeErr),
				)
			}
			return true
		})

		err = r.runtime.Close(ctx)
		if r.cache != nil {
			err = multierr.Append(err, r.cache.Close(ctx))
		}
		close(r.closed)
	})
	return err
}

// IsClosed reports whether Close has been called.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

// Instance returns a live core by instance ID.
func (r *Runtime) Instance(id string) (*Instance, bool) {
	v, ok := r.instances.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Instance), true
}

// Live returns the number of live cores.
func (r *Runtime) Live() int {
	return int(r.live.Load())
}

func (r *Runtime) compiledModule(name string) (*CompiledModule, bool) {
	v, ok := r.compiled.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*CompiledModule), true
}

// reserve takes an instance slot, failing once MaxInstances are live.
func (r *Runtime) reserve() error {
	n := r.live.Add(1)
	if limit := r.config.MaxInstances; limit > 0 && int(n) > limit {
		r.live.Add(-1)
		return &InstanceLimitError{Max: limit}
	}
	return nil
}

func (r *Runtime) track(inst *Instance) {
	r.instances.Store(inst.ID, inst)
}

func (r *Runtime) untrack(id string) {
	if _, ok := r.instances.LoadAndDelete(id); ok {
		r.live.Add(-1)
	}
	r.hosts.Delete(id)
}

func (r *Runtime) bindHost(id string, host native.Host) {
	r.hosts.Store(id, host)
}

func (r *Runtime) hostFor(id string) (native.Host, bool) {
	v, ok := r.hosts.Load(id)
	if !ok {
		return nil, false
	}
	return v.(native.Host), true
}

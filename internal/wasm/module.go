package wasm

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/native"
)

// Source provides a core's Wasm bytecode. Name keys the compiled-module
// cache, so two sources with the same name must carry the same bytes.
type Source interface {
	Name() string
	Bytes() ([]byte, error)
}

// FileSource reads a core from a file.
type FileSource struct {
	// Fs defaults to the OS filesystem.
	Fs   afero.Fs
	Path string
}

func (f *FileSource) Name() string { return f.Path }

func (f *FileSource) Bytes() ([]byte, error) {
	fs := f.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return afero.ReadFile(fs, f.Path)
}

// BytesSource is a core already in memory.
type BytesSource struct {
	Core string
	Data []byte
}

func (b *BytesSource) Name() string           { return b.Core }
func (b *BytesSource) Bytes() ([]byte, error) { return b.Data, nil }

// CompiledModule is a compiled core ready to be instantiated.
type CompiledModule struct {
	Module     wazero.CompiledModule
	Name       string
	Size       int
	CompiledAt time.Time
}

// ModuleLoader compiles cores once and opens them as native.Library.
type ModuleLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewModuleLoader creates a loader compiling into runtime.
func NewModuleLoader(runtime *Runtime, logger *zap.Logger) *ModuleLoader {
	return &ModuleLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// Compile returns the compiled module for src, compiling it on first use.
func (l *ModuleLoader) Compile(ctx context.Context, src Source) (*CompiledModule, error) {
	if cached, ok := l.runtime.compiledModule(src.Name()); ok {
		l.logger.Debug("Module cache hit", zap.String("core", src.Name()))
		return cached, nil
	}

	code, err := src.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read core %s: %w", src.Name(), err)
	}

	l.logger.Info("Compiling Wasm core",
		zap.String("core", src.Name()),
		zap.String("size", humanize.Bytes(uint64(len(code)))),
	)

	start := time.Now()
	mod, err := l.runtime.runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, &CompileError{Core: src.Name(), Err: err}
	}

	compiled := &CompiledModule{
		Module:     mod,
		Name:       src.Name(),
		Size:       len(code),
		CompiledAt: time.Now(),
	}
	actual, loaded := l.runtime.compiled.LoadOrStore(compiled.Name, compiled)
	if loaded {
		_ = mod.Close(ctx)
	}

	l.logger.Info("Core compiled",
		zap.String("core", src.Name()),
		zap.Duration("duration", time.Since(start)),
		zap.Int("exports", len(mod.ExportedFunctions())),
	)
	return actual.(*CompiledModule), nil
}

// Open compiles src if needed and instantiates a new core from it.
func (l *ModuleLoader) Open(ctx context.Context, src Source) (native.Library, error) {
	compiled, err := l.Compile(ctx, src)
	if err != nil {
		return nil, err
	}
	return l.runtime.instantiate(ctx, compiled)
}

package loader

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/native"
	"github.com/woxQAQ/oobridge/internal/wasm"
)

// Opener opens a materialized artifact as a native core.
type Opener func(ctx context.Context, fs afero.Fs, path string) (native.Library, error)

// SharedLibraryOpener opens artifacts with dlopen. The file must live on the
// OS filesystem.
func SharedLibraryOpener(_ context.Context, _ afero.Fs, path string) (native.Library, error) {
	return native.OpenSharedLibrary(path)
}

// WasmOpener compiles and instantiates artifacts with ml.
func WasmOpener(ml *wasm.ModuleLoader) Opener {
	return func(ctx context.Context, fs afero.Fs, path string) (native.Library, error) {
		return ml.Open(ctx, &wasm.FileSource{Fs: fs, Path: path})
	}
}

// Registry maps artifact extensions to openers.
type Registry struct {
	mu      sync.RWMutex
	openers map[string]Opener // extension -> opener
	logger  *zap.Logger
}

// NewRegistry creates an opener registry with the shared library openers
// registered.
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		openers: make(map[string]Opener),
		logger:  logger.With(zap.String("component", "opener-registry")),
	}
	for _, ext := range []string{"so", "dylib", "dll"} {
		r.openers[ext] = SharedLibraryOpener
	}
	return r
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Register adds an opener for ext.
func (r *Registry) Register(ext string, opener Opener) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ext = normalizeExt(ext)

	// Check for duplicates
	if _, exists := r.openers[ext]; exists {
		return &OpenerAlreadyRegisteredError{Extension: ext}
	}

	r.openers[ext] = opener

	r.logger.Debug("Opener registered", zap.String("extension", ext))

	return nil
}

// Replace sets the opener for ext, overriding any existing one.
func (r *Registry) Replace(ext string, opener Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.openers[normalizeExt(ext)] = opener
}

// Get retrieves the opener for ext.
func (r *Registry) Get(ext string) (Opener, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opener, ok := r.openers[normalizeExt(ext)]
	return opener, ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, 0, len(r.openers))
	for ext := range r.openers {
		result = append(result, ext)
	}
	sort.Strings(result)
	return result
}

// Unregister removes the opener for ext.
func (r *Registry) Unregister(ext string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.openers, normalizeExt(ext))
}

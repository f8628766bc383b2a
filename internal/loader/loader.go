package loader

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/oobridge/internal/native"
)

// Config holds loader configuration.
type Config struct {
	// TempDir receives materialized artifacts. Empty means the OS default.
	TempDir string `mapstructure:"temp_dir"`

	// VerifyDigest checks artifacts against manifest digests.
	VerifyDigest bool `mapstructure:"verify_digest"`
}

// Loaded describes the core a loader opened.
type Loaded struct {
	Target   Target
	Library  native.Library
	Path     string
	Size     int64
	LoadedAt time.Time
}

// Loader resolves bundled artifacts and opens the first that works.
//
// A loader succeeds at most once: native libraries cannot be reliably
// unloaded, so a second load is refused.
type Loader struct {
	bundle   fs.FS
	fs       afero.Fs
	cfg      Config
	openers  *Registry
	digests  map[string]string
	manifest *Manifest
	logger   *zap.Logger

	mu     sync.Mutex
	loaded *Loaded
	temps  []string
}

// New creates a loader that materializes artifacts on the OS filesystem.
func New(bundle fs.FS, cfg Config, logger *zap.Logger) *Loader {
	return NewWithFs(bundle, afero.NewOsFs(), cfg, logger)
}

// NewWithFs creates a loader that materializes artifacts on fsys.
func NewWithFs(bundle fs.FS, fsys afero.Fs, cfg Config, logger *zap.Logger) *Loader {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Loader{
		bundle:  bundle,
		fs:      fsys,
		cfg:     cfg,
		openers: NewRegistry(logger),
		digests: make(map[string]string),
		logger:  logger.With(zap.String("component", "loader")),
	}
}

// Openers returns the loader's opener registry.
func (l *Loader) Openers() *Registry {
	return l.openers
}

// UseManifest records the manifest's digests for verification.
func (l *Loader) UseManifest(m *Manifest) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.manifest = m
	for p, d := range m.Digests() {
		l.digests[p] = d
	}
}

// Manifest returns the manifest given to UseManifest, if any.
func (l *Loader) Manifest() *Manifest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.manifest
}

// LoadFirstAvailable tries candidates in order and returns the first core
// that opens. Every candidate's failure is kept in the returned *LoadError.
func (l *Loader) LoadFirstAvailable(ctx context.Context, candidates []Target) (*Loaded, error) {
	if len(candidates) == 0 {
		return nil, &NoCandidatesError{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded != nil {
		return nil, &AlreadyLoadedError{Target: l.loaded.Target}
	}

	var errs error
	for _, target := range candidates {
		loaded, err := l.load(ctx, target)
		if err != nil {
			l.logger.Debug("Candidate failed",
				zap.Stringer("target", target),
				zap.Error(err),
			)
			errs = multierr.Append(errs, &CandidateError{Target: target, Err: err})
			continue
		}

		l.loaded = loaded
		l.logger.Info("Native core loaded",
			zap.Stringer("target", target),
			zap.String("size", humanize.Bytes(uint64(loaded.Size))),
			zap.String("path", loaded.Path),
		)
		return loaded, nil
	}

	return nil, &LoadError{Err: errs}
}

// Loaded returns the core opened by a successful load.
func (l *Loader) Loaded() (*Loaded, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded, l.loaded != nil
}

func (l *Loader) load(ctx context.Context, target Target) (*Loaded, error) {
	opener, ok := l.openers.Get(target.ext())
	if !ok {
		return nil, &UnsupportedExtensionError{Extension: target.ext()}
	}

	data, err := fs.ReadFile(l.bundle, target.Path())
	if err != nil {
		return nil, &ArtifactNotFoundError{Target: target, Err: err}
	}

	if err := l.verify(target, data); err != nil {
		return nil, err
	}

	path, err := l.materialize(target, data)
	if err != nil {
		return nil, err
	}

	lib, err := opener(ctx, l.fs, path)
	if err != nil {
		return nil, err
	}

	return &Loaded{
		Target:   target,
		Library:  lib,
		Path:     path,
		Size:     int64(len(data)),
		LoadedAt: time.Now(),
	}, nil
}

func (l *Loader) verify(target Target, data []byte) error {
	expected, ok := l.digests[target.Path()]
	if !ok || !l.cfg.VerifyDigest {
		return nil
	}

	sum := blake3.Sum256(data)
	actual := hex.EncodeToString(sum[:])
	if actual != expected {
		return &DigestMismatchError{Target: target, Expected: expected, Actual: actual}
	}
	return nil
}

// materialize copies data to a uniquely named temporary file that is removed
// when the loader is closed.
func (l *Loader) materialize(target Target, data []byte) (string, error) {
	if err := l.fs.MkdirAll(l.cfg.TempDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.%s", target.Name, uuid.NewString(), target.ext())
	path := filepath.Join(l.cfg.TempDir, name)

	f, err := l.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o700)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	l.temps = append(l.temps, path)

	_, err = f.Write(data)
	err = multierr.Append(err, f.Close())
	if err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, nil
}

// Close removes every materialized artifact. The loaded library must be
// closed first. Safe to call multiple times.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error
	for _, p := range l.temps {
		if rmErr := l.fs.Remove(p); rmErr != nil && !os.IsNotExist(rmErr) {
			err = multierr.Append(err, rmErr)
		}
	}
	l.temps = nil

	if err != nil {
		l.logger.Warn("Failed to remove temporary artifacts", zap.Error(err))
	}
	return err
}

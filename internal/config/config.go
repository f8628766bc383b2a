// Package config loads bridge configuration with viper.
package config

import (
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/woxQAQ/oobridge/internal/dispatch"
	"github.com/woxQAQ/oobridge/internal/lifecycle"
	"github.com/woxQAQ/oobridge/internal/loader"
	"github.com/woxQAQ/oobridge/internal/wasm"
)

// EnvPrefix prefixes environment overrides, e.g. OOBRIDGE_LOG_LEVEL.
const EnvPrefix = "OOBRIDGE"

type BridgeConfig struct {
	LogLevel  string                `mapstructure:"log_level"`
	Library   LibraryConfig         `mapstructure:"library"`
	Wasm      wasm.RuntimeConfig    `mapstructure:"wasm"`
	Dispatch  dispatch.WorkerConfig `mapstructure:"dispatch"`
	Lifecycle lifecycle.Config      `mapstructure:"lifecycle"`
}

// LibraryConfig locates the native core.
type LibraryConfig struct {
	// Name of the core, used to derive default targets.
	Name string `mapstructure:"name"`
	// BundleDir is the root of the packaged artifacts.
	BundleDir string `mapstructure:"bundle_dir"`
	// Targets overrides the candidate list. Empty means use the bundle
	// manifest, or the platform defaults when there is none.
	Targets []loader.Target `mapstructure:"targets"`

	loader.Config `mapstructure:",squash"`
}

// Load reads configuration from configPath on the OS filesystem.
// An empty path yields the defaults.
func Load(configPath string) (*BridgeConfig, error) {
	return LoadFs(afero.NewOsFs(), configPath)
}

// LoadFs reads configuration from configPath on fsys.
func LoadFs(fsys afero.Fs, configPath string) (*BridgeConfig, error) {
	v := viper.New()
	v.SetFs(fsys)

	// Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("library.name", "foo")
	v.SetDefault("library.bundle_dir", "./bundle")
	v.SetDefault("library.targets", []loader.Target{})
	v.SetDefault("library.temp_dir", "")
	v.SetDefault("library.verify_digest", true)

	// Wasm defaults
	wasmDefaults := wasm.DefaultRuntimeConfig()
	v.SetDefault("wasm.memory_pages", wasmDefaults.MemoryPages) // 16MB
	v.SetDefault("wasm.debug", wasmDefaults.DebugEnabled)
	v.SetDefault("wasm.cache_dir", wasmDefaults.CacheDir)
	v.SetDefault("wasm.max_instances", wasmDefaults.MaxInstances)

	v.SetDefault("dispatch.warn_queue_depth", dispatch.DefaultWarnDepth)
	v.SetDefault("lifecycle.leak_warnings", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg BridgeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

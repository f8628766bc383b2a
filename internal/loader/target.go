// Package loader locates a packaged native core for the running platform,
// materializes it as a file and opens it, falling back across candidates.
package loader

import (
	"fmt"
	"path"
	"runtime"
	"strings"
)

// Target is one candidate build of a native core, addressed inside the
// bundle as /<Directory>/<Name>.<Extension>.
type Target struct {
	Directory string `yaml:"directory" mapstructure:"directory"`
	Name      string `yaml:"name" mapstructure:"name"`
	Extension string `yaml:"extension" mapstructure:"extension"`
}

// Path returns the artifact's path inside the bundle, in fs.FS form.
func (t Target) Path() string {
	return path.Join(strings.Trim(t.Directory, "/"), t.Name+"."+t.ext())
}

// String returns the artifact's absolute bundle path.
func (t Target) String() string {
	return "/" + t.Path()
}

func (t Target) ext() string {
	return strings.ToLower(strings.TrimPrefix(t.Extension, "."))
}

// WasmDirectory holds the portable WebAssembly build.
const WasmDirectory = "wasm32-unknown-unknown"

var platformDirectories = map[string]string{
	"linux/amd64":   "x86_64-unknown-linux-gnu",
	"linux/arm64":   "aarch64-unknown-linux-gnu",
	"linux/386":     "i686-unknown-linux-gnu",
	"linux/arm":     "armv7-unknown-linux-gnueabihf",
	"linux/riscv64": "riscv64gc-unknown-linux-gnu",
	"darwin/amd64":  "x86_64-apple-darwin",
	"darwin/arm64":  "aarch64-apple-darwin",
	"windows/amd64": "x86_64-pc-windows-msvc",
	"windows/arm64": "aarch64-pc-windows-msvc",
	"freebsd/amd64": "x86_64-unknown-freebsd",
	"wasip1/wasm":   WasmDirectory,
	"js/wasm":       WasmDirectory,
}

// PlatformDirectory returns the conventional target directory for a Go
// platform.
func PlatformDirectory(goos, goarch string) (string, bool) {
	dir, ok := platformDirectories[goos+"/"+goarch]
	return dir, ok
}

// SharedLibraryExtension returns the shared library extension for goos.
func SharedLibraryExtension(goos string) string {
	switch goos {
	case "darwin", "ios":
		return "dylib"
	case "windows":
		return "dll"
	default:
		return "so"
	}
}

// DefaultTargets returns the candidates for a core named name on the
// running platform: the native build first, then the portable Wasm build.
func DefaultTargets(name string) []Target {
	var targets []Target
	if dir, ok := PlatformDirectory(runtime.GOOS, runtime.GOARCH); ok && dir != WasmDirectory {
		libName := name
		if runtime.GOOS != "windows" {
			libName = "lib" + name
		}
		targets = append(targets, Target{
			Directory: dir,
			Name:      libName,
			Extension: SharedLibraryExtension(runtime.GOOS),
		})
	}
	return append(targets, Target{Directory: WasmDirectory, Name: name, Extension: "wasm"})
}

// Platform returns the target directory of the running platform, or
// "<goos>-<goarch>" when it has no conventional name.
func Platform() string {
	if dir, ok := PlatformDirectory(runtime.GOOS, runtime.GOARCH); ok {
		return dir
	}
	return fmt.Sprintf("%s-%s", runtime.GOOS, runtime.GOARCH)
}

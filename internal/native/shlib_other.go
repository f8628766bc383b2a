//go:build !(darwin || freebsd || linux || netbsd)

package native

import "runtime"

// OpenSharedLibrary always fails on this platform.
func OpenSharedLibrary(path string) (Library, error) {
	return nil, &UnsupportedPlatformError{
		Backend:  "shared library",
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
}

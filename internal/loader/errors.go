package loader

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ManifestNotFoundError occurs when bundle.yaml is not found in a bundle.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when bundle.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when bundle.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// ArtifactNotFoundError occurs when a candidate has no artifact in the bundle.
type ArtifactNotFoundError struct {
	Target Target
	Err    error
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("artifact '%s' not found in bundle: %v", e.Target, e.Err)
}

func (e *ArtifactNotFoundError) Unwrap() error {
	return e.Err
}

// DigestMismatchError occurs when an artifact's BLAKE3 digest differs from
// the one recorded in the manifest.
type DigestMismatchError struct {
	Target   Target
	Expected string
	Actual   string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("digest mismatch for '%s': expected %s, got %s",
		e.Target, e.Expected, e.Actual)
}

// UnsupportedExtensionError occurs when no opener is registered for a
// candidate's extension.
type UnsupportedExtensionError struct {
	Extension string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("no opener registered for extension '%s'", e.Extension)
}

// OpenerAlreadyRegisteredError occurs when registering a duplicate opener.
type OpenerAlreadyRegisteredError struct {
	Extension string
}

func (e *OpenerAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("opener for extension '%s' is already registered", e.Extension)
}

// CandidateError records why one candidate failed to load.
type CandidateError struct {
	Target Target
	Err    error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}

// NoCandidatesError occurs when LoadFirstAvailable is given no targets.
type NoCandidatesError struct{}

func (e *NoCandidatesError) Error() string {
	return "no candidate targets to load"
}

// LoadError occurs when every candidate failed. It keeps every cause.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	causes := multierr.Errors(e.Err)
	msgs := make([]string, len(causes))
	for i, c := range causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("failed to load any of %d candidates: %s",
		len(causes), strings.Join(msgs, "; "))
}

// Unwrap returns the per-candidate failures, each a *CandidateError.
func (e *LoadError) Unwrap() []error {
	return multierr.Errors(e.Err)
}

// AlreadyLoadedError occurs when a loader that already succeeded is asked
// to load again.
type AlreadyLoadedError struct {
	Target Target
}

func (e *AlreadyLoadedError) Error() string {
	return fmt.Sprintf("native core already loaded from '%s'", e.Target)
}

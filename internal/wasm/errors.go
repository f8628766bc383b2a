package wasm

import (
	"errors"
	"fmt"
)

// CompileError occurs when a core's bytecode fails to decode or validate.
type CompileError struct {
	Core string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile core '%s': %v", e.Core, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// InstantiateError occurs when a compiled core cannot be instantiated, for
// instance because it imports something the host module does not provide.
type InstantiateError struct {
	Core       string
	InstanceID string
	Err        error
}

func (e *InstantiateError) Error() string {
	return fmt.Sprintf("failed to instantiate core '%s' as %s: %v", e.Core, e.InstanceID, e.Err)
}

func (e *InstantiateError) Unwrap() error {
	return e.Err
}

// InstanceLimitError occurs when MaxInstances cores are already running.
type InstanceLimitError struct {
	Max int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("instance limit reached (max: %d)", e.Max)
}

// CacheDirError occurs when the compilation cache directory cannot be used.
type CacheDirError struct {
	Dir string
	Err error
}

func (e *CacheDirError) Error() string {
	return fmt.Sprintf("cannot use compilation cache '%s': %v", e.Dir, e.Err)
}

func (e *CacheDirError) Unwrap() error {
	return e.Err
}

// HostImportError describes a host import the runtime could not serve.
type HostImportError struct {
	Import     string
	InstanceID string
	Err        error
}

func (e *HostImportError) Error() string {
	return fmt.Sprintf("host import '%s' called by %s: %v", e.Import, e.InstanceID, e.Err)
}

func (e *HostImportError) Unwrap() error {
	return e.Err
}

var errNotBound = errors.New("instance has no bound host")

// Package ffierr defines the typed failures surfaced by the bridge.
//
// Validation failures (ArgumentError, EnumRangeError) are raised before any
// native call is made. Domain failures (OperationError) come back from the
// native core with a typed code. The remaining kinds cover construction,
// lifecycle and asynchronous completion.
package ffierr

import (
	"errors"
	"fmt"
)

// ArgumentError occurs when a required argument is null or otherwise invalid.
// Param is always the top-level parameter name; Path locates a nested field.
type ArgumentError struct {
	Param  string
	Path   string
	Reason string
}

func (e *ArgumentError) Error() string {
	if e.Path != "" && e.Path != e.Param {
		return fmt.Sprintf("invalid argument '%s' at '%s': %s", e.Param, e.Path, e.Reason)
	}
	return fmt.Sprintf("invalid argument '%s': %s", e.Param, e.Reason)
}

// EnumRangeError occurs when an ordinal is outside an enum's declared variants.
type EnumRangeError struct {
	Param   string
	Enum    string
	Ordinal int64
}

func (e *EnumRangeError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("ordinal %d is not a variant of enum '%s'", e.Ordinal, e.Enum)
	}
	return fmt.Sprintf("ordinal %d is not a variant of enum '%s' (param: %s)",
		e.Ordinal, e.Enum, e.Param)
}

// ConstructionError occurs when a fallible constructor fails.
// No resource is produced.
type ConstructionError struct {
	Type string
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("failed to construct '%s': %v", e.Type, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// OperationError is a domain failure reported by the native core.
type OperationError struct {
	// Domain is the declared error enum, e.g. "MyError".
	Domain string
	// Code is the variant name, e.g. "BadPassword".
	Code string
	// Ordinal is the native status value.
	Ordinal uint32
	Message string
	// Payload carries a partial result returned alongside the failure.
	Payload any
}

func (e *OperationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s.%s: %s", e.Domain, e.Code, e.Message)
	}
	return fmt.Sprintf("%s.%s", e.Domain, e.Code)
}

// Is matches another OperationError with the same domain and code.
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok {
		return false
	}
	return e.Domain == t.Domain && e.Code == t.Code
}

// LifecycleError occurs when a disposed resource is used.
type LifecycleError struct {
	Type string
	Op   string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s: '%s' used after close", e.Op, e.Type)
}

// DroppedError occurs when a pending completion is discarded unresolved.
type DroppedError struct {
	Operation string
}

func (e *DroppedError) Error() string {
	return fmt.Sprintf("operation '%s' was dropped before completion", e.Operation)
}

// CallbackError occurs when a Go callback fails or panics while native code
// is waiting on it.
type CallbackError struct {
	Interface string
	Operation string
	Err       error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback '%s.%s' failed: %v", e.Interface, e.Operation, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a programmer error detected before the
// native core was reached.
func IsValidation(err error) bool {
	var argErr *ArgumentError
	var enumErr *EnumRangeError
	return errors.As(err, &argErr) || errors.As(err, &enumErr)
}

// Param returns the parameter named by a validation error, if any.
func Param(err error) (string, bool) {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return argErr.Param, true
	}
	var enumErr *EnumRangeError
	if errors.As(err, &enumErr) && enumErr.Param != "" {
		return enumErr.Param, true
	}
	return "", false
}

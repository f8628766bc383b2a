package ffierr

import (
	"errors"
	"fmt"
	"testing"
)

func TestArgumentError(t *testing.T) {
	err := &ArgumentError{Param: "value", Reason: "null"}

	expected := "invalid argument 'value': null"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}

	nested := &ArgumentError{Param: "value", Path: "value.inner.cb", Reason: "null"}
	expected = "invalid argument 'value' at 'value.inner.cb': null"
	if nested.Error() != expected {
		t.Errorf("Error message = %s, want %s", nested.Error(), expected)
	}
}

func TestEnumRangeError(t *testing.T) {
	err := &EnumRangeError{Param: "value", Enum: "Disjoint", Ordinal: 3}

	expected := "ordinal 3 is not a variant of enum 'Disjoint' (param: value)"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}
}

func TestOperationError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &OperationError{Domain: "MyError", Code: "BadPassword", Ordinal: 2})

	if !errors.Is(err, &OperationError{Domain: "MyError", Code: "BadPassword"}) {
		t.Error("expected errors.Is to match on domain and code")
	}
	if errors.Is(err, &OperationError{Domain: "MyError", Code: "NullArgument"}) {
		t.Error("expected errors.Is not to match a different code")
	}
}

func TestConstructionError_Unwrap(t *testing.T) {
	cause := &OperationError{Domain: "MyError", Code: "BadPassword"}
	err := &ConstructionError{Type: "ClassWithPassword", Err: cause}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatal("expected OperationError in chain")
	}
	if opErr.Code != "BadPassword" {
		t.Errorf("expected code BadPassword, got %s", opErr.Code)
	}
}

func TestIsValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"argument", &ArgumentError{Param: "value"}, true},
		{"enum", fmt.Errorf("call: %w", &EnumRangeError{Enum: "Single"}), true},
		{"operation", &OperationError{Domain: "MyError", Code: "BadPassword"}, false},
		{"lifecycle", &LifecycleError{Type: "ThreadClass", Op: "add"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidation(tt.err); got != tt.want {
				t.Errorf("IsValidation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParam(t *testing.T) {
	name, ok := Param(fmt.Errorf("call: %w", &ArgumentError{Param: "col"}))
	if !ok || name != "col" {
		t.Errorf("Param() = %q, %v, want col, true", name, ok)
	}

	if _, ok := Param(&DroppedError{Operation: "add"}); ok {
		t.Error("Param() should not report a parameter for DroppedError")
	}
}

// Package callback lets native code call Go implementations of capability
// interfaces through opaque handles.
package callback

import (
	"context"
	"fmt"

	"github.com/woxQAQ/oobridge/internal/marshal"
)

// Method implements one operation. Round-trip operations return a value of
// the declared result type; one-way operations return marshal.Null().
type Method func(ctx context.Context, args []marshal.Value) (marshal.Value, error)

// Methods maps operation names to their Go implementation. An operation with
// no entry uses the interface's declared default.
type Methods map[string]Method

// Operation is one named operation of an interface.
type Operation struct {
	Name   string
	Params []marshal.Field
	// Result is nil for one-way operations.
	Result marshal.Type
	// Default is used when an implementation does not override the operation.
	// Operations without a default must be implemented.
	Default Method
}

// OneWay reports whether native code does not wait for a result.
func (op *Operation) OneWay() bool {
	return op.Result == nil
}

// Interface is a capability interface that Go code can implement.
type Interface struct {
	Name       string
	Operations []Operation

	args []*marshal.StructType
}

// NewInterface declares an interface.
func NewInterface(name string, ops ...Operation) *Interface {
	iface := &Interface{Name: name, Operations: ops}
	iface.args = make([]*marshal.StructType, len(ops))
	for i, op := range ops {
		iface.args[i] = marshal.NewStruct(name+"."+op.Name, op.Params...)
	}
	return iface
}

// Type returns the marshal type used in signatures.
func (i *Interface) Type() *marshal.InterfaceType {
	return &marshal.InterfaceType{Name: i.Name}
}

// Args returns the in-memory layout native code uses for the arguments of
// operation op.
func (i *Interface) Args(op int) *marshal.StructType {
	return i.args[op]
}

// Index returns the position of the named operation.
func (i *Interface) Index(name string) (int, bool) {
	for idx, op := range i.Operations {
		if op.Name == name {
			return idx, true
		}
	}
	return 0, false
}

// IncompleteError occurs when an implementation omits a required operation.
type IncompleteError struct {
	Interface string
	Operation string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("interface '%s' requires operation '%s'", e.Interface, e.Operation)
}

// UnknownOperationError occurs when methods name an operation the interface
// does not declare.
type UnknownOperationError struct {
	Interface string
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("interface '%s' has no operation '%s'", e.Interface, e.Operation)
}

// Binding pairs an interface with a Go implementation.
type Binding struct {
	Interface *Interface
	// Target is the Go object kept reachable while native code holds the handle.
	Target  any
	Methods Methods

	// OneShot releases the registration after its first invocation.
	OneShot bool
	// OnRelease runs once the registration is released.
	OnRelease func()
}

// InterfaceName implements marshal.Binding.
func (b *Binding) InterfaceName() string {
	return b.Interface.Name
}

// Validate checks that every required operation has a method.
func (b *Binding) Validate() error {
	for name := range b.Methods {
		if _, ok := b.Interface.Index(name); !ok {
			return &UnknownOperationError{Interface: b.Interface.Name, Operation: name}
		}
	}
	for _, op := range b.Interface.Operations {
		if b.Methods[op.Name] == nil && op.Default == nil {
			return &IncompleteError{Interface: b.Interface.Name, Operation: op.Name}
		}
	}
	return nil
}

// Overrides reports whether the binding supplies its own implementation of
// the named operation rather than the default.
func (b *Binding) Overrides(name string) bool {
	return b.Methods[name] != nil
}

func (b *Binding) method(op int) Method {
	o := &b.Interface.Operations[op]
	if m := b.Methods[o.Name]; m != nil {
		return m
	}
	return o.Default
}

// Constant returns a default that always yields v.
func Constant(v marshal.Value) Method {
	return func(context.Context, []marshal.Value) (marshal.Value, error) {
		return v, nil
	}
}

// Nothing is the default for one-way operations that do nothing.
func Nothing(context.Context, []marshal.Value) (marshal.Value, error) {
	return marshal.Null(), nil
}

package bridge

import "github.com/woxQAQ/oobridge/internal/marshal"

// Param is one declared parameter of a native function.
type Param struct {
	Name string
	Type marshal.Type
	// ByRef passes a struct as a pointer to a copy in native memory.
	ByRef bool
}

// Signature describes how to call one native export.
type Signature struct {
	Symbol string
	Params []Param
	// Result is nil for functions that return nothing.
	Result marshal.Type
	// Errors makes the function fallible: its first result slot is a status
	// whose non-zero values are ordinals of this enum.
	Errors *marshal.EnumType
	// Out delivers the result through an out-area passed as the last
	// parameter. Fallible functions and string or struct results always use
	// an out-area.
	Out bool
	// Owned transfers a returned string to the caller, which frees it with
	// bridge_free once copied. Other returned strings are borrowed.
	Owned bool
	// Partial makes a failed call return its out-area as the error's Payload.
	Partial bool
}

// Instance is the object handle passed first to methods and destructors.
func Instance() Param {
	return Param{Name: "instance", Type: marshal.HandleType}
}

// Destructor returns the signature of a destructor export.
func Destructor(symbol string) *Signature {
	return &Signature{Symbol: symbol, Params: []Param{Instance()}}
}

func (s *Signature) usesOut() bool {
	if s.Result == nil {
		return false
	}
	if s.Out || s.Errors != nil {
		return true
	}
	switch s.Result.Kind() {
	case marshal.KindString, marshal.KindStruct:
		return true
	}
	return false
}

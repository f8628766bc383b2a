package marshal

import (
	"fmt"
	"unicode/utf8"

	"github.com/woxQAQ/oobridge/internal/ffierr"
)

// Validate checks v against t before anything reaches native code.
// Failures always name param, the top-level parameter; nested fields are
// reported in the error's Path.
func Validate(param string, t Type, v Value) error {
	return validate(param, param, t, v)
}

func validate(param, path string, t Type, v Value) error {
	if v.IsNull() {
		return &ffierr.ArgumentError{Param: param, Path: path, Reason: "required value is null"}
	}

	if want := t.Kind(); v.Kind() != want {
		return &ffierr.ArgumentError{
			Param:  param,
			Path:   path,
			Reason: fmt.Sprintf("expected %s, got %s", t, v.Kind()),
		}
	}

	switch tt := t.(type) {
	case *EnumType:
		if _, ok := tt.Lookup(v.Ordinal()); !ok {
			return &ffierr.EnumRangeError{Param: param, Enum: tt.Name, Ordinal: int64(v.Ordinal())}
		}
	case *DurationType:
		if v.Duration() < 0 {
			return &ffierr.ArgumentError{Param: param, Path: path, Reason: "negative duration"}
		}
	case *StructType:
		fields := v.Fields()
		if len(fields) != len(tt.Fields) {
			return &ffierr.ArgumentError{
				Param:  param,
				Path:   path,
				Reason: fmt.Sprintf("%s has %d fields, got %d", tt, len(tt.Fields), len(fields)),
			}
		}
		for i, f := range tt.Fields {
			if err := validate(param, path+"."+f.Name, f.Type, fields[i]); err != nil {
				return err
			}
		}
	case *IteratorType:
		return &ffierr.ArgumentError{Param: param, Path: path, Reason: "iterators are produced by native code"}
	case *PointerType:
		return &ffierr.ArgumentError{Param: param, Path: path, Reason: "pointers are produced by native code"}
	case *InterfaceType:
		if b := v.Binding(); b.InterfaceName() != tt.Name {
			return &ffierr.ArgumentError{
				Param:  param,
				Path:   path,
				Reason: fmt.Sprintf("expected interface %s, got %s", tt.Name, b.InterfaceName()),
			}
		}
	default:
		if t.Kind() == KindString && !utf8.ValidString(v.Str()) {
			return &ffierr.ArgumentError{Param: param, Path: path, Reason: "string is not valid UTF-8"}
		}
	}
	return nil
}

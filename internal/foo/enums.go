package foo

import (
	"context"

	"github.com/woxQAQ/oobridge/internal/ffierr"
	"github.com/woxQAQ/oobridge/internal/marshal"
)

type EnumZeroToFive uint32

const (
	EnumZeroToFiveZero EnumZeroToFive = iota
	EnumZeroToFiveOne
	EnumZeroToFiveTwo
	EnumZeroToFiveThree
	EnumZeroToFiveFour
	EnumZeroToFiveFive
)

type EnumOneToSix uint32

const (
	EnumOneToSixOne EnumOneToSix = iota + 1
	EnumOneToSixTwo
	EnumOneToSixThree
	EnumOneToSixFour
	EnumOneToSixFive
	EnumOneToSixSix
)

// EnumDisjoint has non-contiguous ordinals.
type EnumDisjoint uint32

const (
	EnumDisjointOne    EnumDisjoint = 1
	EnumDisjointTwo    EnumDisjoint = 2
	EnumDisjointFour   EnumDisjoint = 4
	EnumDisjointFive   EnumDisjoint = 5
	EnumDisjointSeven  EnumDisjoint = 7
	EnumDisjointTwenty EnumDisjoint = 20
)

type EnumSingle uint32

const EnumSingleSingle EnumSingle = 0

type StructureEnum uint32

const (
	StructureEnumVar1 StructureEnum = iota
	StructureEnumVar2
	StructureEnumVar3
)

// MathIsBroken is a failure queued with ThreadClass.QueueError.
type MathIsBroken uint32

const (
	MathIsBrokenMathIsBroke MathIsBroken = iota + 1
	MathIsBrokenDropped
)

// Domain failures, for use with errors.Is.
var (
	ErrBadPassword  = &ffierr.OperationError{Domain: "MyError", Code: "BadPassword"}
	ErrNullArgument = &ffierr.OperationError{Domain: "MyError", Code: "NullArgument"}
	ErrMathIsBroke  = &ffierr.OperationError{Domain: "MathIsBroken", Code: "MathIsBroke"}
)

func (l *Library) EnumZeroToFiveEcho(ctx context.Context, v EnumZeroToFive) (EnumZeroToFive, error) {
	r, err := l.call(ctx, sigEnumZeroToFiveEcho, marshal.Enum(uint32(v)))
	return EnumZeroToFive(r.Ordinal()), err
}

func (l *Library) EnumOneToSixEcho(ctx context.Context, v EnumOneToSix) (EnumOneToSix, error) {
	r, err := l.call(ctx, sigEnumOneToSixEcho, marshal.Enum(uint32(v)))
	return EnumOneToSix(r.Ordinal()), err
}

func (l *Library) EnumDisjointEcho(ctx context.Context, v EnumDisjoint) (EnumDisjoint, error) {
	r, err := l.call(ctx, sigEnumDisjointEcho, marshal.Enum(uint32(v)))
	return EnumDisjoint(r.Ordinal()), err
}

func (l *Library) EnumSingleEcho(ctx context.Context, v EnumSingle) (EnumSingle, error) {
	r, err := l.call(ctx, sigEnumSingleEcho, marshal.Enum(uint32(v)))
	return EnumSingle(r.Ordinal()), err
}

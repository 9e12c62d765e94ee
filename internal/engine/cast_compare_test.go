package engine

import (
	"testing"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
	"github.com/cidlib/macroeng/internal/runtimeclass/corelib"
)

// newTestEngineWithNumerics wires the real numeric family in, the same
// loader DefaultClasses seeds an engine with, so cast/compare can be
// exercised against actual CastFrom methods rather than fakes.
func newTestEngineWithNumerics(t *testing.T) *Engine {
	t.Helper()
	loader := runtimeclass.NewLoader(nil, corelib.NewNumericClasses()...)
	return New(WithLoader(loader))
}

func TestCastDynamicTruncatesInt4ToCard1(t *testing.T) {
	e := newTestEngineWithNumerics(t)
	reg := e.Registry()

	int4Desc, err := reg.FindClassByPath("MEng.Int4")
	if err != nil {
		t.Fatal(err)
	}
	card1Desc, err := reg.FindClassByPath("MEng.Card1")
	if err != nil {
		t.Fatal(err)
	}

	e.stack.Push(KindTemp, classmeta.NewValueObject(int4Desc.ID, int64(-1)))
	if err := e.cast(Instruction{Op: OpCastDynamic, ClassID: uint16(card1Desc.ID)}); err != nil {
		t.Fatalf("cast: %v", err)
	}

	result, err := e.stack.PopValue()
	if err != nil {
		t.Fatal(err)
	}
	if result.ClassID != card1Desc.ID {
		t.Fatalf("got class id %d, want Card1's %d", result.ClassID, card1Desc.ID)
	}
	if result.Payload != uint64(0xFF) {
		t.Fatalf("got payload %#v, want 0xFF", result.Payload)
	}
}

func TestCastDynamicTruncatesFloat8ToInt2(t *testing.T) {
	e := newTestEngineWithNumerics(t)
	reg := e.Registry()

	float8Desc, err := reg.FindClassByPath("MEng.Float8")
	if err != nil {
		t.Fatal(err)
	}
	int2Desc, err := reg.FindClassByPath("MEng.Int2")
	if err != nil {
		t.Fatal(err)
	}

	e.stack.Push(KindTemp, classmeta.NewValueObject(float8Desc.ID, float64(3.9)))
	if err := e.cast(Instruction{Op: OpCastDynamic, ClassID: uint16(int2Desc.ID)}); err != nil {
		t.Fatalf("cast: %v", err)
	}

	result, err := e.stack.PopValue()
	if err != nil {
		t.Fatal(err)
	}
	if result.Payload != int64(3) {
		t.Fatalf("got payload %#v, want 3", result.Payload)
	}
}

func TestCastDynamicRaisesBadCastWithNoAncestryAndNoCastFrom(t *testing.T) {
	e := newTestEngineWithNumerics(t)
	reg := e.Registry()

	int4Desc, err := reg.FindClassByPath("MEng.Int4")
	if err != nil {
		t.Fatal(err)
	}
	otherDesc, err := reg.RegisterClass("Test.Unrelated", ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		t.Fatal(err)
	}
	otherDesc.Seal()

	e.stack.Push(KindTemp, classmeta.NewValueObject(int4Desc.ID, int64(1)))
	err = e.cast(Instruction{Op: OpCastDynamic, ClassID: uint16(otherDesc.ID)})
	if _, ok := err.(*BadCastError); !ok {
		t.Fatalf("got %v, want *BadCastError", err)
	}
}

func TestCompareLTComparesNumericPayloads(t *testing.T) {
	e := newTestEngineWithNumerics(t)
	reg := e.Registry()

	int4Desc, err := reg.FindClassByPath("MEng.Int4")
	if err != nil {
		t.Fatal(err)
	}

	e.stack.Push(KindTemp, classmeta.NewValueObject(int4Desc.ID, int64(1)))
	e.stack.Push(KindTemp, classmeta.NewValueObject(int4Desc.ID, int64(2)))
	if err := e.compare(OpCompareLT); err != nil {
		t.Fatalf("compare: %v", err)
	}

	result, err := e.stack.PopValue()
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := result.Payload.(bool); !ok || !b {
		t.Fatalf("got %#v, want true (1 < 2)", result.Payload)
	}

	e.stack.Push(KindTemp, classmeta.NewValueObject(int4Desc.ID, int64(5)))
	e.stack.Push(KindTemp, classmeta.NewValueObject(int4Desc.ID, int64(2)))
	if err := e.compare(OpCompareGE); err != nil {
		t.Fatalf("compare: %v", err)
	}
	result, err = e.stack.PopValue()
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := result.Payload.(bool); !ok || !b {
		t.Fatalf("got %#v, want true (5 >= 2)", result.Payload)
	}
}

func TestCompareOrderingOnNonNumericPayloadsReturnsError(t *testing.T) {
	e := newTestEngineWithNumerics(t)
	reg := e.Registry()

	strDesc, err := reg.RegisterClass("Test.NonNumeric", ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		t.Fatal(err)
	}
	strDesc.Seal()

	e.stack.Push(KindTemp, classmeta.NewValueObject(strDesc.ID, "a"))
	e.stack.Push(KindTemp, classmeta.NewValueObject(strDesc.ID, "b"))
	if err := e.compare(OpCompareLT); err == nil {
		t.Fatal("expected an error ordering-comparing non-numeric payloads, got nil")
	}
}

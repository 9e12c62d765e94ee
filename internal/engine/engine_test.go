package engine

import (
	"testing"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// thrower is a minimal native RuntimeClass whose single method always
// raises, used to exercise the Try/Throw/EndTry unwind path without
// pulling in a full corelib class.
type thrower struct {
	boomID ids.MethodID
}

func (t *thrower) Path() string { return "Test.Thrower" }

func (t *thrower) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(t.Path(), ids.InvalidClassID, classmeta.NonFinal, true)
	if err != nil {
		return nil, err
	}
	id, err := reg.NextMethodID(desc.ID)
	if err != nil {
		return nil, err
	}
	t.boomID = id
	if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: "Boom"}); err != nil {
		return nil, err
	}
	return desc, nil
}

func (t *thrower) MakeStorage(bool) classmeta.Payload { return nil }

func (t *thrower) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	if methodID != t.boomID {
		return nil, false, nil
	}
	return nil, true, ctx.Raise(ids.ClassID(9999), 1, "boom")
}

func newTestEngineWithThrower(t *testing.T) (*Engine, *thrower, ids.ClassID) {
	t.Helper()
	th := &thrower{}
	// thrower.Init never touches its EngineContext, so a nil placeholder is
	// fine here; InvokeMethod is always handed the real *Engine at call
	// time regardless of what the loader was constructed with.
	loader := runtimeclass.NewLoader(nil, th)
	e := New(WithLoader(loader))

	desc, err := e.Registry().FindClassByPath("Test.Thrower")
	if err != nil {
		t.Fatalf("resolving Test.Thrower: %v", err)
	}
	return e, th, desc.ID
}

func TestInvokeEchoesFirstParam(t *testing.T) {
	e := New()
	reg := e.Registry()

	desc, err := reg.RegisterClass("Test.A", ids.InvalidClassID, classmeta.NonFinal, false)
	if err != nil {
		t.Fatal(err)
	}
	methodID, err := reg.NextMethodID(desc.ID)
	if err != nil {
		t.Fatal(err)
	}
	code := EncodeInstructions([]Instruction{
		{Op: OpPushParam, B: 0},
		{Op: OpReturn},
	})
	if err := desc.AddMethod(&classmeta.MethodDescriptor{
		ID:   methodID,
		Name: "Echo",
		Params: []classmeta.ParamDescriptor{
			{Index: 1, Name: "v", ClassID: ids.InvalidClassID, Direction: classmeta.DirIn},
		},
		Code: code,
	}); err != nil {
		t.Fatal(err)
	}
	desc.Seal()

	arg := classmeta.NewValueObject(ids.InvalidClassID, "hello")
	result, exc := e.Invoke("Test.A", "Echo", []*classmeta.ValueObject{arg})
	if exc != nil {
		t.Fatalf("unexpected exception: %+v", exc)
	}
	if result == nil || result.Payload != "hello" {
		t.Fatalf("got %#v, want echoed arg", result)
	}
}

func TestTryCatchesThrownExceptionAndResumesAtHandler(t *testing.T) {
	e, _, throwerID := newTestEngineWithThrower(t)
	reg := e.Registry()

	boolDesc, err := reg.RegisterClass("Test.Bool", ids.InvalidClassID, classmeta.NonFinal, true)
	if err != nil {
		t.Fatal(err)
	}
	boolDesc.Seal()

	aDesc, err := reg.RegisterClass("Test.Guarded", ids.InvalidClassID, classmeta.NonFinal, false)
	if err != nil {
		t.Fatal(err)
	}
	methodID, err := reg.NextMethodID(aDesc.ID)
	if err != nil {
		t.Fatal(err)
	}

	throwerDesc, _ := reg.FindClassByID(throwerID)
	boomID := throwerDesc.Methods[0].ID

	// 0: Try(handler=2)  1: CallDirect Thrower.Boom  2: PushBoolean  3: Return
	code := EncodeInstructions([]Instruction{
		{Op: OpTry, B: 2},
		{Op: OpCallDirect, ClassID: uint16(throwerID), B: uint16(boomID)},
		{Op: OpPushBoolean, ClassID: uint16(boolDesc.ID)},
		{Op: OpReturn},
	})
	if err := aDesc.AddMethod(&classmeta.MethodDescriptor{ID: methodID, Name: "Guarded", Code: code}); err != nil {
		t.Fatal(err)
	}
	aDesc.Seal()

	result, exc := e.Invoke("Test.Guarded", "Guarded", nil)
	if exc != nil {
		t.Fatalf("exception escaped the Try: %+v", exc)
	}
	if result == nil || result.ClassID != boolDesc.ID {
		t.Fatalf("got %#v, want a value of the handler's class", result)
	}
}

func TestInvokeUnhandledExceptionReachesHandler(t *testing.T) {
	e, _, throwerID := newTestEngineWithThrower(t)
	reg := e.Registry()

	aDesc, err := reg.RegisterClass("Test.Unguarded", ids.InvalidClassID, classmeta.NonFinal, false)
	if err != nil {
		t.Fatal(err)
	}
	methodID, err := reg.NextMethodID(aDesc.ID)
	if err != nil {
		t.Fatal(err)
	}
	throwerDesc, _ := reg.FindClassByID(throwerID)
	boomID := throwerDesc.Methods[0].ID

	code := EncodeInstructions([]Instruction{
		{Op: OpCallDirect, ClassID: uint16(throwerID), B: uint16(boomID)},
		{Op: OpReturn},
	})
	if err := aDesc.AddMethod(&classmeta.MethodDescriptor{ID: methodID, Name: "Run", Code: code}); err != nil {
		t.Fatal(err)
	}
	aDesc.Seal()

	var delivered *ExceptionValue
	e.unhandled = func(exc *ExceptionValue, _ []FrameSnapshot) { delivered = exc }

	result, exc := e.Invoke("Test.Unguarded", "Run", nil)
	if result != nil {
		t.Fatalf("expected nil result, got %#v", result)
	}
	if exc == nil || exc.ErrorText != "boom" {
		t.Fatalf("got %+v, want the raised exception", exc)
	}
	if delivered != exc {
		t.Fatalf("unhandled-exception handler was not invoked with the propagated exception")
	}
}

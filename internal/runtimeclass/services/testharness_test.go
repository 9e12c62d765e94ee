package services

import (
	"testing"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

type fakeCtx struct {
	reg         *classmeta.Registry
	sandboxBase string
	lastRaise   error
}

func (f *fakeCtx) Registry() *classmeta.Registry { return f.reg }
func (f *fakeCtx) Validating() bool              { return false }
func (f *fakeCtx) SandboxBase() string           { return f.sandboxBase }
func (f *fakeCtx) CurrentException() (ids.ClassID, uint32, bool) {
	return ids.InvalidClassID, 0, false
}
func (f *fakeCtx) Raise(classID ids.ClassID, ordinal uint32, text string) error {
	f.lastRaise = &raisedError{text: text}
	return f.lastRaise
}

type raisedError struct{ text string }

func (e *raisedError) Error() string { return e.text }

func newTestClass(t *testing.T, path string) (*fakeCtx, *classmeta.ClassDescriptor, runtimeclass.RuntimeClass, *classmeta.ValueObject) {
	t.Helper()
	reg := classmeta.NewRegistry()
	ctx := &fakeCtx{reg: reg}
	loader := runtimeclass.NewLoader(ctx, DefaultClasses()...)
	reg.AddLoader(loader)

	desc, err := reg.FindClassByPath(path)
	if err != nil {
		t.Fatalf("resolving %s: %v", path, err)
	}
	rc := loader.ClassFor(desc.ID)
	if rc == nil {
		t.Fatalf("loader has no class for %s", path)
	}
	recv := classmeta.NewValueObject(desc.ID, rc.MakeStorage(false))
	return ctx, desc, rc, recv
}

func invoke(t *testing.T, ctx *fakeCtx, rc runtimeclass.RuntimeClass, recv *classmeta.ValueObject, desc *classmeta.ClassDescriptor, name string, args ...*classmeta.ValueObject) (*classmeta.ValueObject, error) {
	t.Helper()
	m := desc.MethodByName(name)
	if m == nil {
		t.Fatalf("%s has no method %q", desc.Path, name)
	}
	result, handled, err := rc.InvokeMethod(ctx, m.ID, recv, args)
	if !handled {
		t.Fatalf("%s was not handled", name)
	}
	return result, err
}

func mustInvoke(t *testing.T, ctx *fakeCtx, rc runtimeclass.RuntimeClass, recv *classmeta.ValueObject, desc *classmeta.ClassDescriptor, name string, args ...*classmeta.ValueObject) *classmeta.ValueObject {
	t.Helper()
	result, err := invoke(t, ctx, rc, recv, desc, name, args...)
	if err != nil {
		t.Fatalf("invoking %s: %v", name, err)
	}
	return result
}

func vo(v any) *classmeta.ValueObject { return classmeta.NewValueObject(ids.InvalidClassID, v) }

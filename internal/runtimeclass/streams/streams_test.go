package streams

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// fakeCtx is a minimal runtimeclass.EngineContext for exercising a
// RuntimeClass's InvokeMethod directly, without spinning up a full engine.
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
	f.lastRaise = &raisedError{classID: classID, ordinal: ordinal, text: text}
	return f.lastRaise
}

type raisedError struct {
	classID ids.ClassID
	ordinal uint32
	text    string
}

func (e *raisedError) Error() string { return e.text }

func newTestRegistry(t *testing.T) (*classmeta.Registry, *fakeCtx, *runtimeclass.Loader) {
	t.Helper()
	reg := classmeta.NewRegistry()
	ctx := &fakeCtx{reg: reg}
	loader := runtimeclass.NewLoader(ctx, DefaultClasses()...)
	reg.AddLoader(loader)
	return reg, ctx, loader
}

func resolve(t *testing.T, reg *classmeta.Registry, loader *runtimeclass.Loader, path string) (*classmeta.ClassDescriptor, runtimeclass.RuntimeClass) {
	t.Helper()
	desc, err := reg.FindClassByPath(path)
	if err != nil {
		t.Fatalf("resolving %s: %v", path, err)
	}
	rc := loader.ClassFor(desc.ID)
	if rc == nil {
		t.Fatalf("loader has no RuntimeClass for %s", path)
	}
	return desc, rc
}

func invoke(t *testing.T, ctx *fakeCtx, rc runtimeclass.RuntimeClass, recv *classmeta.ValueObject, methodName string, desc *classmeta.ClassDescriptor, args ...*classmeta.ValueObject) *classmeta.ValueObject {
	t.Helper()
	m := desc.MethodByName(methodName)
	if m == nil {
		t.Fatalf("%s has no method %q", desc.Path, methodName)
	}
	result, handled, err := rc.InvokeMethod(ctx, m.ID, recv, args)
	if err != nil {
		t.Fatalf("invoking %s.%s: %v", desc.Path, methodName, err)
	}
	if !handled {
		t.Fatalf("%s.%s was not handled", desc.Path, methodName)
	}
	return result
}

func TestStreamHierarchyIsAssignableToTextInStream(t *testing.T) {
	reg, _, loader := newTestRegistry(t)
	base, _ := resolve(t, reg, loader, TextInStreamPath)
	str, _ := resolve(t, reg, loader, TextInStreamPath+".StringInStream")
	file, _ := resolve(t, reg, loader, TextInStreamPath+".FileInStream")
	console, _ := resolve(t, reg, loader, TextInStreamPath+".ConsoleInStream")

	for _, derived := range []*classmeta.ClassDescriptor{str, file, console} {
		if !reg.IsAssignableTo(derived.ID, base.ID) {
			t.Errorf("%s is not assignable to %s", derived.Path, base.Path)
		}
	}
}

func TestStringInStreamReadsLinesAndDetectsEndOfStream(t *testing.T) {
	reg, ctx, loader := newTestRegistry(t)
	desc, rc := resolve(t, reg, loader, TextInStreamPath+".StringInStream")

	recv := classmeta.NewValueObject(desc.ID, rc.MakeStorage(false))
	invoke(t, ctx, rc, recv, "SetText", desc, classmeta.NewValueObject(ids.InvalidClassID, "first\nsecond"))

	eof := invoke(t, ctx, rc, recv, "EndOfStream", desc)
	if eof.Payload.(bool) {
		t.Fatal("EndOfStream reported true before reading anything")
	}

	line1 := invoke(t, ctx, rc, recv, "ReadLine", desc)
	if line1.Payload.(string) != "first" {
		t.Fatalf("first ReadLine: got %q", line1.Payload)
	}
	line2 := invoke(t, ctx, rc, recv, "ReadLine", desc)
	if line2.Payload.(string) != "second" {
		t.Fatalf("second ReadLine: got %q", line2.Payload)
	}

	eof = invoke(t, ctx, rc, recv, "EndOfStream", desc)
	if !eof.Payload.(bool) {
		t.Fatal("EndOfStream reported false after consuming the whole string")
	}

	invoke(t, ctx, rc, recv, "Reset", desc)
	eof = invoke(t, ctx, rc, recv, "EndOfStream", desc)
	if eof.Payload.(bool) {
		t.Fatal("EndOfStream reported true immediately after Reset")
	}
}

func TestStringInStreamSyncWithReflectsLiveWrites(t *testing.T) {
	reg, ctx, loader := newTestRegistry(t)
	outDesc, outRC := resolve(t, reg, loader, TextOutStreamPath+".StringOutStream")
	inDesc, inRC := resolve(t, reg, loader, TextInStreamPath+".StringInStream")

	outRecv := classmeta.NewValueObject(outDesc.ID, outRC.MakeStorage(false))
	invoke(t, ctx, outRC, outRecv, "WriteLine", outDesc, classmeta.NewValueObject(ids.InvalidClassID, "hello"))

	inRecv := classmeta.NewValueObject(inDesc.ID, inRC.MakeStorage(false))
	invoke(t, ctx, inRC, inRecv, "SyncWith", inDesc, outRecv)

	line := invoke(t, ctx, inRC, inRecv, "ReadLine", inDesc)
	if line.Payload.(string) != "hello" {
		t.Fatalf("ReadLine after SyncWith: got %q", line.Payload)
	}

	invoke(t, ctx, outRC, outRecv, "WriteLine", outDesc, classmeta.NewValueObject(ids.InvalidClassID, "world"))
	line = invoke(t, ctx, inRC, inRecv, "ReadLine", inDesc)
	if line.Payload.(string) != "world" {
		t.Fatalf("ReadLine after a second write: got %q", line.Payload)
	}
}

func TestSetErrActionRejectsUnknownOrdinal(t *testing.T) {
	reg, ctx, loader := newTestRegistry(t)
	desc, rc := resolve(t, reg, loader, TextInStreamPath+".StringInStream")
	recv := classmeta.NewValueObject(desc.ID, rc.MakeStorage(false))

	m := desc.MethodByName("SetErrAction")
	_, handled, err := rc.InvokeMethod(ctx, m.ID, recv, []*classmeta.ValueObject{
		classmeta.NewValueObject(ids.InvalidClassID, int64(99)),
	})
	if !handled {
		t.Fatal("SetErrAction with a bad ordinal should still be handled (and raise)")
	}
	if err == nil {
		t.Fatal("expected an error for an out-of-range error-action ordinal")
	}
}

func TestFileInStreamReadsAndResetsASandboxedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.txt"), []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatalf("writing fixture file: %v", err)
	}

	reg := classmeta.NewRegistry()
	ctx := &fakeCtx{reg: reg, sandboxBase: dir}
	loader := runtimeclass.NewLoader(ctx, DefaultClasses()...)
	reg.AddLoader(loader)

	desc, rc := resolve(t, reg, loader, TextInStreamPath+".FileInStream")
	recv := classmeta.NewValueObject(desc.ID, rc.MakeStorage(false))

	invoke(t, ctx, rc, recv, "Open", desc, classmeta.NewValueObject(ids.InvalidClassID, "/data.txt"))
	defer invoke(t, ctx, rc, recv, "Close", desc)

	line := invoke(t, ctx, rc, recv, "ReadLine", desc)
	if line.Payload.(string) != "one" {
		t.Fatalf("first ReadLine: got %q", line.Payload)
	}
	invoke(t, ctx, rc, recv, "ReadLine", desc)

	invoke(t, ctx, rc, recv, "Reset", desc)
	line = invoke(t, ctx, rc, recv, "ReadLine", desc)
	if line.Payload.(string) != "one" {
		t.Fatalf("ReadLine after Reset: got %q", line.Payload)
	}
}

func TestSetErrActionPersistsAcrossCalls(t *testing.T) {
	reg, ctx, loader := newTestRegistry(t)
	desc, rc := resolve(t, reg, loader, TextInStreamPath+".StringInStream")
	recv := classmeta.NewValueObject(desc.ID, rc.MakeStorage(false))

	invoke(t, ctx, rc, recv, "SetErrAction", desc, classmeta.NewValueObject(ids.InvalidClassID, int64(2)))
	invoke(t, ctx, rc, recv, "SetRepChar", desc, classmeta.NewValueObject(ids.InvalidClassID, rune('#')))

	store, ok := recv.Payload.(*stringInStreamStorage)
	if !ok {
		t.Fatalf("receiver payload is %T, want *stringInStreamStorage", recv.Payload)
	}
	if store.state.action != errActReplace {
		t.Fatalf("error action did not persist: got %v, want errActReplace", store.state.action)
	}
	if store.state.repChar != '#' {
		t.Fatalf("replacement char did not persist: got %q, want '#'", store.state.repChar)
	}

	// A second, unrelated call must not reset the state back to defaults.
	invoke(t, ctx, rc, recv, "EndOfStream", desc)
	if store.state.action != errActReplace || store.state.repChar != '#' {
		t.Fatal("error action/rep char were reset by an unrelated call")
	}
}

func TestFileInStreamOpenRejectsEscapingPath(t *testing.T) {
	dir := t.TempDir()
	reg := classmeta.NewRegistry()
	ctx := &fakeCtx{reg: reg, sandboxBase: dir}
	loader := runtimeclass.NewLoader(ctx, DefaultClasses()...)
	reg.AddLoader(loader)

	desc, rc := resolve(t, reg, loader, TextInStreamPath+".FileInStream")
	recv := classmeta.NewValueObject(desc.ID, rc.MakeStorage(false))

	m := desc.MethodByName("Open")
	_, handled, err := rc.InvokeMethod(ctx, m.ID, recv, []*classmeta.ValueObject{
		classmeta.NewValueObject(ids.InvalidClassID, "/../escaped.txt"),
	})
	if !handled || err == nil {
		t.Fatal("expected Open to raise for a path escaping the sandbox base")
	}
}

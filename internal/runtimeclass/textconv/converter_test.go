package textconv

import (
	"testing"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

type fakeCtx struct {
	reg       *classmeta.Registry
	lastRaise error
}

func (f *fakeCtx) Registry() *classmeta.Registry { return f.reg }
func (f *fakeCtx) Validating() bool              { return false }
func (f *fakeCtx) SandboxBase() string           { return "" }
func (f *fakeCtx) CurrentException() (ids.ClassID, uint32, bool) {
	return ids.InvalidClassID, 0, false
}
func (f *fakeCtx) Raise(classID ids.ClassID, ordinal uint32, text string) error {
	f.lastRaise = &raisedError{text: text}
	return f.lastRaise
}

type raisedError struct{ text string }

func (e *raisedError) Error() string { return e.text }

func newTestConverter(t *testing.T) (*classmeta.Registry, *fakeCtx, *classmeta.ClassDescriptor, *TextConverter, *classmeta.ValueObject) {
	t.Helper()
	reg := classmeta.NewRegistry()
	ctx := &fakeCtx{reg: reg}
	loader := runtimeclass.NewLoader(ctx, DefaultClasses()...)
	reg.AddLoader(loader)

	desc, err := reg.FindClassByPath(TextConverterPath)
	if err != nil {
		t.Fatalf("resolving %s: %v", TextConverterPath, err)
	}
	rc, ok := loader.ClassFor(desc.ID).(*TextConverter)
	if !ok {
		t.Fatalf("loader has no *TextConverter for %s", TextConverterPath)
	}
	recv := classmeta.NewValueObject(desc.ID, rc.MakeStorage(false))
	return reg, ctx, desc, rc, recv
}

func invoke(t *testing.T, ctx *fakeCtx, rc *TextConverter, recv *classmeta.ValueObject, desc *classmeta.ClassDescriptor, name string, args ...*classmeta.ValueObject) *classmeta.ValueObject {
	t.Helper()
	m := desc.MethodByName(name)
	if m == nil {
		t.Fatalf("%s has no method %q", desc.Path, name)
	}
	result, handled, err := rc.InvokeMethod(ctx, m.ID, recv, args)
	if err != nil {
		t.Fatalf("invoking %s: %v", name, err)
	}
	if !handled {
		t.Fatalf("%s was not handled", name)
	}
	return result
}

func TestDefaultEncodingIsUTF8RoundTrip(t *testing.T) {
	_, ctx, desc, rc, recv := newTestConverter(t)

	out := invoke(t, ctx, rc, recv, desc, "ConvertTo", classmeta.NewValueObject(ids.InvalidClassID, "hello"))
	data := out.Payload.([]byte)
	if string(data) != "hello" {
		t.Fatalf("ConvertTo under UTF-8: got %q", data)
	}

	back := invoke(t, ctx, rc, recv, desc, "ConvertFrom", classmeta.NewValueObject(ids.InvalidClassID, data))
	result := back.Payload.(convertResult)
	if result.Text() != "hello" || result.Consumed() != len(data) {
		t.Fatalf("ConvertFrom round trip: got %q consumed=%d", result.Text(), result.Consumed())
	}
}

func TestSetEncodingRejectsUnknownName(t *testing.T) {
	_, ctx, desc, rc, recv := newTestConverter(t)

	m := desc.MethodByName("SetEncoding")
	_, handled, err := rc.InvokeMethod(ctx, m.ID, recv, []*classmeta.ValueObject{
		classmeta.NewValueObject(ids.InvalidClassID, "EBCDIC-9999"),
	})
	if !handled || err == nil {
		t.Fatal("expected SetEncoding to raise for an unknown encoding name")
	}
}

func TestUSASCIIConvertFromRejectsHighBitBytes(t *testing.T) {
	_, ctx, desc, rc, recv := newTestConverter(t)
	invoke(t, ctx, rc, recv, desc, "SetEncoding", classmeta.NewValueObject(ids.InvalidClassID, "US-ASCII"))

	m := desc.MethodByName("ConvertFrom")
	_, handled, err := rc.InvokeMethod(ctx, m.ID, recv, []*classmeta.ValueObject{
		classmeta.NewValueObject(ids.InvalidClassID, []byte{0x41, 0xFF}),
	})
	if !handled || err == nil {
		t.Fatal("expected ConvertFrom to raise BadSrcData for a non-ASCII byte under US-ASCII")
	}
}

func TestUSASCIIConvertFromReplacesUnderReplaceAction(t *testing.T) {
	_, ctx, desc, rc, recv := newTestConverter(t)
	invoke(t, ctx, rc, recv, desc, "SetEncoding", classmeta.NewValueObject(ids.InvalidClassID, "US-ASCII"))
	invoke(t, ctx, rc, recv, desc, "SetErrAction", classmeta.NewValueObject(ids.InvalidClassID, int64(errActReplace)))
	invoke(t, ctx, rc, recv, desc, "SetRepChar", classmeta.NewValueObject(ids.InvalidClassID, rune('?')))

	result := invoke(t, ctx, rc, recv, desc, "ConvertFrom", classmeta.NewValueObject(ids.InvalidClassID, []byte{0x41, 0xFF, 0x42}))
	cr := result.Payload.(convertResult)
	if cr.Text() != "A?B" {
		t.Fatalf("ConvertFrom with Replace action: got %q", cr.Text())
	}
}

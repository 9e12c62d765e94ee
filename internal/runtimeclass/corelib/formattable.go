package corelib

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// FormattableMethodID is the method id Formattable.Init allocates for the
// abstract FormatTo method, kept in a package-level variable so it can be
// used without a by-name lookup. The intrinsic classes register their own
// FormatTo ids and do not share this one. Set by Formattable.Init the
// first time the class loads; zero until then.
var FormattableMethodID ids.MethodID

// Formattable is MEng.Formattable: the abstract contract requiring a
// FormatTo(stream) override. Every intrinsic value
// class above (numerics, Boolean, Char, String) implements an equivalent
// FormatTo method directly rather than inheriting from this class, since
// a RuntimeClass has no Go-level subclassing; Formattable exists so
// program-defined classes can declare themselves formattable and have
// the engine enforce the override requirement the usual way (calling an
// unresolved Required method via OpCallRequired is an engine bug).
type Formattable struct {
	idFormatTo ids.MethodID
}

func (f *Formattable) Path() string { return "MEng.Formattable" }

func (f *Formattable) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(f.Path(), ids.InvalidClassID, classmeta.Abstract, true)
	if err != nil {
		return nil, err
	}
	id, err := reg.NextMethodID(desc.ID)
	if err != nil {
		return nil, err
	}
	f.idFormatTo = id
	FormattableMethodID = id
	if err := desc.AddMethod(&classmeta.MethodDescriptor{
		ID: id, Name: "FormatTo", ReturnClassID: ids.InvalidClassID,
		Extensibility: classmeta.MethodRequired, Required: true,
	}); err != nil {
		return nil, err
	}
	return desc, nil
}

func (f *Formattable) MakeStorage(bool) classmeta.Payload { return nil }

// InvokeMethod never handles FormatTo itself — it is abstract by
// definition — so every call returns handled=false, letting OpCallRequired
// fail loudly if a subclass never actually provided an override.
func (f *Formattable) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	return nil, false, nil
}

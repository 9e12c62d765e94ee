package corelib

import (
	"fmt"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// vectorStorage is Vector-of-T's native payload: an ordered, growable
// slice of owned member values.
type vectorStorage struct {
	elements []*classmeta.ValueObject
}

// Vector is MEng.Vector<T>, parameterized at construction time by the
// element class's path — each distinct elementPath registers its own
// class id, a "Vector-of-T" generic-by-instantiation model rather than Go
// generics (the engine's class registry, not the Go type system, is what
// callers dispatch against).
type Vector struct {
	elementPath string

	idAppend, idRemove, idValueAt, idSetValueAt, idCount, idClear ids.MethodID
}

// NewVectorClass returns a Vector RuntimeClass specialized to elementPath,
// e.g. NewVectorClass("MEng.Card4") for a Vector<Card4>.
func NewVectorClass(elementPath string) *Vector {
	return &Vector{elementPath: elementPath}
}

func (v *Vector) Path() string { return fmt.Sprintf("MEng.Vector<%s>", v.elementPath) }

func (v *Vector) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(v.Path(), ids.InvalidClassID, classmeta.NonFinal, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Append": &v.idAppend, "Remove": &v.idRemove, "ValueAt": &v.idValueAt,
		"SetValueAt": &v.idSetValueAt, "Count": &v.idCount, "Clear": &v.idClear,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return nil, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (v *Vector) MakeStorage(bool) classmeta.Payload { return &vectorStorage{} }

func (v *Vector) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*vectorStorage)
	if store == nil {
		store = &vectorStorage{}
		receiver.Payload = store
	}

	switch methodID {
	case v.idAppend:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		if len(args) > 0 {
			store.elements = append(store.elements, args[0])
		}
		return receiver, true, nil

	case v.idRemove:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		at := intArg(args, 0)
		if at < 0 || at >= len(store.elements) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "remove index out of range")
		}
		store.elements = append(store.elements[:at], store.elements[at+1:]...)
		return receiver, true, nil

	case v.idValueAt:
		at := intArg(args, 0)
		if at < 0 || at >= len(store.elements) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "index out of range")
		}
		return store.elements[at], true, nil

	case v.idSetValueAt:
		at := intArg(args, 0)
		if at < 0 || at >= len(store.elements) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "index out of range")
		}
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		if len(args) > 1 {
			store.elements[at] = args[1]
		}
		return receiver, true, nil

	case v.idCount:
		return classmeta.NewValueObject(ids.InvalidClassID, int64(len(store.elements))), true, nil

	case v.idClear:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		store.elements = nil
		return receiver, true, nil
	}
	return nil, false, nil
}

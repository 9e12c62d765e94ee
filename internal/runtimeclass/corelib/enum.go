package corelib

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// EnumValueSpec describes one named member of an Enum class: its ordinal,
// display text, and an optional host-defined map value (CIDMacroEng lets
// an enum carry a parallel "map" value per member, e.g. the numeric
// radix each Radices member corresponds to).
type EnumValueSpec struct {
	Name     string
	Ordinal  int64
	Text     string
	MapValue int64
}

// enumStorage holds the current ordinal; Name/Text/MapValue are resolved
// back against the owning Enum's specs at call time.
type enumStorage struct {
	ordinal int64
}

// Enum is a parameterized MEng.* enum class: every enum built with
// NewEnumClass is an instance of this one RuntimeClass, distinguished by
// path and its EnumValueSpec table, mirroring how Vector-of-T is
// parameterized by element path rather than duplicated per instantiation.
// BaseInfo's nested enums (CreateActs, FindRes, Radices, HorzJustify, ...)
// are not built from it: BaseInfo carries the radices as plain integer
// literals and does not define the others.
type Enum struct {
	path   string
	values []EnumValueSpec

	idOrdinal, idName, idText, idMapValue, idEq, idNe ids.MethodID
}

// NewEnumClass returns an Enum RuntimeClass at path with the given
// ordered member specs.
func NewEnumClass(path string, values []EnumValueSpec) *Enum {
	return &Enum{path: path, values: values}
}

func (e *Enum) Path() string { return e.path }

func (e *Enum) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(e.path, ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Ordinal": &e.idOrdinal, "Name": &e.idName, "Text": &e.idText,
		"MapValue": &e.idMapValue, "Eq": &e.idEq, "Ne": &e.idNe,
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
	for _, v := range e.values {
		if err := desc.AddLiteral(&classmeta.LiteralValue{Name: v.Name, ClassID: desc.ID, Payload: v.Ordinal}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (e *Enum) MakeStorage(bool) classmeta.Payload {
	if len(e.values) == 0 {
		return &enumStorage{}
	}
	return &enumStorage{ordinal: e.values[0].Ordinal}
}

func (e *Enum) specFor(ordinal int64) *EnumValueSpec {
	for i := range e.values {
		if e.values[i].Ordinal == ordinal {
			return &e.values[i]
		}
	}
	return nil
}

func (e *Enum) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*enumStorage)
	if store == nil {
		store = &enumStorage{}
		receiver.Payload = store
	}

	switch methodID {
	case e.idOrdinal:
		return classmeta.NewValueObject(ids.InvalidClassID, store.ordinal), true, nil
	case e.idName:
		if spec := e.specFor(store.ordinal); spec != nil {
			return classmeta.NewValueObject(ids.InvalidClassID, spec.Name), true, nil
		}
		return classmeta.NewValueObject(ids.InvalidClassID, ""), true, nil
	case e.idText:
		if spec := e.specFor(store.ordinal); spec != nil {
			return classmeta.NewValueObject(ids.InvalidClassID, spec.Text), true, nil
		}
		return classmeta.NewValueObject(ids.InvalidClassID, ""), true, nil
	case e.idMapValue:
		if spec := e.specFor(store.ordinal); spec != nil {
			return classmeta.NewValueObject(ids.InvalidClassID, spec.MapValue), true, nil
		}
		return classmeta.NewValueObject(ids.InvalidClassID, int64(0)), true, nil
	case e.idEq:
		rhs := int64(intArg(args, 0))
		return classmeta.NewValueObject(ids.InvalidClassID, store.ordinal == rhs), true, nil
	case e.idNe:
		rhs := int64(intArg(args, 0))
		return classmeta.NewValueObject(ids.InvalidClassID, store.ordinal != rhs), true, nil
	}
	return nil, false, nil
}

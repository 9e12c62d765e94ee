package corelib

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// Boolean is MEng.Boolean: a true/false value with equality and the And,
// Or and Not logical operators.
type Boolean struct {
	idEq, idNe, idAnd, idOr, idNot, idFormatTo ids.MethodID
}

func (b *Boolean) Path() string { return "MEng.Boolean" }

func (b *Boolean) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(b.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Eq": &b.idEq, "Ne": &b.idNe, "And": &b.idAnd, "Or": &b.idOr,
		"Not": &b.idNot, "FormatTo": &b.idFormatTo,
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

func (b *Boolean) MakeStorage(bool) classmeta.Payload { return false }

func (b *Boolean) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	self, _ := receiver.Payload.(bool)
	var rhs bool
	if len(args) > 0 {
		rhs, _ = args[0].Payload.(bool)
	}
	result := func(v bool) *classmeta.ValueObject { return classmeta.NewValueObject(receiver.ClassID, v) }

	switch methodID {
	case b.idEq:
		return result(self == rhs), true, nil
	case b.idNe:
		return result(self != rhs), true, nil
	case b.idAnd:
		return result(self && rhs), true, nil
	case b.idOr:
		return result(self || rhs), true, nil
	case b.idNot:
		return result(!self), true, nil
	case b.idFormatTo:
		text := "False"
		if self {
			text = "True"
		}
		return classmeta.NewValueObject(ids.InvalidClassID, text), true, nil
	}
	return nil, false, nil
}

package corelib

import (
	"unicode"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// Char is MEng.Char: a single Unicode code point with classification and
// case-conversion operations.
type Char struct {
	idEq, idNe, idLt, idGt                              ids.MethodID
	idIsAlpha, idIsAsciiAlpha, idIsAlphaNum, idIsDigit   ids.MethodID
	idIsHexDigit, idIsSpace                              ids.MethodID
	idToUpper, idToLower, idOrdinal, idSetOrdinal        ids.MethodID
	idFormatTo                                           ids.MethodID
}

func (c *Char) Path() string { return "MEng.Char" }

func (c *Char) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(c.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Eq": &c.idEq, "Ne": &c.idNe, "Lt": &c.idLt, "Gt": &c.idGt,
		"IsAlpha": &c.idIsAlpha, "IsAsciiAlpha": &c.idIsAsciiAlpha,
		"IsAlphaNum": &c.idIsAlphaNum, "IsDigit": &c.idIsDigit,
		"IsHexDigit": &c.idIsHexDigit, "IsSpace": &c.idIsSpace,
		"ToUpper": &c.idToUpper, "ToLower": &c.idToLower,
		"Ordinal": &c.idOrdinal, "SetOrdinal": &c.idSetOrdinal,
		"FormatTo": &c.idFormatTo,
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

func (c *Char) MakeStorage(bool) classmeta.Payload { return rune(0) }

func (c *Char) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	self, _ := receiver.Payload.(rune)
	var rhs rune
	if len(args) > 0 {
		rhs, _ = args[0].Payload.(rune)
	}
	boolVal := func(v bool) *classmeta.ValueObject { return classmeta.NewValueObject(ids.InvalidClassID, v) }

	switch methodID {
	case c.idEq:
		return boolVal(self == rhs), true, nil
	case c.idNe:
		return boolVal(self != rhs), true, nil
	case c.idLt:
		return boolVal(self < rhs), true, nil
	case c.idGt:
		return boolVal(self > rhs), true, nil
	case c.idIsAlpha:
		return boolVal(unicode.IsLetter(self)), true, nil
	case c.idIsAsciiAlpha:
		return boolVal((self >= 'a' && self <= 'z') || (self >= 'A' && self <= 'Z')), true, nil
	case c.idIsAlphaNum:
		return boolVal(unicode.IsLetter(self) || unicode.IsDigit(self)), true, nil
	case c.idIsDigit:
		return boolVal(unicode.IsDigit(self)), true, nil
	case c.idIsHexDigit:
		return boolVal((self >= '0' && self <= '9') || (self >= 'a' && self <= 'f') || (self >= 'A' && self <= 'F')), true, nil
	case c.idIsSpace:
		return boolVal(unicode.IsSpace(self)), true, nil
	case c.idToUpper:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = unicode.ToUpper(self)
		return receiver, true, nil
	case c.idToLower:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = unicode.ToLower(self)
		return receiver, true, nil
	case c.idOrdinal:
		return classmeta.NewValueObject(ids.InvalidClassID, int64(self)), true, nil
	case c.idSetOrdinal:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		if len(args) > 0 {
			if n, ok := args[0].Payload.(int64); ok {
				receiver.Payload = rune(n)
			}
		}
		return receiver, true, nil
	case c.idFormatTo:
		return classmeta.NewValueObject(ids.InvalidClassID, string(self)), true, nil
	}
	return nil, false, nil
}

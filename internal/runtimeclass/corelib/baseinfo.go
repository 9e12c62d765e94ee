package corelib

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// BaseInfo is MEng.BaseInfo, grounded on CIDMacroEng_BaseInfoClass.cpp: a
// namespace-like class that exists mainly to carry shared enum literals
// (radices, find results, horizontal justification, ...) and a handful of
// environment queries. Only the Radices literals and IsInDebugMode are
// wired here; the remaining nested enums (CreateActs, FindRes, FQTypes,
// HorzJustify, UpDnCl) need the parameterized Enum-class support noted in
// DESIGN.md and are not yet built.
type BaseInfo struct {
	idIsInDebugMode ids.MethodID
	debugMode       bool
}

func (b *BaseInfo) Path() string { return "MEng.BaseInfo" }

func (b *BaseInfo) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(b.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	id, err := reg.NextMethodID(desc.ID)
	if err != nil {
		return nil, err
	}
	b.idIsInDebugMode = id
	if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: "IsInDebugMode", ReturnClassID: desc.ID}); err != nil {
		return nil, err
	}

	for name, val := range map[string]int64{
		"kRadix_Bin": int64(RadixBin), "kRadix_Oct": int64(RadixOct),
		"kRadix_Dec": int64(RadixDec), "kRadix_Hex": int64(RadixHex),
	} {
		if err := desc.AddLiteral(&classmeta.LiteralValue{Name: name, ClassID: desc.ID, Payload: val}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (b *BaseInfo) MakeStorage(bool) classmeta.Payload { return nil }

func (b *BaseInfo) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	if methodID == b.idIsInDebugMode {
		return classmeta.NewValueObject(ids.InvalidClassID, ctx.Validating()), true, nil
	}
	return nil, false, nil
}

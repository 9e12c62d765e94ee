package corelib

import "github.com/cidlib/macroeng/internal/runtimeclass"

// DefaultClasses returns every non-parameterized intrinsic value class:
// the full numeric family, Boolean, Char, String, StringList, MemBuf,
// KVPair, Formattable, Exception, Random, and BaseInfo. Vector-of-T and
// Enum are parameterized by the caller's element type / member table
// (NewVectorClass, NewEnumClass) and so aren't part of this fixed set.
func DefaultClasses() []runtimeclass.RuntimeClass {
	out := []runtimeclass.RuntimeClass{
		&Boolean{}, &Char{}, &String{}, &StringList{}, &MemBuf{},
		&KVPair{}, &Formattable{}, &Exception{}, &Random{}, &BaseInfo{},
	}
	return append(out, NewNumericClasses()...)
}

// NewDefaultLoader builds a runtimeclass.Loader seeded with DefaultClasses,
// ready to append to the engine's native loader chain alongside any
// host-specific bindings.
func NewDefaultLoader(ctx runtimeclass.EngineContext) *runtimeclass.Loader {
	return runtimeclass.NewLoader(ctx, DefaultClasses()...)
}

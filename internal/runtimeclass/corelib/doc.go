// Package corelib implements the intrinsic value classes every program
// needs before it runs: numerics, Boolean, Char, String, StringList, Enum
// support, MemBuf, KVPair, Vector-of-T, Formattable, Exception, plus the
// supplemented Random and BaseInfo classes.
//
// Grounded on the interpreter's internal/interp/runtime primitive value
// files for the Go-side shape (a Value-ish payload plus method dispatch) and on
// original_source/'s CIDMacroEng_*.cpp files (CIDMacroEng_IntClasses.cpp,
// CIDMacroEng_StringClass.cpp, CIDMacroEng_RandomClasses.cpp,
// CIDMacroEng_BaseInfoClass.cpp) for exact method/literal surfaces.
package corelib

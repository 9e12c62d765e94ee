// Package streams implements the text in/out stream hierarchy:
// MEng.System.Runtime.TextInStream/TextOutStream and their console, file,
// and string-backed derivatives.
//
// Grounded on CIDMacroEng_InputStreamClasses.cpp for the input side (class
// paths, method/ctor surfaces, the nested InErrActs/InpStrmErrors enums);
// the output side has no surviving source file in the retrieval pack, so
// TextOutStream and its derivatives are built by symmetry with the input
// side and the references to TTextOutStream the input file itself makes
// (StringInStream's "sync with a StringOutStream" constructor, notably).
//
// None of these classes are related by Go-level subclassing: a
// RuntimeClass has no parent pointer into another RuntimeClass the way
// corelib.Formattable's doc comment explains for the abstract-method case.
// Instead each concrete derivative registers its own copies of the shared
// method set (EndOfStream, ReadLine, Reset, SetErrAction, SetRepChar for
// in-streams; the write-side equivalents for out-streams) via the
// addBaseInStreamMethods/addBaseOutStreamMethods helpers below, and embeds
// the matching baseInStreamState/baseOutStreamState struct so the default
// behavior is written once. The class descriptor's ParentID is still set
// to the real TextInStream/TextOutStream id, so IsAssignableTo and casts
// see the hierarchy the language program expects.
package streams

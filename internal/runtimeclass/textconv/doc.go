// Package textconv implements MEng.System.Runtime.TextConverter: a
// named-encoding wrapper converting between host byte buffers and
// program strings.
//
// CIDMacroEng_InputStreamClasses.cpp embeds its converter inside each
// text stream (TTextConverter reached via tcvtThis()) rather than
// exposing it as a standalone macro-visible class; this package exposes
// the standalone class the language description calls for, grounded on
// the same error-action/replacement-character contract that file shows
// for SetErrAction/SetRepChar. The actual encodings are the interpreter's
// own golang.org/x/text/encoding dependency (already used in go-dws for
// BOM-sniffing file loads), extended here with a small US-ASCII codec
// since x/text has no named ASCII-only Encoding of its own.
package textconv

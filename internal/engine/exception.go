package engine

import "github.com/cidlib/macroeng/internal/ids"

// ExceptionValue is the engine's single in-flight exception slot.
// Populated by Raise, unwound frame-by-frame until a Try frame catches
// it or it reaches the unhandled-exception handler.
type ExceptionValue struct {
	SourceClassPath string
	ErrorClassID    ids.ClassID // the enum class this error belongs to
	ErrorOrdinal    uint32
	ErrorName       string
	ErrorText       string
	Line            int

	// HostError, if non-nil, is the original host-language error a
	// runtime-class wrapper caught and translated.
	HostError error
}

// Error implements the error interface so an *ExceptionValue can travel
// through the engine's ordinary Go error-return plumbing until it either
// reaches a Try or escapes as Invoke's unhandled exception.
func (e *ExceptionValue) Error() string {
	if e.ErrorText != "" {
		return e.ErrorText
	}
	return e.ErrorName
}

// tryFrame records a guarded region: the stack/frame depth to unwind to
// and the handler program counter to resume at, for the Try/EndTry/Throw
// opcodes.
type tryFrame struct {
	frameDepth int
	stackDepth int
	handlerPC  int
	frame      *Frame // the frame the Try was entered in; handler resumes here
}

// Check reports whether the in-flight exception equals the given
// enum-class + ordinal pair, the macro-visible Exception.Check.
func (e *ExceptionValue) Check(classID ids.ClassID, ordinal uint32) bool {
	return e != nil && e.ErrorClassID == classID && e.ErrorOrdinal == ordinal
}

// CheckGreater reports whether the in-flight exception is the same enum
// class and its ordinal is >= the given ordinal, the macro-visible
// Exception.CheckGreater, used for ordered error-code ranges.
func (e *ExceptionValue) CheckGreater(classID ids.ClassID, ordinal uint32) bool {
	return e != nil && e.ErrorClassID == classID && e.ErrorOrdinal >= ordinal
}

// ReraiseError is returned by Raise if an exception is already in flight:
// the single-in-flight-exception invariant is an engine bug, not a
// language-visible condition, when violated.
type ReraiseError struct{ Existing *ExceptionValue }

func (e *ReraiseError) Error() string {
	return "engine: Throw invoked while an exception is already in flight (engine bug)"
}

package diag

import (
	"fmt"
	"strings"
)

// Frame is the minimal per-frame information FormatBacktrace needs; it
// mirrors internal/engine.FrameSnapshot's fields without importing
// internal/engine (which would create a reverse dependency — diag sits
// below engine, not beside it).
type Frame struct {
	ClassPath  string
	MethodName string
	Line       int
}

// Exception is the minimal information FormatBacktrace needs from an
// internal/engine.ExceptionValue, passed in by the caller rather than
// imported directly for the same layering reason as Frame.
type Exception struct {
	SourceClassPath string
	ErrorName       string
	ErrorText       string
}

// FormatBacktrace renders an unhandled exception and its call stack the
// way go-dws's CompilerError.Format renders a parse error: a header line
// followed by one line per frame, innermost first, with a caret-style
// "raised here" marker on the topmost frame.
func FormatBacktrace(exc Exception, frames []Frame) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Unhandled exception: %s", exc.ErrorName)
	if exc.ErrorText != "" && exc.ErrorText != exc.ErrorName {
		fmt.Fprintf(&sb, " (%s)", exc.ErrorText)
	}
	sb.WriteString("\n")
	if exc.SourceClassPath != "" {
		fmt.Fprintf(&sb, "  raised by %s\n", exc.SourceClassPath)
	}

	for i, f := range frames {
		marker := "  "
		if i == 0 {
			marker = "> "
		}
		fmt.Fprintf(&sb, "%sat %s.%s:%d\n", marker, f.ClassPath, f.MethodName, f.Line)
	}

	return sb.String()
}

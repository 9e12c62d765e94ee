package diag

import (
	"strings"
	"testing"
)

func TestFormatBacktraceMarksTopmostFrame(t *testing.T) {
	out := FormatBacktrace(
		Exception{SourceClassPath: "MEng.MyApp", ErrorName: "DivideByZero", ErrorText: "division by zero"},
		[]Frame{
			{ClassPath: "MEng.MyApp", MethodName: "Compute", Line: 12},
			{ClassPath: "MEng.MyApp", MethodName: "Main", Line: 3},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if !strings.Contains(lines[0], "DivideByZero") {
		t.Fatalf("expected error name in header, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[len(lines)-2], "> ") {
		t.Fatalf("expected topmost frame marker, got %q", lines[len(lines)-2])
	}
	if !strings.Contains(out, "Compute:12") {
		t.Fatalf("expected innermost frame location in output, got %q", out)
	}
}

func TestFormatBacktraceOmitsDuplicateText(t *testing.T) {
	out := FormatBacktrace(Exception{ErrorName: "Boom", ErrorText: "Boom"}, nil)
	if strings.Count(out, "Boom") != 1 {
		t.Fatalf("expected ErrorText to be suppressed when identical to ErrorName, got %q", out)
	}
}

package textconv

import "github.com/cidlib/macroeng/internal/runtimeclass"

// DefaultClasses returns MEng.System.Runtime.TextConverter. A host
// appends this to the same loader chain it uses for streams and
// corelib.
func DefaultClasses() []runtimeclass.RuntimeClass {
	return []runtimeclass.RuntimeClass{NewTextConverter()}
}

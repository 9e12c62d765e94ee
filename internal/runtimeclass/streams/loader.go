package streams

import "github.com/cidlib/macroeng/internal/runtimeclass"

// DefaultClasses returns the full text-stream hierarchy: both abstract
// bases and every console/file/string derivative. macro.NewEngine
// installs them in a runtimeclass.Loader of their own; a host building
// its own chain wraps the result in runtimeclass.NewLoader (or installs
// it directly via Engine.InstallRuntimeClasses).
func DefaultClasses() []runtimeclass.RuntimeClass {
	return []runtimeclass.RuntimeClass{
		&TextInStream{}, &TextOutStream{},
		NewConsoleInStream(), NewFileInStream(), NewStringInStream(),
		NewConsoleOutStream(), NewFileOutStream(), NewStringOutStream(),
	}
}

package services

import "github.com/cidlib/macroeng/internal/runtimeclass"

// DefaultClasses returns every runtime class this package provides,
// ready to be passed to runtimeclass.NewLoader.
func DefaultClasses() []runtimeclass.RuntimeClass {
	return []runtimeclass.RuntimeClass{
		NewFileSystem(),
		NewStreamSocket(),
		NewDatagramSocket(),
		NewAsyncHTTP(),
		NewXMLTreeParser(),
		NewDigest(),
		NewSignatureVerifier(),
		NewTime(),
	}
}

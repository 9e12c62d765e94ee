// Package runtimeclass defines the plug-in contract a host-language class
// implements to appear as a first-class MEng.* class, plus the ordered
// chain of loaders that resolves such classes lazily by path.
//
// Grounded on the interpreter's IClassInfo interface (internal/interp/runtime/
// class_interface.go) for the "describe yourself without an import cycle"
// shape, and enriched with artipop-jacobin's classloader-chain-by-name
// idiom (src/classloader/classloader.go's LoadClassFromNameOnly), which
// go-dws itself never needed: DWScript has exactly one source of classes,
// while the macro language's host can install extra loaders of its own.
package runtimeclass

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
)

// EngineContext is the minimal surface a RuntimeClass needs from the
// execution engine: enough to register nested classes and raise language
// exceptions, without runtimeclass importing internal/engine (which would
// create a cyclic dependency between the two packages).
type EngineContext interface {
	Registry() *classmeta.Registry
	Raise(classID ids.ClassID, ordinal uint32, text string) error
	Validating() bool

	// CurrentException reports the engine's single in-flight exception, if
	// any, as the (class id, ordinal) pair the corelib Exception class's
	// Check/CheckGreater compare against — without runtimeclass needing to
	// know internal/engine's concrete ExceptionValue type.
	CurrentException() (classID ids.ClassID, ordinal uint32, ok bool)

	// SandboxBase returns the fixed base path host-service runtime classes
	// resolve relative paths against, or "" if sandboxing is disabled.
	SandboxBase() string
}

// RuntimeClass is a (descriptor-producer, value-producer, invoke-function)
// triple: a leaf value type whose InvokeMethod is a dispatch on method id —
// a runtime class as interface, never as inheritance.
type RuntimeClass interface {
	// Path returns the fully-qualified class path this RuntimeClass binds,
	// e.g. "MEng.System.Runtime.Socket".
	Path() string

	// Init registers this class's method table, literals, and any nested
	// enum classes against reg, returning the descriptor; Loader.LoadClass
	// seals it once Init returns. Called once, the first time the class is
	// resolved.
	Init(ctx EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error)

	// MakeStorage allocates a new instance's native payload.
	MakeStorage(constness bool) classmeta.Payload

	// InvokeMethod handles a call with this class's id. Returning
	// handled=false lets the engine retry against the parent class's
	// RuntimeClass, implementing inheritance of default method bodies for
	// runtime classes that are themselves subclassed.
	InvokeMethod(ctx EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (result *classmeta.ValueObject, handled bool, err error)
}

// Package classmeta implements the class metamodel: immutable class and
// method descriptors registered once at load time, and the ValueObject
// runtime representation every live instance carries.
//
// Grounded on the interpreter's internal/interp/runtime/metadata.go
// (MethodMetadata, ParameterMetadata) and class_interface.go (IClassInfo),
// generalized from DWScript's AST-free method metadata into a
// class/method/literal/member descriptor tuple.
package classmeta

import "github.com/cidlib/macroeng/internal/ids"

// Finality captures whether a class can be subclassed or instantiated.
type Finality int

const (
	NonFinal Finality = iota
	Final
	Abstract
)

// Visibility mirrors the interpreter's MethodVisibility, minus "published"
// (there is no RTTI-publication concept in the macro language).
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

// Extensibility records how a method participates in dispatch.
type Extensibility int

const (
	MethodFinal Extensibility = iota
	MethodVirtual
	MethodRequired // abstract: must be overridden, never called directly
	MethodOverride
)

// Direction is a parameter's passing mode.
type Direction int

const (
	DirIn Direction = iota
	DirOut
	DirInOut
)

// ParamDescriptor describes one method parameter.
type ParamDescriptor struct {
	Index     int
	Name      string
	ClassID   ids.ClassID
	Direction Direction
}

// MethodDescriptor is the immutable metadata for one method of a class.
// Program-level methods carry an opcode stream; runtime classes instead
// dispatch through the RuntimeClass.InvokeMethod hook keyed by ID.
type MethodDescriptor struct {
	ID            ids.MethodID
	Name          string
	Visibility    Visibility
	Extensibility Extensibility
	Const         bool
	ReturnClassID ids.ClassID // InvalidClassID for a Void-returning method
	Params        []ParamDescriptor

	// Code is the opcode stream for program-defined (interpreted) methods.
	// Nil for runtime-class methods, which are dispatched natively instead.
	Code []byte

	// Required, if true, marks this method as abstract: calling it directly
	// (dispatch kind "required") is a static/compile error the caller must
	// have already ruled out; the engine asserts rather than raises.
	Required bool
}

// FirstParameterIndex returns the stable stack offset of the first
// parameter relative to the frame base, matching CIDMacroEng's
// c4FirstParameterIndex. The engine's calling convention returns a
// method's result through the call itself rather than a reserved stack
// slot, so the first parameter sits at offset 0.
func (m *MethodDescriptor) FirstParameterIndex() int {
	return 0
}

// LiteralValue is a named immutable constant owned by a class.
type LiteralValue struct {
	Name    string
	ClassID ids.ClassID
	Payload interface{}
}

// MemberDescriptor describes one local (method-scoped) or member
// (class-scoped) variable.
type MemberDescriptor struct {
	Name    string
	ClassID ids.ClassID
	Const   bool
}

// ClassDescriptor is the immutable metadata for one registered class.
// Produced by the external compiler (or a RuntimeClass's Init) and sealed
// once registration completes; thereafter read-only for the life of the
// engine.
type ClassDescriptor struct {
	ID         ids.ClassID
	Name       string // short name, last path component
	Path       string // fully-qualified dotted path, rooted at "MEng."
	ParentID   ids.ClassID
	Finality   Finality
	Intrinsic  bool
	NestedIDs  []ids.ClassID
	ImportIDs  []ids.ClassID
	Methods    []*MethodDescriptor
	methodByID map[ids.MethodID]*MethodDescriptor
	methodByNm map[string]*MethodDescriptor
	Literals   map[string]*LiteralValue
	Members    []*MemberDescriptor

	sealed bool
}

// NewClassDescriptor creates an unsealed descriptor ready for AddMethod /
// AddLiteral / AddMember calls.
func NewClassDescriptor(id ids.ClassID, name, path string, parent ids.ClassID, finality Finality, intrinsic bool) *ClassDescriptor {
	return &ClassDescriptor{
		ID:         id,
		Name:       name,
		Path:       path,
		ParentID:   parent,
		Finality:   finality,
		Intrinsic:  intrinsic,
		methodByID: make(map[ids.MethodID]*MethodDescriptor),
		methodByNm: make(map[string]*MethodDescriptor),
		Literals:   make(map[string]*LiteralValue),
	}
}

// AddMethod registers m on the class. Only valid before Seal.
func (c *ClassDescriptor) AddMethod(m *MethodDescriptor) error {
	if c.sealed {
		return errSealed(c.Path)
	}
	c.Methods = append(c.Methods, m)
	c.methodByID[m.ID] = m
	c.methodByNm[m.Name] = m
	return nil
}

// AddLiteral registers a named literal. Only valid before Seal.
func (c *ClassDescriptor) AddLiteral(l *LiteralValue) error {
	if c.sealed {
		return errSealed(c.Path)
	}
	c.Literals[l.Name] = l
	return nil
}

// AddMember registers a class-scoped member variable. Only valid before Seal.
func (c *ClassDescriptor) AddMember(m *MemberDescriptor) error {
	if c.sealed {
		return errSealed(c.Path)
	}
	c.Members = append(c.Members, m)
	return nil
}

// AddNestedType records a nested-type dependency so path resolution can
// short-circuit later lookups.
func (c *ClassDescriptor) AddNestedType(id ids.ClassID) error {
	if c.sealed {
		return errSealed(c.Path)
	}
	c.NestedIDs = append(c.NestedIDs, id)
	return nil
}

// Seal freezes the descriptor; it is immutable from this point on.
func (c *ClassDescriptor) Seal() { c.sealed = true }

// Sealed reports whether the descriptor has been sealed.
func (c *ClassDescriptor) Sealed() bool { return c.sealed }

// MethodByID returns the method with the given local id, or nil.
func (c *ClassDescriptor) MethodByID(id ids.MethodID) *MethodDescriptor {
	return c.methodByID[id]
}

// MethodByName returns the method with the given name declared directly on
// this class (not walking the parent chain), or nil.
func (c *ClassDescriptor) MethodByName(name string) *MethodDescriptor {
	return c.methodByNm[name]
}

func errSealed(path string) error {
	return &SealedError{Path: path}
}

// SealedError reports an attempt to mutate a sealed class descriptor.
type SealedError struct{ Path string }

func (e *SealedError) Error() string {
	return "classmeta: class " + e.Path + " is sealed and cannot be modified"
}

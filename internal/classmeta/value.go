package classmeta

import "github.com/cidlib/macroeng/internal/ids"

// Payload is whatever a runtime class stores as its instance's native
// state (a Go int64, a *bytes.Buffer, an *os.File, a map of member values,
// ...). The engine never interprets it directly; only the owning
// RuntimeClass's InvokeMethod does.
type Payload interface{}

// ValueObject is the runtime representation of every live instance,
// intrinsic or program-defined alike.
//
// Grounded on the interpreter's ObjectInstance (object.go): a class pointer, a
// field map, and lifetime bookkeeping. Generalized here to carry an
// opaque Payload (for intrinsic/native-backed classes) alongside the
// ordered Members slice (for program-defined classes), and a const flag
// enforced by the engine rather than left to convention.
type ValueObject struct {
	ClassID ids.ClassID
	Const   bool

	// Payload holds native state for intrinsic/runtime-class instances
	// (e.g. a numeric's Go value, a string's buffer, a stream's file
	// handle). Leaf values store everything here and have no Members.
	Payload Payload

	// Members holds the owned, ordered member values of a program-defined
	// class instance. Each member is itself a *ValueObject the parent
	// exclusively owns — destroyed when the parent is destroyed, never
	// shared.
	Members []*ValueObject

	// used is a transient bit for diagnostics (e.g. "unused local"); it
	// has no effect on execution semantics.
	used bool
}

// NewValueObject creates a leaf value (no owned members) for classID,
// wrapping payload.
func NewValueObject(classID ids.ClassID, payload Payload) *ValueObject {
	return &ValueObject{ClassID: classID, Payload: payload}
}

// NewCompositeValueObject creates a value with ordered owned members,
// matching the field layout a ClassDescriptor's Members describe.
func NewCompositeValueObject(classID ids.ClassID, members []*ValueObject) *ValueObject {
	return &ValueObject{ClassID: classID, Members: members}
}

// MarkUsed flips the transient used bit; read by diagnostics only.
func (v *ValueObject) MarkUsed() { v.used = true }

// Used reports the transient used bit.
func (v *ValueObject) Used() bool { return v.used }

// MemberAt returns the i'th owned member, or nil if out of range.
func (v *ValueObject) MemberAt(i int) *ValueObject {
	if i < 0 || i >= len(v.Members) {
		return nil
	}
	return v.Members[i]
}

// ConstViolationError is raised when an opcode attempts to mutate a value
// marked const.
type ConstViolationError struct{ ClassID ids.ClassID }

func (e *ConstViolationError) Error() string {
	return "classmeta: const violation on value of class id"
}

// CheckMutable returns a *ConstViolationError if v is const, nil otherwise.
// Every mutating opcode in internal/engine calls this before writing.
func (v *ValueObject) CheckMutable() error {
	if v.Const {
		return &ConstViolationError{ClassID: v.ClassID}
	}
	return nil
}

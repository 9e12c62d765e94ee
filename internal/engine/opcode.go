// Package engine implements the value stack, call-frame stack, and opcode
// dispatch loop that interprets a method's opcode stream.
//
// Grounded on the interpreter's internal/bytecode package (vm_core.go's
// dispatch switch, instruction.go's fixed-width instruction format,
// vm_stack.go's push/pop helpers), generalized from DWScript's
// expression-oriented opcode set to a class/method/exception opcode set
// (push immediates per primitive class, locals/params/members/pool,
// direct/polymorphic/required call, try/throw/endtry).
package engine

// OpCode is one instruction in a method's opcode stream. Every instruction
// is encoded at the same 5-byte width (see codec.go): the opcode byte, a
// 16-bit class-id operand and a 16-bit B operand, whether or not the
// opcode uses them. The encoding is not variable-width per opcode kind.
type OpCode byte

const (
	// ---- push immediates: one opcode per primitive class ----
	OpPushBoolean OpCode = iota
	OpPushCard1
	OpPushCard2
	OpPushCard4
	OpPushCard8
	OpPushInt1
	OpPushInt2
	OpPushInt4
	OpPushFloat4
	OpPushFloat8
	OpPushChar
	OpPushStringPool // operand B: 16-bit index into the method's string pool
	OpPushEnum       // operand B: index into class's literal table

	// ---- push/pop locals, parameters, members, pool values ----
	OpPushLocal
	OpPopLocal
	OpPushParam
	OpPopParam
	OpPushMember
	OpPopMember
	OpPushPoolValue // operand: class id, draws a pooled temporary

	// ---- stack bookkeeping ----
	OpDup
	OpPop
	OpRepush // borrow the slot beneath TOS without taking ownership

	// ---- calls ----
	OpCallDirect      // operand A: target class id, carried in Instruction.ClassID; operand B: method id
	OpCallPolymorphic // same operands; resolved against the receiver's actual class id
	OpCallRequired    // same operands; callee MUST be overridden — calling it directly is an engine bug
	OpReturn

	// ---- control flow ----
	OpBranch
	OpBranchIfFalse
	OpCompareEQ
	OpCompareNE
	OpCompareLT
	OpCompareLE
	OpCompareGT
	OpCompareGE

	// ---- exceptions ----
	OpTry    // operand B: pc of the handler, if the guarded region throws
	OpEndTry
	OpThrow

	// ---- casts ----
	OpCastStatic  // operand: target class id; Incompatible is a compile-time concern, asserted here
	OpCastDynamic // operand: target class id; Incompatible raises BadCast
)

// Instruction is one decoded opcode plus its immediate operands. Real
// bytecode streams are produced by an external compiler out of scope for
// this engine; this engine only consumes the decoded form, matching how
// the interpreter's VM separates instruction.go (encode/decode) from
// vm_core.go (pure dispatch on the decoded Instruction).
type Instruction struct {
	Op      OpCode
	ClassID uint16 // operand A widened to 16 bits: target/pushed class id
	B       uint16 // operand B: pool index, local/param/member slot, method id, branch target
}

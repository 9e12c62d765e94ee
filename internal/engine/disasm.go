package engine

import (
	"fmt"
	"io"
)

// opcodeNames mirrors the interpreter's disassembler's per-opcode mnemonic
// table (bytecode.Disassembler), renamed to this engine's opcode set.
var opcodeNames = map[OpCode]string{
	OpPushBoolean: "PUSH_BOOLEAN", OpPushCard1: "PUSH_CARD1", OpPushCard2: "PUSH_CARD2",
	OpPushCard4: "PUSH_CARD4", OpPushCard8: "PUSH_CARD8", OpPushInt1: "PUSH_INT1",
	OpPushInt2: "PUSH_INT2", OpPushInt4: "PUSH_INT4", OpPushFloat4: "PUSH_FLOAT4",
	OpPushFloat8: "PUSH_FLOAT8", OpPushChar: "PUSH_CHAR", OpPushStringPool: "PUSH_STRING_POOL",
	OpPushEnum: "PUSH_ENUM", OpPushLocal: "PUSH_LOCAL", OpPopLocal: "POP_LOCAL",
	OpPushParam: "PUSH_PARAM", OpPopParam: "POP_PARAM", OpPushMember: "PUSH_MEMBER",
	OpPopMember: "POP_MEMBER", OpPushPoolValue: "PUSH_POOL_VALUE", OpDup: "DUP",
	OpPop: "POP", OpRepush: "REPUSH", OpCallDirect: "CALL_DIRECT",
	OpCallPolymorphic: "CALL_POLYMORPHIC", OpCallRequired: "CALL_REQUIRED", OpReturn: "RETURN",
	OpBranch: "BRANCH", OpBranchIfFalse: "BRANCH_IF_FALSE", OpCompareEQ: "COMPARE_EQ",
	OpCompareNE: "COMPARE_NE", OpCompareLT: "COMPARE_LT", OpCompareLE: "COMPARE_LE",
	OpCompareGT: "COMPARE_GT", OpCompareGE: "COMPARE_GE", OpTry: "TRY",
	OpEndTry: "END_TRY", OpThrow: "THROW", OpCastStatic: "CAST_STATIC",
	OpCastDynamic: "CAST_DYNAMIC",
}

// String renders an OpCode's mnemonic, or a numeric fallback for an
// unrecognized byte (e.g. corrupt input).
func (op OpCode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP(%d)", byte(op))
}

// Disassemble writes one line per instruction to w, in the interpreter's
// "<offset> <mnemonic> <operands>" disassembly format.
func Disassemble(w io.Writer, name string, instrs []Instruction) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for i, instr := range instrs {
		fmt.Fprintf(w, "%04d %-18s", i, instr.Op)
		switch instr.Op {
		case OpPushStringPool, OpPushEnum, OpPushPoolValue, OpCallDirect,
			OpCallPolymorphic, OpCallRequired, OpCastStatic, OpCastDynamic:
			fmt.Fprintf(w, "class=%d b=%d", instr.ClassID, instr.B)
		case OpPushLocal, OpPopLocal, OpPushParam, OpPopParam, OpPushMember,
			OpPopMember, OpBranch, OpBranchIfFalse, OpTry:
			fmt.Fprintf(w, "b=%d", instr.B)
		}
		fmt.Fprintln(w)
	}
}

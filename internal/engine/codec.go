package engine

import (
	"encoding/binary"
	"fmt"
)

// DecodeInstructions decodes a method's opcode stream into []Instruction.
// Format, grounded on the interpreter's instruction.go fixed-width encoding:
// one byte opcode, two bytes class-id operand, two bytes B operand, all
// little-endian — 5 bytes per instruction, no variable-width opcodes.
//
// An external compiler, out of scope for this engine, is the only producer
// of real opcode streams; this codec exists so MethodDescriptor.Code can be
// a plain byte slice at rest (easy to embed in a serialized class library)
// while the engine still runs a typed Instruction during dispatch.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	const width = 5
	if len(code)%width != 0 {
		return nil, fmt.Errorf("engine: malformed opcode stream: length %d not a multiple of %d", len(code), width)
	}
	out := make([]Instruction, 0, len(code)/width)
	for i := 0; i < len(code); i += width {
		out = append(out, Instruction{
			Op:      OpCode(code[i]),
			ClassID: binary.LittleEndian.Uint16(code[i+1 : i+3]),
			B:       binary.LittleEndian.Uint16(code[i+3 : i+5]),
		})
	}
	return out, nil
}

// EncodeInstructions is the inverse of DecodeInstructions, used by tests
// and by any in-process assembler that builds a method body without going
// through the external compiler.
func EncodeInstructions(instrs []Instruction) []byte {
	out := make([]byte, 0, len(instrs)*5)
	var buf [4]byte
	for _, instr := range instrs {
		out = append(out, byte(instr.Op))
		binary.LittleEndian.PutUint16(buf[0:2], instr.ClassID)
		binary.LittleEndian.PutUint16(buf[2:4], instr.B)
		out = append(out, buf[:4]...)
	}
	return out
}

package engine

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisassembleRendersMnemonicsAndOperands(t *testing.T) {
	instrs := []Instruction{
		{Op: OpPushParam, B: 0},
		{Op: OpCallDirect, ClassID: 3, B: 7},
		{Op: OpReturn},
	}

	var buf bytes.Buffer
	Disassemble(&buf, "MEng.MyApp.Echo", instrs)

	out := buf.String()
	for _, want := range []string{"MEng.MyApp.Echo", "PUSH_PARAM", "CALL_DIRECT", "class=3", "b=7", "RETURN"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected disassembly to contain %q, got:\n%s", want, out)
		}
	}
}

func TestOpCodeStringFallsBackForUnknownByte(t *testing.T) {
	var op OpCode = 250
	if got := op.String(); !strings.Contains(got, "250") {
		t.Errorf("expected fallback to mention the numeric opcode, got %q", got)
	}
}

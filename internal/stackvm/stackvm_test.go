package stackvm

import (
	"testing"
)

func assembleAndRun(t *testing.T, src string) *Context {
	t.Helper()
	program, diags := Assemble(src)
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	ctx := NewContext(0)
	ctx.LoadProgram(program)
	ctx.Run()
	return ctx
}

func TestAdditionExpression(t *testing.T) {
	ctx := assembleAndRun(t, "2 3 +")
	got := int16(ctx.Memory[ctx.StackPtr])
	if got != 5 {
		t.Errorf("top of stack = %d, want 5", got)
	}
}

func TestSubtractionOrderOfOperands(t *testing.T) {
	// "second - top" where second was pushed first: 10 3 - => 10 - 3 = 7.
	ctx := assembleAndRun(t, "10 3 -")
	got := int16(ctx.Memory[ctx.StackPtr])
	if got != 7 {
		t.Errorf("top of stack = %d, want 7", got)
	}
}

func TestMultiplyAndDivide(t *testing.T) {
	ctx := assembleAndRun(t, "6 7 * 2 /")
	got := int16(ctx.Memory[ctx.StackPtr])
	if got != 21 {
		t.Errorf("top of stack = %d, want 21", got)
	}
}

func TestInvalidInstructionDiagnostic(t *testing.T) {
	_, diags := Assemble("2 3 ^")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if diags[0].Message == "" {
		t.Errorf("expected a non-empty diagnostic message")
	}
}

func TestPackUnpackInstruction(t *testing.T) {
	ins := packInstruction(OpPUSH, 42)
	op, data := unpackInstruction(ins)
	if op != OpPUSH || data != 42 {
		t.Errorf("unpack(pack(PUSH, 42)) = (%v, %d), want (PUSH, 42)", op, data)
	}
}

package regvm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func assertNoDiags(t *testing.T, diags []Diagnostic) {
	t.Helper()
	if len(diags) > 0 {
		var sb strings.Builder
		for _, d := range diags {
			sb.WriteString(d.String())
			sb.WriteByte('\n')
		}
		t.Fatalf("unexpected diagnostics:\n%s", sb.String())
	}
}

func runSource(t *testing.T, src string) *Context {
	t.Helper()
	program, diags := Assemble(src)
	assertNoDiags(t, diags)

	var out bytes.Buffer
	vm := New(DefaultMemSize, &out, strings.NewReader(""))
	vm.LoadProgram(program)
	if _, err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return vm.Context()
}

func TestAssemblePreamble(t *testing.T) {
	program, diags := Assemble("proc main\nhalt\nendp\n")
	assertNoDiags(t, diags)

	if len(program) < 10 {
		t.Fatalf("program too short: %d bytes", len(program))
	}
	if Op(program[0]) != OpCALLI {
		t.Fatalf("first opcode = %s, want calli", Op(program[0]))
	}
	mainAddr, err := readU64(program, 1)
	if err != nil {
		t.Fatal(err)
	}
	if mainAddr != 10 {
		t.Fatalf("main address = %d, want 10", mainAddr)
	}
	if Op(program[9]) != OpHALT {
		t.Fatalf("preamble halt opcode = %s, want halt", Op(program[9]))
	}
	if Op(program[10]) != OpHALT {
		t.Fatalf("main body opcode = %s, want halt", Op(program[10]))
	}
}

func TestAddition(t *testing.T) {
	ctx := runSource(t, `
proc main
	movi a, 2
	movi b, 3
	add a, b
	halt
endp
`)
	if ctx.R[RegA] != 5 {
		t.Errorf("R[A] = %d, want 5", ctx.R[RegA])
	}
}

func TestLoopCountdown(t *testing.T) {
	ctx := runSource(t, `
proc main
	movi a, 5
loop:
	dec a
	jnz loop
	halt
endp
`)
	if ctx.R[RegA] != 0 {
		t.Errorf("R[A] = %d, want 0", ctx.R[RegA])
	}
}

func TestCallAndReturn(t *testing.T) {
	// main returns to the preamble's HALT instead of halting itself, so the
	// preamble's own call to main is popped as well and SP ends where Run
	// started it.
	startSP := NewContext(DefaultMemSize, nil, nil).R[RegSP]

	ctx := runSource(t, `
proc helper
	movi c, 42
	ret
endp
proc main
	call helper
	ret
endp
`)
	if ctx.R[RegC] != 42 {
		t.Errorf("R[C] = %d, want 42", ctx.R[RegC])
	}
	if ctx.R[RegSP] != startSP {
		t.Errorf("R[SP] = %d, want %d (stack must be balanced after call/ret)", ctx.R[RegSP], startSP)
	}
}

func TestCallRegisterIndirect(t *testing.T) {
	// CALLR must jump to the address *held in* the operand register, not
	// the address of the register slot itself (the original interpreter's
	// bug). helper is the first proc after the fixed-size preamble (see
	// TestAssemblePreamble), so its address is the known constant 10; that
	// address is loaded into B before the indirect call, so a correct
	// implementation lands in helper and sets C, while the buggy one would
	// jump somewhere in the host process's address space instead. main
	// returns to the preamble's HALT, so every call is matched by a ret.
	startSP := NewContext(DefaultMemSize, nil, nil).R[RegSP]

	program, diags := Assemble(`
proc helper
	movi c, 7
	ret
endp
proc main
	movi b, 10
	call b
	ret
endp
`)
	assertNoDiags(t, diags)

	var out bytes.Buffer
	vm := New(DefaultMemSize, &out, strings.NewReader(""))
	vm.LoadProgram(program)
	if _, err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ctx := vm.Context()

	if ctx.R[RegC] != 7 {
		t.Errorf("R[C] = %d, want 7 (CALLR must jump to the address held in the register)", ctx.R[RegC])
	}
	if ctx.R[RegSP] != startSP {
		t.Errorf("R[SP] = %d, want %d (stack must be balanced after call/ret)", ctx.R[RegSP], startSP)
	}
}

func TestComparisonSetsFlags(t *testing.T) {
	ctx := runSource(t, `
proc main
	movi a, 4
	movi b, 4
	cmp a, b
	jz equal
	movi c, 1
	halt
equal:
	movi c, 2
	halt
endp
`)
	if ctx.R[RegC] != 2 {
		t.Errorf("R[C] = %d, want 2 (branch not taken on equal comparison)", ctx.R[RegC])
	}
}

func TestUnresolvedLabelDiagnostic(t *testing.T) {
	_, diags := Assemble(`
proc main
	jmp nowhere
	halt
endp
`)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	if !strings.Contains(diags[0].Message, "nowhere") {
		t.Errorf("diagnostic = %q, want it to mention the unresolved symbol", diags[0].Message)
	}
}

func TestUnresolvedMainDiagnostic(t *testing.T) {
	_, diags := Assemble("halt\n")
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	if !strings.Contains(diags[0].Message, "main") {
		t.Errorf("diagnostic = %q, want it to mention the missing main proc", diags[0].Message)
	}
}

func TestMovStoreToAddressBug(t *testing.T) {
	// "mov ADDR, REG" must encode a full MOVT instruction (opcode +
	// address + register), not just the bare address the original
	// compiler emitted.
	program, diags := Assemble("proc main\nmovi a, 7\nmov 900000, a\nhalt\nendp\n")
	assertNoDiags(t, diags)

	var foundMovt bool
	for i := 0; i < len(program); i++ {
		if Op(program[i]) == OpMOVT {
			foundMovt = true
			break
		}
	}
	if !foundMovt {
		t.Fatalf("no MOVT instruction encoded for store-to-address mov")
	}
}

func TestNotIsUnary(t *testing.T) {
	ctx := runSource(t, `
proc main
	movi a, 0
	not a
	halt
endp
`)
	if ctx.R[RegA] != ^int64(0) {
		t.Errorf("R[A] = %d, want %d", ctx.R[RegA], ^int64(0))
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Line: 3, Message: "bad token"}
	if diff := cmp.Diff("line 3: bad token", d.String()); diff != "" {
		t.Errorf("String() mismatch (-want +got):\n%s", diff)
	}
}

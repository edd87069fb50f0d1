package regvm

import (
	"fmt"
	"strconv"
	"strings"

	"simplevm/internal/lexer"
)

type symbol struct {
	name string
	addr uint64
}

// assembler holds the state threaded through a single Assemble call: the
// code buffer under construction, the two symbol tables (file-scoped
// procedures and procedure-scoped labels), their matching forward-reference
// fixup maps, and the accumulated diagnostics.
type assembler struct {
	code  encoder
	diags []Diagnostic

	procs           []symbol
	labels          []symbol
	undefinedProcs  map[string][]int
	undefinedLabels map[string][]int

	currentProc string
}

// Assemble compiles register-machine source into a flat binary program. It
// never returns early on a bad line: every diagnostic found along the way
// is collected, and a non-empty diagnostic slice means the returned program
// is empty.
func Assemble(source string) ([]byte, []Diagnostic) {
	a := &assembler{
		undefinedProcs:  map[string][]int{},
		undefinedLabels: map[string][]int{},
	}

	// Preamble: call main, then halt once it returns. The call target is
	// unknown until "main" is seen, so it is registered as a forward
	// reference against offset 1 (right after the CALLI opcode byte).
	a.code.op(OpCALLI)
	a.code.u64(unresolved)
	a.code.op(OpHALT)
	a.undefinedProcs["main"] = []int{1}

	lines := strings.Split(source, "\n")
	for i, line := range lines {
		lineNo := i + 1
		tokens := stripCommas(lexer.Lex(line))
		if len(tokens) == 0 {
			continue
		}
		a.assembleLine(tokens, lineNo)
	}

	// Resolve whole-file procedure references.
	for name, offsets := range a.undefinedProcs {
		p, ok := a.findProc(name)
		if !ok {
			a.errf(0, "unresolved symbol [%s]", name)
			continue
		}
		for _, off := range offsets {
			a.code.patch(off, p.addr)
		}
	}

	if len(a.diags) > 0 {
		return nil, a.diags
	}
	return a.code.code, nil
}

func (a *assembler) errf(line int, format string, args ...any) {
	a.diags = append(a.diags, Diagnostic{Line: line, Message: fmt.Sprintf(format, args...)})
}

func (a *assembler) findProc(name string) (symbol, bool) {
	for _, p := range a.procs {
		if p.name == name {
			return p, true
		}
	}
	return symbol{}, false
}

func (a *assembler) findLabel(name string) (symbol, bool) {
	for _, l := range a.labels {
		if l.name == name {
			return l, true
		}
	}
	return symbol{}, false
}

func (a *assembler) checkNTok(tokens []string, n, line int) bool {
	if len(tokens) != n {
		a.errf(line, "instruction requires %d tokens", n)
		return false
	}
	return true
}

// stripCommas drops the standalone "," tokens the lexer emits between
// operands: they separate but don't participate in the grammar's arity
// check.
func stripCommas(tokens []string) []string {
	out := tokens[:0:0]
	for _, t := range tokens {
		if t != "," {
			out = append(out, t)
		}
	}
	return out
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i = 1
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

// appReg emits the 8-byte register code for a register mnemonic, reporting
// a diagnostic in its place if the token doesn't name one.
func (a *assembler) appReg(tok string, line int) {
	r, ok := lookupRegLower(tok)
	if !ok {
		a.errf(line, "invalid register identifier [%s]", tok)
		return
	}
	a.code.reg(r)
}

// regTokens is the fixed, case-sensitive set of register mnemonics the
// grammar recognizes in source text: lowercase only, matching the
// original compiler's IS_REG macro (which compares against literal
// lowercase strings, not a case-folded set).
var regTokens = map[string]Reg{
	"a": RegA, "b": RegB, "c": RegC, "ip": RegIP, "sp": RegSP, "f": RegF,
}

func lookupRegLower(tok string) (Reg, bool) {
	r, ok := regTokens[tok]
	return r, ok
}

func isRegToken(tok string) bool {
	_, ok := lookupRegLower(tok)
	return ok
}

// appJumpTarget resolves a jump/call operand that names either a literal
// address, an already-known label, or a forward reference within the
// current procedure.
func (a *assembler) appJumpTarget(tok string) {
	if isInteger(tok) {
		a.code.u64(uint64(parseInt(tok)))
		return
	}
	if l, ok := a.findLabel(tok); ok {
		a.code.u64(l.addr)
		return
	}
	a.undefinedLabels[tok] = append(a.undefinedLabels[tok], a.code.pos())
	a.code.u64(unresolved)
}

func (a *assembler) appJump(op Op, tokens []string, line int) {
	if !a.checkNTok(tokens, 2, line) {
		return
	}
	a.code.op(op)
	a.appJumpTarget(tokens[1])
}

// appArith2 assembles a binary register-register instruction: opcode,
// dest/lhs register, rhs register.
func (a *assembler) appArith2(op Op, tokens []string, line int) {
	if !a.checkNTok(tokens, 3, line) {
		return
	}
	a.code.op(op)
	a.appReg(tokens[1], line)
	a.appReg(tokens[2], line)
}

// appArith1 assembles a unary register instruction: opcode, register.
func (a *assembler) appArith1(op Op, tokens []string, line int) {
	if !a.checkNTok(tokens, 2, line) {
		return
	}
	a.code.op(op)
	a.appReg(tokens[1], line)
}

func (a *assembler) assembleLine(tokens []string, line int) {
	switch tokens[0] {
	case "proc":
		if !a.checkNTok(tokens, 2, line) {
			return
		}
		name := tokens[1]
		a.currentProc = name
		a.procs = append(a.procs, symbol{name: name, addr: uint64(a.code.pos())})

	case "endp":
		if !a.checkNTok(tokens, 1, line) {
			return
		}
		a.resolveLabels(line)
		a.labels = nil
		a.undefinedLabels = map[string][]int{}

	case "call":
		if !a.checkNTok(tokens, 2, line) {
			return
		}
		switch {
		case isInteger(tokens[1]):
			a.code.op(OpCALLI)
			a.code.u64(uint64(parseInt(tokens[1])))
		case isRegToken(tokens[1]):
			a.code.op(OpCALLR)
			a.appReg(tokens[1], line)
		default:
			a.code.op(OpCALLI)
			if p, ok := a.findProc(tokens[1]); ok {
				a.code.u64(p.addr)
			} else {
				a.undefinedProcs[tokens[1]] = append(a.undefinedProcs[tokens[1]], a.code.pos())
				a.code.u64(unresolved)
			}
		}

	case "ret":
		if a.checkNTok(tokens, 1, line) {
			a.code.op(OpRET)
		}

	case "jmp":
		a.appJump(OpJMP, tokens, line)
	case "je":
		a.appJump(OpJE, tokens, line)
	case "jz":
		a.appJump(OpJZ, tokens, line)
	case "jne":
		a.appJump(OpJNE, tokens, line)
	case "jnz":
		a.appJump(OpJNZ, tokens, line)
	case "jgt":
		a.appJump(OpJGT, tokens, line)
	case "jlt":
		a.appJump(OpJLT, tokens, line)
	case "jge":
		a.appJump(OpJGE, tokens, line)
	case "jle":
		a.appJump(OpJLE, tokens, line)

	case "add":
		a.appArith2(OpADD, tokens, line)
	case "sub":
		a.appArith2(OpSUB, tokens, line)
	case "mul":
		a.appArith2(OpMUL, tokens, line)
	case "div":
		a.appArith2(OpDIV, tokens, line)
	case "mod":
		a.appArith2(OpMOD, tokens, line)
	case "cmp":
		a.appArith2(OpCMP, tokens, line)
	case "and":
		a.appArith2(OpAND, tokens, line)
	case "or":
		a.appArith2(OpOR, tokens, line)
	case "xor":
		a.appArith2(OpXOR, tokens, line)
	case "shr":
		a.appArith2(OpSHR, tokens, line)
	case "shl":
		a.appArith2(OpSHL, tokens, line)
	case "inc":
		a.appArith1(OpINC, tokens, line)
	case "dec":
		a.appArith1(OpDEC, tokens, line)
	case "not":
		a.appArith1(OpNOT, tokens, line)

	case "clf":
		if a.checkNTok(tokens, 1, line) {
			a.code.op(OpCLF)
		}

	case "mov":
		a.assembleMov(tokens, line)
	case "movi":
		if !a.checkNTok(tokens, 3, line) {
			return
		}
		if !isInteger(tokens[2]) {
			a.errf(line, "invalid token [%s]", tokens[2])
			return
		}
		a.code.op(OpMOVI)
		a.appReg(tokens[1], line)
		a.code.i64(parseInt(tokens[2]))

	case "push":
		if !a.checkNTok(tokens, 2, line) {
			return
		}
		if isInteger(tokens[1]) {
			a.code.op(OpPUSHI)
			a.code.i64(parseInt(tokens[1]))
		} else if isRegToken(tokens[1]) {
			a.code.op(OpPUSH)
			a.appReg(tokens[1], line)
		} else {
			a.errf(line, "invalid token [%s]", tokens[1])
		}

	case "pushf":
		if a.checkNTok(tokens, 1, line) {
			a.code.op(OpPUSHF)
		}

	case "pop":
		if !a.checkNTok(tokens, 2, line) {
			return
		}
		if isInteger(tokens[1]) {
			a.code.op(OpPOPTO)
			a.code.u64(uint64(parseInt(tokens[1])))
		} else if isRegToken(tokens[1]) {
			a.code.op(OpPOP)
			a.appReg(tokens[1], line)
		} else {
			a.errf(line, "invalid token [%s]", tokens[1])
		}

	case "popf":
		if a.checkNTok(tokens, 1, line) {
			a.code.op(OpPOPF)
		}

	case "nop":
		if a.checkNTok(tokens, 1, line) {
			a.code.op(OpNOP)
		}
	case "int":
		if a.checkNTok(tokens, 1, line) {
			a.code.op(OpINT)
		}
	case "halt":
		if a.checkNTok(tokens, 1, line) {
			a.code.op(OpHALT)
		}

	default:
		if len(tokens) == 2 && tokens[1] == ":" {
			a.labels = append(a.labels, symbol{name: tokens[0], addr: uint64(a.code.pos())})
			return
		}
		a.errf(line, "invalid token [%s]", tokens[0])
	}
}

// assembleMov dispatches the three mov forms:
//
//	mov REG, REG   ->  MOV  reg1, reg2
//	mov REG, IMM   ->  MOVI reg,  imm
//	mov ADDR, REG  ->  MOVT addr, reg   (store to address)
//
// The ADDR, REG store form is encoded fully here: the original compiler's
// handling of it only emitted the raw address with no opcode and no
// register operand, which the interpreter could never have executed
// correctly. MOVF (load-from-address, REG, [ADDR]) is reachable only once
// the assembler grows bracketed address syntax, so it stays unencodable
// from this grammar, matching the rest of the toolchain.
func (a *assembler) assembleMov(tokens []string, line int) {
	if !a.checkNTok(tokens, 3, line) {
		return
	}
	switch {
	case isRegToken(tokens[1]) && isRegToken(tokens[2]):
		a.code.op(OpMOV)
		a.appReg(tokens[1], line)
		a.appReg(tokens[2], line)
	case isRegToken(tokens[1]) && isInteger(tokens[2]):
		a.code.op(OpMOVI)
		a.appReg(tokens[1], line)
		a.code.i64(parseInt(tokens[2]))
	case isInteger(tokens[1]) && isRegToken(tokens[2]):
		a.code.op(OpMOVT)
		a.code.u64(uint64(parseInt(tokens[1])))
		a.appReg(tokens[2], line)
	default:
		a.errf(line, "invalid token [%s]", tokens[1])
	}
}

func (a *assembler) resolveLabels(line int) {
	for name, offsets := range a.undefinedLabels {
		l, ok := a.findLabel(name)
		if !ok {
			a.errf(line, "unresolved symbol [%s] in proc [%s]", name, a.currentProc)
			continue
		}
		for _, off := range offsets {
			a.code.patch(off, l.addr)
		}
	}
}

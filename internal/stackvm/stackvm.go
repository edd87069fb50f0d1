// Package stackvm implements the simpler of the two interpreter variants:
// a stack machine whose instructions are a fixed 4 bytes (2-byte opcode,
// 2-byte data). It is a strict subset of the register machine's ideas and
// is kept deliberately small.
package stackvm

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"simplevm/internal/lexer"
)

// Op is the 16-bit stack-machine opcode.
type Op uint16

const (
	OpNOP Op = iota
	OpHALT
	OpALERT
	OpPUSH
	OpADD
	OpSUB
	OpMUL
	OpDIV
)

// Diagnostic is a single assembly-time error. The stack-VM grammar is too
// small to need source-line tracking: a bad token just names itself.
type Diagnostic struct {
	Message string
}

func (d Diagnostic) String() string { return d.Message }

func packInstruction(op Op, data uint16) uint32 {
	return uint32(op)<<16 | uint32(data)
}

func unpackInstruction(ins uint32) (Op, uint16) {
	return Op(ins >> 16), uint16(ins)
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

// Assemble compiles stack-VM source into a flat sequence of 4-byte,
// little-endian instructions. The whole source is lexed as a single
// stream (whitespace, including newlines, is just a separator) rather
// than line by line, since this grammar has no multi-token statements to
// keep aligned with a source line.
func Assemble(source string) ([]byte, []Diagnostic) {
	tokens := lexer.Lex(source)

	var instrs []uint32
	var diags []Diagnostic

	for _, tok := range tokens {
		switch {
		case isInteger(tok):
			v, _ := strconv.Atoi(tok)
			instrs = append(instrs, packInstruction(OpPUSH, uint16(v)))
		case tok == "+":
			instrs = append(instrs, packInstruction(OpADD, 0))
		case tok == "-":
			instrs = append(instrs, packInstruction(OpSUB, 0))
		case tok == "*":
			instrs = append(instrs, packInstruction(OpMUL, 0))
		case tok == "/":
			instrs = append(instrs, packInstruction(OpDIV, 0))
		default:
			diags = append(diags, Diagnostic{Message: fmt.Sprintf("invalid instruction [%s]", tok)})
		}
	}
	instrs = append(instrs, packInstruction(OpHALT, 0))

	if len(diags) > 0 {
		return nil, diags
	}

	out := make([]byte, 0, len(instrs)*4)
	for _, ins := range instrs {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], ins)
		out = append(out, b[:]...)
	}
	return out, nil
}

// DefaultMemWords is the word count of a freshly constructed Context's
// memory, matching the original stack interpreter's fixed 1,000,000-word
// buffer.
const DefaultMemWords = 1_000_000

// Context is the running state of a stack-machine program: memory as an
// array of 32-bit words (instructions and stack slots share the same
// address space), a stack pointer that grows downward from the top of
// memory, a program counter, and a running flag.
type Context struct {
	Memory     []uint32
	StackPtr   int
	ProgramCtr int
	Running    bool
}

// NewContext allocates a Context with memWords words of memory
// (DefaultMemWords when memWords is 0) and the stack pointer parked at
// the top of that memory.
func NewContext(memWords int) *Context {
	if memWords <= 0 {
		memWords = DefaultMemWords
	}
	return &Context{
		Memory:     make([]uint32, memWords),
		StackPtr:   memWords,
		ProgramCtr: -1,
	}
}

// LoadProgram copies a flat binary program (groups of 4 bytes, one
// little-endian instruction each) into memory starting at word 0.
func (c *Context) LoadProgram(program []byte) {
	for i := 0; i+4 <= len(program); i += 4 {
		c.Memory[i/4] = binary.LittleEndian.Uint32(program[i : i+4])
	}
}

// Run executes the loaded program to completion. As in the register
// machine, an unrecognized opcode here simply does nothing (OpNOP is
// also opcode 0, the zero value, so uninitialized memory behaves safely).
func (c *Context) Run() {
	c.Running = true
	for c.Running {
		c.ProgramCtr++
		op, data := unpackInstruction(c.Memory[c.ProgramCtr])
		c.execute(op, data)
	}
}

func (c *Context) execute(op Op, data uint16) {
	switch op {
	case OpHALT:
		c.Running = false
	case OpPUSH:
		c.StackPtr--
		c.Memory[c.StackPtr] = uint32(data)
	case OpADD:
		c.binOp(func(a, b int32) int32 { return a + b })
	case OpSUB:
		c.binOp(func(a, b int32) int32 { return a - b })
	case OpMUL:
		c.binOp(func(a, b int32) int32 { return a * b })
	case OpDIV:
		c.binOp(func(a, b int32) int32 { return a / b })
	case OpALERT, OpNOP:
		// no state change
	}
}

// binOp applies a binary operator to the top two stack slots, reading
// each as a signed 16-bit value (the data field's native width) and
// writing the 32-bit result back into the slot just below the top,
// then popping one slot — matching the original stack VM's arithmetic.
func (c *Context) binOp(apply func(a, b int32) int32) {
	top := int32(int16(c.Memory[c.StackPtr]))
	second := int32(int16(c.Memory[c.StackPtr+1]))
	c.Memory[c.StackPtr+1] = uint32(apply(second, top))
	c.StackPtr++
}

package regvm

import (
	"fmt"
	"strings"
)

type operandKind int

const (
	operandNone operandKind = iota
	operandReg
	operandValue // address or immediate, printed as a plain decimal
)

// operandShape lists, in encoding order, the operand kinds for an opcode.
// It mirrors the operand-width table in the instruction semantics: a reg
// operand is always 8 bytes, same as a value operand.
var operandShape = map[Op][]operandKind{
	OpHALT: {}, OpNOP: {}, OpINT: {}, OpCLF: {}, OpPUSHF: {}, OpPOPF: {}, OpRET: {},

	OpMOVI: {operandReg, operandValue},
	OpMOVF: {operandReg, operandValue},
	OpMOVT: {operandValue, operandReg},
	OpMOV:  {operandReg, operandReg},

	OpADD: {operandReg, operandReg}, OpSUB: {operandReg, operandReg},
	OpMUL: {operandReg, operandReg}, OpDIV: {operandReg, operandReg},
	OpMOD: {operandReg, operandReg}, OpCMP: {operandReg, operandReg},
	OpAND: {operandReg, operandReg}, OpOR: {operandReg, operandReg},
	OpXOR: {operandReg, operandReg}, OpSHR: {operandReg, operandReg},
	OpSHL: {operandReg, operandReg},

	OpPUSH: {operandReg}, OpPOP: {operandReg},
	OpINC: {operandReg}, OpDEC: {operandReg}, OpNOT: {operandReg},
	OpCALLR: {operandReg},

	OpPUSHI: {operandValue}, OpPOPTO: {operandValue}, OpCALLI: {operandValue},
	OpJMP: {operandValue}, OpJE: {operandValue}, OpJZ: {operandValue},
	OpJNE: {operandValue}, OpJNZ: {operandValue}, OpJGT: {operandValue},
	OpJLT: {operandValue}, OpJGE: {operandValue}, OpJLE: {operandValue},
}

// Disassemble renders a loaded register-VM binary as a flat listing of
// "addr: MNEMONIC operands" lines, reusing the same opcode table the
// assembler builds from. Bytes that don't decode to a full instruction at
// the end of the buffer are reported on a trailing line rather than
// dropped silently.
func Disassemble(program []byte) []string {
	var lines []string
	addr := 0
	for addr < len(program) {
		op := Op(program[addr])
		shape, known := operandShape[op]
		if !known {
			shape = operandShape[OpNOP]
		}

		width := 1 + 8*len(shape)
		if addr+width > len(program) {
			lines = append(lines, fmt.Sprintf("%d: <truncated instruction>", addr))
			break
		}

		var operands []string
		for i, kind := range shape {
			v, _ := readU64(program, int64(addr+1+8*i))
			switch kind {
			case operandReg:
				operands = append(operands, Reg(v).String())
			case operandValue:
				operands = append(operands, fmt.Sprintf("%d", v))
			}
		}

		line := fmt.Sprintf("%d: %s", addr, op.String())
		if len(operands) > 0 {
			line += " " + strings.Join(operands, ", ")
		}
		lines = append(lines, line)
		addr += width
	}
	return lines
}

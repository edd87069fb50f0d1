// Package regvm implements the register-machine assembler and interpreter:
// the richer of the two virtual machines described by the toolchain. It
// assembles text source into a flat byte program and executes that program
// against a small register file and a flat memory buffer.
package regvm

// Reg identifies one of the six machine registers.
type Reg uint64

const (
	RegA Reg = iota
	RegB
	RegC
	RegIP
	RegSP
	RegF
	regCount
)

var regNames = map[string]Reg{
	"A": RegA, "B": RegB, "C": RegC, "IP": RegIP, "SP": RegSP, "F": RegF,
}

var regStrings = [regCount]string{"A", "B", "C", "IP", "SP", "F"}

// String returns the canonical mnemonic for a register.
func (r Reg) String() string {
	if r < regCount {
		return regStrings[r]
	}
	return "?"
}

// LookupReg maps a register mnemonic to its code.
func LookupReg(name string) (Reg, bool) {
	r, ok := regNames[name]
	return r, ok
}

// Op is an 8-bit register-machine opcode.
type Op byte

const (
	OpCLF Op = iota
	OpMOVI
	OpMOVF
	OpMOVT
	OpMOV
	OpPUSH
	OpPUSHI
	OpPOP
	OpPOPTO
	OpPUSHF
	OpPOPF
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpMOD
	OpCMP
	OpINC
	OpDEC
	OpAND
	OpOR
	OpXOR
	OpNOT
	OpSHR
	OpSHL
	OpCALLI
	OpCALLR
	OpRET
	OpJMP
	OpJE
	OpJZ
	OpJNE
	OpJNZ
	OpJGT
	OpJLT
	OpJGE
	OpJLE
	OpINT
	OpNOP
	OpHALT
)

var opStrings = map[Op]string{
	OpCLF: "clf", OpMOVI: "movi", OpMOVF: "movf", OpMOVT: "movt", OpMOV: "mov",
	OpPUSH: "push", OpPUSHI: "pushi", OpPOP: "pop", OpPOPTO: "popto",
	OpPUSHF: "pushf", OpPOPF: "popf",
	OpADD: "add", OpSUB: "sub", OpMUL: "mul", OpDIV: "div", OpMOD: "mod",
	OpCMP: "cmp", OpINC: "inc", OpDEC: "dec",
	OpAND: "and", OpOR: "or", OpXOR: "xor", OpNOT: "not",
	OpSHR: "shr", OpSHL: "shl",
	OpCALLI: "call", OpCALLR: "call", OpRET: "ret",
	OpJMP: "jmp", OpJE: "je", OpJZ: "jz", OpJNE: "jne", OpJNZ: "jnz",
	OpJGT: "jgt", OpJLT: "jlt", OpJGE: "jge", OpJLE: "jle",
	OpINT: "int", OpNOP: "nop", OpHALT: "halt",
}

// String returns a disassembly-friendly mnemonic for op.
func (op Op) String() string {
	if s, ok := opStrings[op]; ok {
		return s
	}
	return "nop"
}

// Flag bits within the F register, set by arithmetic, logic, comparison,
// INC/DEC, NOT, SHR and SHL.
const (
	FlagZero int64 = 1 << iota
	FlagSign
)

package regvm

import (
	"encoding/binary"
	"fmt"
)

func opNop(c *Context) error { return nil }

// configure wires the opcode dispatch table. Every slot starts out mapped
// to opNop so an unrecognized byte in the instruction stream can't crash
// the interpreter, matching the original RegVM::Configure().
func (vm *VM) configure() {
	for i := range vm.opTable {
		vm.opTable[i] = opNop
	}

	vm.opTable[OpHALT] = opHalt
	vm.opTable[OpNOP] = opNop
	vm.opTable[OpINT] = opInt

	vm.opTable[OpCLF] = opClf
	vm.opTable[OpMOVF] = opMovf
	vm.opTable[OpMOVI] = opMovi
	vm.opTable[OpMOVT] = opMovt
	vm.opTable[OpMOV] = opMov
	vm.opTable[OpPUSH] = opPush
	vm.opTable[OpPUSHF] = opPushf
	vm.opTable[OpPUSHI] = opPushi
	vm.opTable[OpPOP] = opPop
	vm.opTable[OpPOPF] = opPopf
	vm.opTable[OpPOPTO] = opPopto

	vm.opTable[OpADD] = opAdd
	vm.opTable[OpSUB] = opSub
	vm.opTable[OpCMP] = opCmp
	vm.opTable[OpMUL] = opMul
	vm.opTable[OpDIV] = opDiv
	vm.opTable[OpMOD] = opMod
	vm.opTable[OpINC] = opInc
	vm.opTable[OpDEC] = opDec
	vm.opTable[OpAND] = opAnd
	vm.opTable[OpOR] = opOr
	vm.opTable[OpXOR] = opXor
	vm.opTable[OpNOT] = opNot
	vm.opTable[OpSHL] = opShl
	vm.opTable[OpSHR] = opShr

	vm.opTable[OpCALLI] = opCalli
	vm.opTable[OpCALLR] = opCallr
	vm.opTable[OpRET] = opRet
	vm.opTable[OpJMP] = opJmp
	vm.opTable[OpJZ] = opJz
	vm.opTable[OpJNZ] = opJnz
	// JE/JNE stay aliased to the zero-flag jumps: the assembly mnemonics
	// are distinct but the runtime behavior they compile to isn't.
	vm.opTable[OpJE] = opJz
	vm.opTable[OpJNE] = opJnz
	vm.opTable[OpJGT] = opJgt
	vm.opTable[OpJLT] = opJlt
	vm.opTable[OpJLE] = opJle
	vm.opTable[OpJGE] = opJge
}

func readU64(mem []byte, addr int64) (uint64, error) {
	if addr < 0 || addr+8 > int64(len(mem)) {
		return 0, fmt.Errorf("memory read out of bounds at address %d", addr)
	}
	return binary.LittleEndian.Uint64(mem[addr : addr+8]), nil
}

func writeU64(mem []byte, addr int64, v uint64) error {
	if addr < 0 || addr+8 > int64(len(mem)) {
		return fmt.Errorf("memory write out of bounds at address %d", addr)
	}
	binary.LittleEndian.PutUint64(mem[addr:addr+8], v)
	return nil
}

// operand reads the 8-byte operand starting right after the opcode byte at
// the current IP, without moving IP itself.
func operand(c *Context, offset int64) (uint64, error) {
	return readU64(c.Mem, c.R[RegIP]+1+offset)
}

func setArithmeticFlags(c *Context, value int64) {
	if value == 0 {
		c.R[RegF] |= FlagZero
	} else {
		c.R[RegF] &^= FlagZero
	}
	if value < 0 {
		c.R[RegF] |= FlagSign
	} else {
		c.R[RegF] &^= FlagSign
	}
}

func (c *Context) zero() bool { return c.R[RegF]&FlagZero != 0 }
func (c *Context) sign() bool { return c.R[RegF]&FlagSign != 0 }

func regOperand(c *Context, offset int64) (Reg, error) {
	v, err := operand(c, offset)
	if err != nil {
		return 0, err
	}
	if v >= uint64(regCount) {
		return 0, fmt.Errorf("invalid register code %d", v)
	}
	return Reg(v), nil
}

func opHalt(c *Context) error {
	c.Running = false
	return nil
}

func opInt(c *Context) error {
	fmt.Fprintf(c.Out, "REGISTERS:\n------------\n"+
		"a:\t%d\nb:\t%d\nc:\t%d\nip:\t%d\nsp:\t%d\nf:\t%d\n",
		c.R[RegA], c.R[RegB], c.R[RegC], c.R[RegIP], c.R[RegSP], c.R[RegF])
	return nil
}

func opClf(c *Context) error {
	c.R[RegF] = 0
	return nil
}

func opMovi(c *Context) error {
	r, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	v, err := operand(c, 8)
	if err != nil {
		return err
	}
	c.R[r] = int64(v)
	c.R[RegIP] += 16
	return nil
}

func opMovf(c *Context) error {
	r, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	addr, err := operand(c, 8)
	if err != nil {
		return err
	}
	v, err := readU64(c.Mem, int64(addr))
	if err != nil {
		return err
	}
	c.R[r] = int64(v)
	c.R[RegIP] += 16
	return nil
}

func opMovt(c *Context) error {
	addr, err := operand(c, 0)
	if err != nil {
		return err
	}
	r, err := regOperand(c, 8)
	if err != nil {
		return err
	}
	if err := writeU64(c.Mem, int64(addr), uint64(c.R[r])); err != nil {
		return err
	}
	c.R[RegIP] += 16
	return nil
}

func opMov(c *Context) error {
	r1, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	r2, err := regOperand(c, 8)
	if err != nil {
		return err
	}
	c.R[r1] = c.R[r2]
	c.R[RegIP] += 16
	return nil
}

func opPush(c *Context) error {
	r, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	c.R[RegSP] -= 8
	if err := writeU64(c.Mem, c.R[RegSP], uint64(c.R[r])); err != nil {
		return err
	}
	c.R[RegIP] += 8
	return nil
}

func opPushf(c *Context) error {
	c.R[RegSP] -= 8
	if err := writeU64(c.Mem, c.R[RegSP], uint64(c.R[RegF])); err != nil {
		return err
	}
	return nil
}

func opPushi(c *Context) error {
	v, err := operand(c, 0)
	if err != nil {
		return err
	}
	c.R[RegSP] -= 8
	if err := writeU64(c.Mem, c.R[RegSP], v); err != nil {
		return err
	}
	c.R[RegIP] += 8
	return nil
}

func opPop(c *Context) error {
	r, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	v, err := readU64(c.Mem, c.R[RegSP])
	if err != nil {
		return err
	}
	c.R[r] = int64(v)
	c.R[RegSP] += 8
	c.R[RegIP] += 8
	return nil
}

func opPopf(c *Context) error {
	v, err := readU64(c.Mem, c.R[RegSP])
	if err != nil {
		return err
	}
	c.R[RegF] = int64(v)
	c.R[RegSP] += 8
	return nil
}

func opPopto(c *Context) error {
	addr, err := operand(c, 0)
	if err != nil {
		return err
	}
	v, err := readU64(c.Mem, c.R[RegSP])
	if err != nil {
		return err
	}
	if err := writeU64(c.Mem, int64(addr), v); err != nil {
		return err
	}
	c.R[RegSP] += 8
	c.R[RegIP] += 8
	return nil
}

func arith2(c *Context, apply func(a, b int64) int64) error {
	r1, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	r2, err := regOperand(c, 8)
	if err != nil {
		return err
	}
	c.R[r1] = apply(c.R[r1], c.R[r2])
	setArithmeticFlags(c, c.R[r1])
	c.R[RegIP] += 16
	return nil
}

func opAdd(c *Context) error { return arith2(c, func(a, b int64) int64 { return a + b }) }
func opSub(c *Context) error { return arith2(c, func(a, b int64) int64 { return a - b }) }
func opMul(c *Context) error { return arith2(c, func(a, b int64) int64 { return a * b }) }
func opAnd(c *Context) error { return arith2(c, func(a, b int64) int64 { return a & b }) }
func opOr(c *Context) error  { return arith2(c, func(a, b int64) int64 { return a | b }) }
func opXor(c *Context) error { return arith2(c, func(a, b int64) int64 { return a ^ b }) }
func opShl(c *Context) error { return arith2(c, func(a, b int64) int64 { return a << uint64(b) }) }
func opShr(c *Context) error {
	return arith2(c, func(a, b int64) int64 { return int64(uint64(a) >> uint64(b)) })
}

func opDiv(c *Context) error {
	r1, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	r2, err := regOperand(c, 8)
	if err != nil {
		return err
	}
	if c.R[r2] == 0 {
		return ErrDivisionByZero
	}
	c.R[r1] = c.R[r1] / c.R[r2]
	setArithmeticFlags(c, c.R[r1])
	c.R[RegIP] += 16
	return nil
}

func opMod(c *Context) error {
	r1, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	r2, err := regOperand(c, 8)
	if err != nil {
		return err
	}
	if c.R[r2] == 0 {
		return ErrDivisionByZero
	}
	c.R[r1] = c.R[r1] % c.R[r2]
	setArithmeticFlags(c, c.R[r1])
	c.R[RegIP] += 16
	return nil
}

func opCmp(c *Context) error {
	r1, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	r2, err := regOperand(c, 8)
	if err != nil {
		return err
	}
	setArithmeticFlags(c, c.R[r1]-c.R[r2])
	c.R[RegIP] += 16
	return nil
}

func opInc(c *Context) error {
	r, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	c.R[r]++
	setArithmeticFlags(c, c.R[r])
	c.R[RegIP] += 8
	return nil
}

func opDec(c *Context) error {
	r, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	c.R[r]--
	setArithmeticFlags(c, c.R[r])
	c.R[RegIP] += 8
	return nil
}

// opNot is the one-register complement. The handler table (and the
// interpreter that actually executes it) has always taken a single
// operand; the assembler's grammar is what's corrected to match, not this.
func opNot(c *Context) error {
	r, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	c.R[r] = ^c.R[r]
	setArithmeticFlags(c, c.R[r])
	c.R[RegIP] += 8
	return nil
}

func opCalli(c *Context) error {
	addr, err := operand(c, 0)
	if err != nil {
		return err
	}
	c.R[RegIP] += 8
	c.R[RegSP] -= 8
	if err := writeU64(c.Mem, c.R[RegSP], uint64(c.R[RegIP])); err != nil {
		return err
	}
	c.R[RegIP] = int64(addr) - 1
	return nil
}

// opCallr reads the operand register code, advances past it, pushes the
// return address, then jumps to the value held in that register. The
// original handler computed the address of the register slot itself
// instead of the value stored in it, which would call whatever address
// the register happened to live at in the host process rather than the
// address the register held.
func opCallr(c *Context) error {
	r, err := regOperand(c, 0)
	if err != nil {
		return err
	}
	c.R[RegIP] += 8
	target := c.R[r]
	c.R[RegSP] -= 8
	if err := writeU64(c.Mem, c.R[RegSP], uint64(c.R[RegIP])); err != nil {
		return err
	}
	c.R[RegIP] = target - 1
	return nil
}

func opRet(c *Context) error {
	v, err := readU64(c.Mem, c.R[RegSP])
	if err != nil {
		return err
	}
	c.R[RegIP] = int64(v)
	c.R[RegSP] += 8
	return nil
}

func opJmp(c *Context) error {
	addr, err := operand(c, 0)
	if err != nil {
		return err
	}
	c.R[RegIP] = int64(addr) - 1
	return nil
}

func condJump(c *Context, take bool) error {
	if !take {
		c.R[RegIP] += 8
		return nil
	}
	addr, err := operand(c, 0)
	if err != nil {
		return err
	}
	c.R[RegIP] = int64(addr) - 1
	return nil
}

func opJz(c *Context) error  { return condJump(c, c.zero()) }
func opJnz(c *Context) error { return condJump(c, !c.zero()) }
func opJge(c *Context) error { return condJump(c, c.zero() || !c.sign()) }
func opJle(c *Context) error { return condJump(c, c.zero() || c.sign()) }
func opJgt(c *Context) error { return condJump(c, !c.zero() && !c.sign()) }
func opJlt(c *Context) error { return condJump(c, !c.zero() && c.sign()) }

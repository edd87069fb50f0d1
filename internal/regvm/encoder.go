package regvm

import "encoding/binary"

// unresolved is the sentinel patched into a forward reference until the
// symbol it names is resolved. It mirrors the original toolchain's use of
// (u64)-1 as a placeholder address.
const unresolved = ^uint64(0)

// encoder accumulates the flat byte program. Every opcode is one byte;
// every operand (register code, address, immediate) is an 8-byte
// little-endian field, matching the width the interpreter reads them at.
type encoder struct {
	code []byte
}

func (e *encoder) pos() int {
	return len(e.code)
}

func (e *encoder) op(op Op) {
	e.code = append(e.code, byte(op))
}

func (e *encoder) u64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	e.code = append(e.code, buf[:]...)
}

func (e *encoder) i64(v int64) {
	e.u64(uint64(v))
}

func (e *encoder) reg(r Reg) {
	e.u64(uint64(r))
}

// patch overwrites an already-emitted 8-byte field, used to back-fill
// forward references once the symbol they name is resolved.
func (e *encoder) patch(offset int, v uint64) {
	binary.LittleEndian.PutUint64(e.code[offset:offset+8], v)
}

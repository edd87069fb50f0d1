package regvm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// DefaultMemSize is the memory budget handed to a VM when the caller
// doesn't ask for a specific size; spec leaves the exact figure
// implementation-defined, so this mirrors the original interpreter's 1 MiB.
const DefaultMemSize = 1024 * 1024

// ErrDivisionByZero is reported when DIV or MOD would divide by zero. The
// interpreter treats it as a fault rather than letting it crash the host
// process.
var ErrDivisionByZero = errors.New("division by zero")

// Fault describes why Run stopped running something other than a HALT.
type Fault struct {
	Opcode Op
	IP     int64
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at ip=%d executing %s: %v", f.IP, f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Context is the running state of a register-machine program: the six
// registers, a flat memory buffer the program and its stack both live in,
// and the buffered I/O the INT handler and any future device writes use.
type Context struct {
	R       [regCount]int64
	Mem     []byte
	Running bool

	Out *bufio.Writer
	In  *bufio.Reader
}

// NewContext allocates a Context with memSize bytes of memory and the
// stack pointer seeded at the top of that memory, matching the original
// interpreter's RegVM constructor.
func NewContext(memSize int, out io.Writer, in io.Reader) *Context {
	if memSize <= 0 {
		memSize = DefaultMemSize
	}
	c := &Context{
		Mem: make([]byte, memSize),
		Out: bufio.NewWriter(out),
		In:  bufio.NewReader(in),
	}
	c.R[RegSP] = int64(memSize - 1)
	return c
}

// LoadProgram copies a flat binary program into memory starting at
// address 0.
func (c *Context) LoadProgram(program []byte) {
	copy(c.Mem, program)
}

// VM couples a Context with the 256-entry opcode dispatch table.
type VM struct {
	ctx     *Context
	opTable [256]opHandler
}

type opHandler func(*Context) error

// New builds a VM over a fresh Context of memSize bytes (DefaultMemSize
// when memSize is 0). INT's register dump is written to out; in is kept
// as the Context's buffered reader, which no handler reads.
func New(memSize int, out io.Writer, in io.Reader) *VM {
	vm := &VM{ctx: NewContext(memSize, out, in)}
	vm.configure()
	return vm
}

// Context exposes the VM's running state, e.g. for a debugger or
// disassembly listing to inspect registers between steps.
func (vm *VM) Context() *Context { return vm.ctx }

// LoadProgram loads program into the VM's memory at address 0.
func (vm *VM) LoadProgram(program []byte) { vm.ctx.LoadProgram(program) }

// Start arms the VM for execution: the running flag is set and IP is
// reset to -1, so the first Step's pre-increment lands it on byte 0. A
// debugger that single-steps with Step instead of Run must call this
// first.
func (vm *VM) Start() {
	vm.ctx.Running = true
	vm.ctx.R[RegIP] = -1
}

// Run executes the loaded program until it halts or faults. IP starts at
// -1 and is pre-incremented before each fetch, matching the source
// interpreter's Run() loop.
func (vm *VM) Run() (*Fault, error) {
	vm.Start()
	for vm.ctx.Running {
		if fault := vm.Step(); fault != nil {
			vm.ctx.Out.Flush()
			return fault, nil
		}
	}
	vm.ctx.Out.Flush()
	return nil, nil
}

// Step executes a single instruction: increment IP, fetch the opcode
// byte, and dispatch. It returns a non-nil Fault if the handler reported
// an error; unknown opcodes default to NOP rather than faulting, matching
// the original's always-initialized-to-_nop opTable.
func (vm *VM) Step() *Fault {
	ip := vm.ctx.R[RegIP] + 1
	vm.ctx.R[RegIP] = ip
	if ip < 0 || int(ip) >= len(vm.ctx.Mem) {
		vm.ctx.Running = false
		return &Fault{IP: ip, Err: errors.New("instruction pointer out of bounds")}
	}
	op := Op(vm.ctx.Mem[ip])
	handler := vm.opTable[op]
	if handler == nil {
		handler = opNop
	}
	if err := handler(vm.ctx); err != nil {
		vm.ctx.Running = false
		return &Fault{Opcode: op, IP: ip, Err: err}
	}
	return nil
}

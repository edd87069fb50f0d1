// Command svm runs a SimpleVM binary program under either interpreter
// variant.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"simplevm/internal/regvm"
	"simplevm/internal/stackvm"
)

var (
	debug  = flag.Bool("debug", false, "enter single-step debug mode (register VM only)")
	disasm = flag.Bool("disasm", false, "print a disassembly listing instead of running (register VM only)")
	memKB  = flag.Int("mem", 0, "override interpreter memory size, in KB (register VM only)")

	log = logrus.New()
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <program file> <s|r>\n", os.Args[0])
}

func main() {
	flag.Parse()
	log.SetFormatter(&logrus.TextFormatter{})
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	path, mode := flag.Arg(0), flag.Arg(1)

	program, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Error("unable to open program file")
		os.Exit(1)
	}

	switch mode {
	case "s":
		runStackVM(program)
	case "r":
		runRegVM(program)
	default:
		usage()
		os.Exit(1)
	}
}

func runStackVM(program []byte) {
	ctx := stackvm.NewContext(0)
	ctx.LoadProgram(program)
	ctx.Run()
	os.Exit(0)
}

func runRegVM(program []byte) {
	if *disasm {
		for _, line := range regvm.Disassemble(program) {
			fmt.Println(line)
		}
		return
	}

	memSize := regvm.DefaultMemSize
	if *memKB > 0 {
		memSize = *memKB * 1024
	}

	vm := regvm.New(memSize, os.Stdout, os.Stdin)
	vm.LoadProgram(program)

	if *debug {
		runRegVMDebug(vm)
		return
	}

	fault, err := vm.Run()
	if err != nil {
		log.WithError(err).Error("interpreter error")
		os.Exit(1)
	}
	if fault != nil {
		log.WithFields(logrus.Fields{"opcode": fault.Opcode, "ip": fault.IP}).Error(fault.Error())
		os.Exit(1)
	}
}

// runRegVMDebug drives the register VM one instruction at a time,
// printing register state after every step and supporting breakpoints on
// instruction addresses, adapted from the interactive stepper of another
// VM toolchain with its own (different) ISA.
func runRegVMDebug(vm *regvm.VM) {
	log.Debug("Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb or break <addr>: toggle breakpoint at address")

	vm.Start()
	printState(vm)

	reader := bufio.NewReader(os.Stdin)
	waitForInput := true
	breakpoints := make(map[int64]struct{})
	lastBreak := int64(-1)

	for {
		line := ""
		if waitForInput {
			fmt.Print("->")
			line, _ = reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
		} else {
			ip := vm.Context().R[regvm.RegIP] + 1
			if _, ok := breakpoints[ip]; ok && lastBreak != ip {
				log.Debug("breakpoint")
				printState(vm)
				waitForInput = true
				lastBreak = ip
				continue
			}
		}

		switch {
		case !waitForInput || line == "n" || line == "next":
			lastBreak = -1
			fault := vm.Step()
			if waitForInput {
				printState(vm)
			}
			if fault != nil {
				vm.Context().Out.Flush()
				log.WithFields(logrus.Fields{"opcode": fault.Opcode, "ip": fault.IP}).Error(fault.Error())
				return
			}
			if !vm.Context().Running {
				vm.Context().Out.Flush()
				log.Debug("halted")
				return
			}
		case line == "r" || line == "run":
			waitForInput = false
		case strings.HasPrefix(line, "b"):
			arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, "break"), "b"))
			addr, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				fmt.Println("unknown address:", err)
				continue
			}
			if _, ok := breakpoints[addr]; ok {
				delete(breakpoints, addr)
			} else {
				breakpoints[addr] = struct{}{}
			}
		}
	}
}

func printState(vm *regvm.VM) {
	c := vm.Context()
	log.Debugf("a=%d b=%d c=%d ip=%d sp=%d f=%d",
		c.R[regvm.RegA], c.R[regvm.RegB], c.R[regvm.RegC], c.R[regvm.RegIP], c.R[regvm.RegSP], c.R[regvm.RegF])
}

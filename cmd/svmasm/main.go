// Command svmasm assembles SimpleVM source into a flat binary program for
// either virtual machine variant.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"simplevm/internal/regvm"
	"simplevm/internal/stackvm"
)

var (
	mode   = flag.String("m", "", "target mode: s (stack VM) or r (register VM)")
	output = flag.String("o", "out.bin", "output file path")

	log = logrus.New()
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <input file> -m <s|r> [-o <output file>]\n", os.Args[0])
}

func main() {
	flag.Parse()
	log.SetFormatter(&logrus.TextFormatter{})

	// flag.Parse stops at the first positional argument, so the flags that
	// follow the input path are parsed in a second pass.
	var inputPath string
	if flag.NArg() > 0 {
		inputPath = flag.Arg(0)
		flag.CommandLine.Parse(flag.Args()[1:])
	}

	if *mode != "s" && *mode != "r" {
		usage()
		os.Exit(1)
	}
	if inputPath == "" || flag.NArg() != 0 {
		usage()
		os.Exit(1)
	}

	contents, err := os.ReadFile(inputPath)
	if err != nil {
		log.WithError(err).WithField("path", inputPath).Error("unable to open input file")
		os.Exit(1)
	}

	var program []byte
	switch *mode {
	case "s":
		var diags []stackvm.Diagnostic
		program, diags = stackvm.Assemble(string(contents))
		if len(diags) > 0 {
			reportStackDiagnostics(diags)
			os.Exit(1)
		}
	case "r":
		var diags []regvm.Diagnostic
		program, diags = regvm.Assemble(string(contents))
		if len(diags) > 0 {
			reportRegDiagnostics(diags)
			os.Exit(1)
		}
	}

	if err := os.WriteFile(*output, program, 0o644); err != nil {
		log.WithError(err).WithField("path", *output).Error("unable to write output file")
		os.Exit(1)
	}
}

func reportStackDiagnostics(diags []stackvm.Diagnostic) {
	log.Errorf("%d compilation errors occurred", len(diags))
	for _, d := range diags {
		log.Error(d.Message)
	}
}

func reportRegDiagnostics(diags []regvm.Diagnostic) {
	log.Errorf("%d compilation errors occurred", len(diags))
	for _, d := range diags {
		log.WithField("line", d.Line).Error(d.Message)
	}
}

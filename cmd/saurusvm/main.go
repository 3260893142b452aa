// Command saurusvm loads and runs a compiled image.
package main

import (
	"flag"
	"fmt"
	"os"

	saurus "github.com/saurus-lang/saurus"
)

func main() {
	disasm := flag.Bool("disasm", false, "print disassembly instead of running")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: saurusvm [-disasm] <image>")
		os.Exit(2)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "saurusvm:", err)
		os.Exit(1)
	}

	if !saurus.IsImage(data) {
		fmt.Fprintln(os.Stderr, "saurusvm: not a compiled image (compiling source is out of scope; run a compiler front end first)")
		os.Exit(1)
	}

	t := saurus.NewState(saurus.NewConfig())
	defer t.Close()

	fn, err := saurus.LoadImage(t, data)
	if err != nil {
		fmt.Fprintln(os.Stderr, "saurusvm:", err)
		os.Exit(1)
	}

	if *disasm {
		fmt.Println(saurus.Disassemble(fn.Prototype()))
		return
	}

	result, err := t.TryCall(saurus.FunctionValue(fn), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "saurusvm:", err)
		os.Exit(1)
	}

	if result.Type() == saurus.TNumber {
		os.Exit(int(result.AsNumber()))
	}
	os.Exit(0)
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tebeka/atexit"
	"github.com/xiaobogaga/minicc/asm"
)

// a simple program accepts an assembly file produced by minicc, runs the entry function on the asm interpreter
// and prints the value it returns.

var (
	inputPath = flag.String("i", "./output.s", "the input assembly file path")
	entry     = flag.String("entry", "main", "the function to run")
	maxSteps  = flag.Int("max_steps", 1_000_000, "the number of instructions after which the run is aborted")
	verbose   = flag.Bool("v", false, "whether trace every instruction and print the final machine state")
)

type logTracer struct{}

func (logTracer) Step(pc int, inst asm.Instruction) {
	slog.Debug("emulator: step", "pc", pc, "line", inst.Line, "inst", inst.String())
}

func main() {
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	f, err := os.Open(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open file: %s, err: %v\n", *inputPath, err)
		atexit.Exit(1)
	}
	atexit.Register(func() { _ = f.Close() })
	program, err := asm.Parse(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse file, err: %v\n", err)
		atexit.Exit(1)
	}
	opts := []asm.Option{asm.WithMaxSteps(*maxSteps)}
	if *verbose {
		opts = append(opts, asm.WithTracer(logTracer{}))
	}
	machine := asm.NewMachine(program, opts...)
	value, err := machine.Run(*entry)
	if *verbose {
		fmt.Fprintln(os.Stderr, machine.StateTable())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to run %s, err: %v\n", *entry, err)
		atexit.Exit(1)
	}
	fmt.Println(value)
	atexit.Exit(0)
}

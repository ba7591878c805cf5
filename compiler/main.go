package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/tebeka/atexit"
	"github.com/xiaobogaga/minicc/compiler/internal"
)

// minicc compiles one source file, or the -e expression, to x86-64 assembly for the GNU assembler.

var (
	path       = flag.String("path", "", "the path of the source file needs to be compiled")
	expression = flag.String("e", "", "compile this source text instead of -path")
	outputPath = flag.String("o", "", "the output assembly file path, stdout when empty")
	configPath = flag.String("config", "", "an optional yaml config file")
	dumpAst    = flag.Bool("dump_ast", false, "whether print the ast to stderr before generating code")
	verbose    = flag.Bool("v", false, "whether print debug logs")
)

func main() {
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = internal.LevelTrace
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	src, err := readSource()
	if err != nil {
		fail(err)
	}
	config := internal.DefaultConfig()
	if *configPath != "" {
		config, err = internal.LoadConfig(*configPath)
		if err != nil {
			fail(err)
		}
	}
	if *dumpAst {
		program, err := internal.Parse(src)
		if err == nil {
			fmt.Fprintln(os.Stderr, program)
			spew.Fdump(os.Stderr, program)
		}
	}
	code, err := internal.Compile(src, config)
	if err != nil {
		var parseErr *internal.ParseError
		if errors.As(err, &parseErr) {
			fmt.Fprintln(os.Stderr, parseErr.Diagnostic(src))
			atexit.Exit(1)
		}
		fail(err)
	}
	out, err := openOutput()
	if err != nil {
		fail(err)
	}
	if _, err = io.WriteString(out, code); err != nil {
		fail(err)
	}
	atexit.Exit(0)
}

func readSource() (string, error) {
	if *expression != "" {
		return *expression, nil
	}
	if *path == "" {
		return "", errors.New("either -path or -e is required")
	}
	data, err := os.ReadFile(*path)
	if err != nil {
		return "", fmt.Errorf("read source %s: %w", *path, err)
	}
	return string(data), nil
}

// openOutput returns stdout or a file that is closed when the process exits.
func openOutput() (io.Writer, error) {
	if *outputPath == "" {
		return os.Stdout, nil
	}
	f, err := os.Create(*outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", *outputPath, err)
	}
	atexit.Register(func() {
		if err := f.Close(); err != nil {
			slog.Error("close output", "path", *outputPath, "err", err)
		}
	})
	return f, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
	atexit.Exit(1)
}

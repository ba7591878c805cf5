package internal

import (
	"fmt"
	"log/slog"
	"os"
)

// Compile turns src into the assembly of a single function. Every call starts from a fresh identifier table
// and label counter, so compiling the same source twice gives the same text.
func Compile(src string, config Config) (string, error) {
	slog.Debug("compiler: start parser", "bytes", len(src))
	program, err := Parse(src)
	if err != nil {
		return "", err
	}
	slog.Debug("compiler: start generate codes", "statements", len(program.Stmts))
	return Generate(program, config)
}

// CompileFile compiles the file at path.
func CompileFile(path string, config Config) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source %s: %w", path, err)
	}
	return Compile(string(src), config)
}

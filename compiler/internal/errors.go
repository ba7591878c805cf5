package internal

import (
	"fmt"
	"strings"
)

// ParseError reports the first position at which the source stops matching the grammar. The parser never
// resynchronizes, so a compile produces at most one of these.
type ParseError struct {
	Pos    int // byte offset into the source
	Line   int // 1-based
	Column int // 1-based
	Near   string
	// Expected lists what would have been accepted at Pos.
	Expected []string
	// Productions is the stack of grammar rules active at Pos, outermost first.
	Productions []string
	Msg         string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "syntax error near %q at line %d, column %d", e.Near, e.Line, e.Column)
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, ", expected %s", strings.Join(e.Expected, " or "))
	}
	if len(e.Productions) > 0 {
		fmt.Fprintf(&b, " (in %s)", strings.Join(e.Productions, " > "))
	}
	return b.String()
}

// InProduction reports whether name was on the production stack when the error happened.
func (e *ParseError) InProduction(name string) bool {
	for _, production := range e.Productions {
		if production == name {
			return true
		}
	}
	return false
}

// Diagnostic renders the error under the offending source line with a caret at the failing column.
func (e *ParseError) Diagnostic(src string) string {
	lines := strings.Split(src, "\n")
	var b strings.Builder
	if e.Line >= 1 && e.Line <= len(lines) {
		line := strings.TrimRight(lines[e.Line-1], "\r")
		prefix := fmt.Sprintf("%d | ", e.Line)
		b.WriteString(prefix + line + "\n")
		b.WriteString(strings.Repeat(" ", len(prefix)+e.Column-1) + "^ ")
	}
	b.WriteString(e.Error())
	return b.String()
}

// ResourceExhaustedError is returned when a bounded stack frame has no slot left for a new identifier.
type ResourceExhaustedError struct {
	Name     string
	Capacity int
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("stack frame exhausted: no slot for identifier %q, frame holds %d identifiers",
		e.Name, e.Capacity)
}

// InvariantError is the panic value for ast shapes the parser can never produce.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "internal compiler error: " + e.Msg
}

func invariantf(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

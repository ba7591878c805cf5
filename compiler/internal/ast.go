package internal

import (
	"fmt"
	"strconv"
	"strings"
)

// In this file, we defined all ast nodes of the language. A program is a flat list of statements, and every
// statement is an Expr: expression statements are plain expressions, control flow constructs are Expr variants
// that never produce a value.

// Expr is implemented by every ast node. The set of implementations is closed: each one dispatches to its own
// Visitor method, so a Visitor that misses a node kind does not compile.
type Expr interface {
	Accept(v Visitor) error
	String() string
}

// Visitor has one method per ast node kind.
type Visitor interface {
	VisitNum(num *Num) error
	VisitIdent(ident *Ident) error
	VisitBinaryOperation(op *BinaryOperation) error
	VisitReturn(ret *Return) error
	VisitIf(stmt *If) error
	VisitWhile(stmt *While) error
	VisitFor(stmt *For) error
	VisitBlock(block *Block) error
}

type Program struct {
	Stmts []Expr
}

func (program *Program) String() string {
	lines := make([]string, 0, len(program.Stmts))
	for _, stmt := range program.Stmts {
		lines = append(lines, stmtString(stmt))
	}
	return strings.Join(lines, "\n")
}

// Num is an integer literal.
//
//	a = 10;
//	    ^^  Num{Value: 10}
type Num struct {
	Value int64
}

func (num *Num) Accept(v Visitor) error { return v.VisitNum(num) }
func (num *Num) String() string         { return strconv.FormatInt(num.Value, 10) }

// Ident is a read of a named local, or the target of an assignment.
type Ident struct {
	Name string
}

func (ident *Ident) Accept(v Visitor) error { return v.VisitIdent(ident) }
func (ident *Ident) String() string         { return ident.Name }

// BinaryOperation is Left Op Right. For Assign, Left is always an *Ident.
//
//	a = 1 + 2
//	^ ^ ^^^^^
//	| | Right
//	| Op
//	Left
type BinaryOperation struct {
	Op    OperatorKind
	Left  Expr
	Right Expr
}

func (op *BinaryOperation) Accept(v Visitor) error { return v.VisitBinaryOperation(op) }
func (op *BinaryOperation) String() string {
	return fmt.Sprintf("(%s %s %s)", op.Left, op.Op, op.Right)
}

type Return struct {
	Expr Expr
}

func (ret *Return) Accept(v Visitor) error { return v.VisitReturn(ret) }
func (ret *Return) String() string         { return fmt.Sprintf("return %s;", ret.Expr) }

// If has an optional Else, which is nil when absent.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (stmt *If) Accept(v Visitor) error { return v.VisitIf(stmt) }
func (stmt *If) String() string {
	if stmt.Else == nil {
		return fmt.Sprintf("if (%s) %s", stmt.Cond, stmtString(stmt.Then))
	}
	return fmt.Sprintf("if (%s) %s else %s", stmt.Cond, stmtString(stmt.Then), stmtString(stmt.Else))
}

type While struct {
	Cond Expr
	Body Expr
}

func (stmt *While) Accept(v Visitor) error { return v.VisitWhile(stmt) }
func (stmt *While) String() string {
	return fmt.Sprintf("while (%s) %s", stmt.Cond, stmtString(stmt.Body))
}

// For keeps nil for every omitted clause. A nil Cond loops forever.
type For struct {
	Init Expr
	Cond Expr
	Step Expr
	Body Expr
}

func (stmt *For) Accept(v Visitor) error { return v.VisitFor(stmt) }
func (stmt *For) String() string {
	return fmt.Sprintf("for (%s; %s; %s) %s", optionalString(stmt.Init), optionalString(stmt.Cond),
		optionalString(stmt.Step), stmtString(stmt.Body))
}

type Block struct {
	Stmts []Expr
}

func (block *Block) Accept(v Visitor) error { return v.VisitBlock(block) }
func (block *Block) String() string {
	if len(block.Stmts) == 0 {
		return "{ }"
	}
	parts := make([]string, 0, len(block.Stmts))
	for _, stmt := range block.Stmts {
		parts = append(parts, stmtString(stmt))
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// stmtString renders e the way it appears in statement position: expression statements get their ';'.
func stmtString(e Expr) string {
	switch e.(type) {
	case *Num, *Ident, *BinaryOperation:
		return e.String() + ";"
	}
	return e.String()
}

func optionalString(e Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}

type OperatorKind int

const (
	Add OperatorKind = iota
	Sub
	Mul
	Div
	Less
	LessEqual
	Greater
	GreaterEqual
	Equal
	NotEqual
	Assign
)

var operatorNames = [...]string{
	Add:          "+",
	Sub:          "-",
	Mul:          "*",
	Div:          "/",
	Less:         "<",
	LessEqual:    "<=",
	Greater:      ">",
	GreaterEqual: ">=",
	Equal:        "==",
	NotEqual:     "!=",
	Assign:       "=",
}

func (op OperatorKind) String() string {
	if op < 0 || int(op) >= len(operatorNames) {
		return fmt.Sprintf("OperatorKind(%d)", int(op))
	}
	return operatorNames[op]
}

// IsComparison reports whether op yields a 0/1 result.
func (op OperatorKind) IsComparison() bool {
	switch op {
	case Less, LessEqual, Greater, GreaterEqual, Equal, NotEqual:
		return true
	}
	return false
}

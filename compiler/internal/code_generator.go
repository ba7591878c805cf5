package internal

import (
	"bytes"
	"fmt"
	"math"
	"strings"
)

// CodeGenerator lowers a Program to x86-64 assembly (GNU as, intel syntax) in one walk over the ast.
//
// Every expression leaves exactly one 8 byte value on the machine stack, so
// 1 + a * 2 is evaluated as a postorder traversal:
//
//	push 1
//	push a          (load through rbp)
//	push 2
//	pop rdi, pop rax, imul, push rax
//	pop rdi, pop rax, add, push rax
//
// Statements leave the stack as they found it. The generator owns the identifier table and the label
// allocator of one compile; nothing survives into the next compile.
type CodeGenerator struct {
	config Config
	idents *IdentTable
	labels *LabelAllocator
	output bytes.Buffer
	// depth is the number of values pushed by the statement being generated.
	depth int
}

// Generate lowers program with a fresh identifier table and label counter.
func Generate(program *Program, config Config) (string, error) {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		return "", err
	}
	generator := &CodeGenerator{
		config: config,
		idents: NewIdentTable(config.FrameSlots),
		labels: NewLabelAllocator(config.LabelPrefix),
	}
	return generator.generateProgram(program)
}

// generateProgram writes the body first, since the prologue needs to know how many identifiers it uses.
func (generator *CodeGenerator) generateProgram(program *Program) (string, error) {
	for _, stmt := range program.Stmts {
		if generator.config.Comments {
			generator.writeOutput("# " + strings.ReplaceAll(stmtString(stmt), "\n", " "))
		}
		if err := generator.generateStatement(stmt); err != nil {
			return "", err
		}
	}
	if len(program.Stmts) == 0 {
		// Nothing was computed, return 0.
		generator.writeOutput("mov rax, 0")
	}
	body := generator.output.Bytes()

	out := &bytes.Buffer{}
	fmt.Fprintf(out, ".intel_syntax noprefix\n")
	fmt.Fprintf(out, ".globl %s\n", generator.config.EntrySymbol)
	fmt.Fprintf(out, "%s:\n", generator.config.EntrySymbol)
	out.WriteString("  push rbp\n")
	out.WriteString("  mov rbp, rsp\n")
	if frameSize := generator.idents.FrameSize(); frameSize > 0 {
		fmt.Fprintf(out, "  sub rsp, %d\n", frameSize)
	}
	out.Write(body)
	generator.output.Reset()
	generator.generateEpilogue()
	out.Write(generator.output.Bytes())
	Trace("code generator: done", "identifiers", generator.idents.Len(), "labels", generator.labels.Count())
	return out.String(), nil
}

// generateStatement generates stmt and discards the value it leaves behind, if any. The value lands in rax,
// which is what the function returns when stmt is the last one executed.
func (generator *CodeGenerator) generateStatement(stmt Expr) error {
	before := generator.depth
	if err := stmt.Accept(generator); err != nil {
		return err
	}
	switch generator.depth - before {
	case 0:
	case 1:
		generator.pop("rax")
	default:
		panic(invariantf("statement %s left %d values on the stack", stmt, generator.depth-before))
	}
	return nil
}

// generateExpression generates e, which must leave exactly one value.
func (generator *CodeGenerator) generateExpression(e Expr) error {
	before := generator.depth
	if err := e.Accept(generator); err != nil {
		return err
	}
	if generator.depth != before+1 {
		panic(invariantf("%s is used as a value but produced %d values", e, generator.depth-before))
	}
	return nil
}

// generateBranchIfZero evaluates cond and jumps to label when it is 0.
func (generator *CodeGenerator) generateBranchIfZero(cond Expr, label string) error {
	if err := generator.generateExpression(cond); err != nil {
		return err
	}
	generator.pop("rax")
	generator.writeOutput("cmp rax, 0")
	generator.writeOutput("je " + label)
	return nil
}

func (generator *CodeGenerator) VisitNum(num *Num) error {
	if num.Value < math.MinInt32 || num.Value > math.MaxInt32 {
		// push only takes a sign extended 32 bit immediate.
		generator.writeOutput(fmt.Sprintf("mov rax, %d", num.Value))
		generator.push("rax")
		return nil
	}
	generator.push(fmt.Sprintf("%d", num.Value))
	return nil
}

func (generator *CodeGenerator) VisitIdent(ident *Ident) error {
	if err := generator.generateAddress(ident); err != nil {
		return err
	}
	generator.writeOutput("mov rax, [rax]")
	generator.push("rax")
	return nil
}

// generateAddress leaves the address of ident in rax.
func (generator *CodeGenerator) generateAddress(ident *Ident) error {
	offset, err := generator.idents.Offset(ident.Name)
	if err != nil {
		return err
	}
	generator.writeOutput("mov rax, rbp")
	generator.writeOutput(fmt.Sprintf("sub rax, %d", offset))
	return nil
}

func (generator *CodeGenerator) VisitBinaryOperation(op *BinaryOperation) error {
	if op.Op == Assign {
		return generator.generateAssign(op)
	}
	if err := generator.generateExpression(op.Left); err != nil {
		return err
	}
	if err := generator.generateExpression(op.Right); err != nil {
		return err
	}
	generator.pop("rdi")
	generator.pop("rax")
	switch {
	case op.Op.IsComparison():
		generator.writeOutput("cmp rax, rdi")
		generator.writeOutput(setInstructions[op.Op] + " al")
		generator.writeOutput("movzx rax, al")
	case op.Op == Add:
		generator.writeOutput("add rax, rdi")
	case op.Op == Sub:
		generator.writeOutput("sub rax, rdi")
	case op.Op == Mul:
		generator.writeOutput("imul rax, rdi")
	case op.Op == Div:
		// rdx:rax / rdi, the quotient is truncated toward zero.
		generator.writeOutput("cqo")
		generator.writeOutput("idiv rdi")
	default:
		panic(invariantf("unknown operator %s", op.Op))
	}
	generator.push("rax")
	return nil
}

var setInstructions = map[OperatorKind]string{
	Less:         "setl",
	LessEqual:    "setle",
	Greater:      "setg",
	GreaterEqual: "setge",
	Equal:        "sete",
	NotEqual:     "setne",
}

// generateAssign stores the right hand side into the slot of the target and keeps the stored value as the
// result, so a = b = 1 works.
func (generator *CodeGenerator) generateAssign(op *BinaryOperation) error {
	target, ok := op.Left.(*Ident)
	if !ok {
		panic(invariantf("assignment target %s is not an identifier", op.Left))
	}
	if err := generator.generateAddress(target); err != nil {
		return err
	}
	generator.push("rax")
	if err := generator.generateExpression(op.Right); err != nil {
		return err
	}
	generator.pop("rdi")
	generator.pop("rax")
	generator.writeOutput("mov [rax], rdi")
	generator.push("rdi")
	return nil
}

func (generator *CodeGenerator) VisitReturn(ret *Return) error {
	if err := generator.generateExpression(ret.Expr); err != nil {
		return err
	}
	generator.pop("rax")
	generator.generateEpilogue()
	return nil
}

// If condition code.
// cmp rax, 0
// je else_label
// then statement code.
// jmp end_label
// else_label:
// else statement code, if any.
// end_label:
func (generator *CodeGenerator) VisitIf(stmt *If) error {
	labels := generator.labels.Next()
	if err := generator.generateBranchIfZero(stmt.Cond, labels.Else); err != nil {
		return err
	}
	if err := generator.generateStatement(stmt.Then); err != nil {
		return err
	}
	generator.writeOutput("jmp " + labels.End)
	generator.writeLabel(labels.Else)
	if stmt.Else != nil {
		if err := generator.generateStatement(stmt.Else); err != nil {
			return err
		}
	}
	generator.writeLabel(labels.End)
	return nil
}

// begin_label:
// While condition code.
// je end_label
// body code.
// jmp begin_label
// end_label:
func (generator *CodeGenerator) VisitWhile(stmt *While) error {
	labels := generator.labels.Next()
	generator.writeLabel(labels.Begin)
	if err := generator.generateBranchIfZero(stmt.Cond, labels.End); err != nil {
		return err
	}
	if err := generator.generateStatement(stmt.Body); err != nil {
		return err
	}
	generator.writeOutput("jmp " + labels.Begin)
	generator.writeLabel(labels.End)
	return nil
}

// Init code, its value discarded.
// begin_label:
// Condition code and je end_label, when there is a condition.
// body code.
// Step code, its value discarded.
// jmp begin_label
// end_label:
func (generator *CodeGenerator) VisitFor(stmt *For) error {
	labels := generator.labels.Next()
	if stmt.Init != nil {
		if err := generator.generateStatement(stmt.Init); err != nil {
			return err
		}
	}
	generator.writeLabel(labels.Begin)
	if stmt.Cond != nil {
		if err := generator.generateBranchIfZero(stmt.Cond, labels.End); err != nil {
			return err
		}
	}
	if err := generator.generateStatement(stmt.Body); err != nil {
		return err
	}
	if stmt.Step != nil {
		if err := generator.generateStatement(stmt.Step); err != nil {
			return err
		}
	}
	generator.writeOutput("jmp " + labels.Begin)
	generator.writeLabel(labels.End)
	return nil
}

func (generator *CodeGenerator) VisitBlock(block *Block) error {
	for _, stmt := range block.Stmts {
		if err := generator.generateStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// generateEpilogue restores the caller's frame and returns rax.
func (generator *CodeGenerator) generateEpilogue() {
	generator.writeOutput("mov rsp, rbp")
	generator.writeOutput("pop rbp")
	generator.writeOutput("ret")
}

func (generator *CodeGenerator) push(operand string) {
	generator.writeOutput("push " + operand)
	generator.depth++
}

func (generator *CodeGenerator) pop(register string) {
	if generator.depth == 0 {
		panic(invariantf("pop %s from an empty evaluation stack", register))
	}
	generator.writeOutput("pop " + register)
	generator.depth--
}

func (generator *CodeGenerator) writeLabel(label string) {
	generator.output.WriteString(label + ":\n")
}

func (generator *CodeGenerator) writeOutput(output string) {
	generator.output.WriteString("  " + output + "\n")
}

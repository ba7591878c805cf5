// Package asm reads the intel syntax x86-64 subset emitted by the compiler and executes it on a small
// interpreter, so generated code can be checked without an assembler or a linker.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xiaobogaga/minicc/util"
)

type OperandKind int

const (
	RegisterOperand  OperandKind = iota // rax
	ImmediateOperand                    // 42
	MemoryOperand                       // [rax] or [rbp-8]
	LabelOperand                        // .Lend0
)

type Operand struct {
	Kind OperandKind
	// Reg is the register of RegisterOperand and the base register of MemoryOperand.
	Reg   string
	Imm   int64
	Disp  int64
	Label string
}

func (operand Operand) String() string {
	switch operand.Kind {
	case RegisterOperand:
		return operand.Reg
	case ImmediateOperand:
		return strconv.FormatInt(operand.Imm, 10)
	case MemoryOperand:
		if operand.Disp == 0 {
			return "[" + operand.Reg + "]"
		}
		return fmt.Sprintf("[%s%+d]", operand.Reg, operand.Disp)
	default:
		return operand.Label
	}
}

type Instruction struct {
	Op       string
	Operands []Operand
	// Line is the 1-based source line of the instruction.
	Line int
}

func (inst Instruction) String() string {
	if len(inst.Operands) == 0 {
		return inst.Op
	}
	operands := make([]string, len(inst.Operands))
	for i, operand := range inst.Operands {
		operands[i] = operand.String()
	}
	return inst.Op + " " + strings.Join(operands, ", ")
}

// Program is a parsed assembly file. Labels map to the index of the instruction following them.
type Program struct {
	Instructions []Instruction
	Labels       map[string]int
	Globals      []string
}

type SyntaxError struct {
	Line int
	Near string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("asm: line %d near %q: %s", e.Line, e.Near, e.Msg)
}

var registers = map[string]bool{
	"rax": true, "rbx": true, "rcx": true, "rdx": true,
	"rsi": true, "rdi": true, "rbp": true, "rsp": true,
	"al": true,
}

// operandCounts lists the supported mnemonics and how many operands each takes.
var operandCounts = map[string]int{
	"push": 1, "pop": 1,
	"mov": 2, "movzx": 2, "movzb": 2,
	"add": 2, "sub": 2, "imul": 2,
	"cqo": 0, "idiv": 1,
	"cmp": 2,
	"sete": 1, "setne": 1, "setl": 1, "setle": 1, "setg": 1, "setge": 1,
	"jmp": 1, "je": 1, "jne": 1, "jl": 1, "jle": 1, "jg": 1, "jge": 1,
	"ret": 0,
}

func isJump(op string) bool {
	return strings.HasPrefix(op, "j")
}

type reader struct {
	line    int
	program *Program
	// jumps are checked against the label table once the whole file is read, labels may be used before
	// they are declared.
	jumps []int
}

// Parse reads an assembly file. Directives other than .globl are accepted and ignored.
func Parse(rd io.Reader) (*Program, error) {
	r := &reader{program: &Program{Labels: map[string]int{}}}
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		r.line++
		if err := r.readLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := r.resolveJumps(); err != nil {
		return nil, err
	}
	return r.program, nil
}

func (r *reader) makeError(near, format string, args ...interface{}) error {
	return &SyntaxError{Line: r.line, Near: near, Msg: fmt.Sprintf(format, args...)}
}

func (r *reader) readLine(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasSuffix(line, ":") {
		label := strings.TrimSuffix(line, ":")
		if _, ok := r.program.Labels[label]; ok {
			return r.makeError(line, "duplicate label %s", label)
		}
		r.program.Labels[label] = len(r.program.Instructions)
		return nil
	}
	if strings.HasPrefix(line, ".") {
		fields := strings.Fields(line)
		if fields[0] == ".globl" || fields[0] == ".global" {
			if len(fields) != 2 {
				return r.makeError(line, "%s takes one symbol", fields[0])
			}
			r.program.Globals = append(r.program.Globals, fields[1])
		}
		return nil
	}
	inst, err := r.readInstruction(line)
	if err != nil {
		return err
	}
	if isJump(inst.Op) {
		r.jumps = append(r.jumps, len(r.program.Instructions))
	}
	r.program.Instructions = append(r.program.Instructions, inst)
	return nil
}

func (r *reader) readInstruction(line string) (Instruction, error) {
	op, rest, _ := strings.Cut(line, " ")
	count, ok := operandCounts[op]
	if !ok {
		return Instruction{}, r.makeError(line, "unknown instruction %s", op)
	}
	inst := Instruction{Op: op, Line: r.line}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, field := range strings.Split(rest, ",") {
			operand, err := r.readOperand(strings.TrimSpace(field), isJump(op))
			if err != nil {
				return Instruction{}, err
			}
			inst.Operands = append(inst.Operands, operand)
		}
	}
	if len(inst.Operands) != count {
		return Instruction{}, r.makeError(line, "%s takes %d operands, got %d", op, count, len(inst.Operands))
	}
	return inst, nil
}

func (r *reader) readOperand(field string, jump bool) (Operand, error) {
	switch {
	case field == "":
		return Operand{}, r.makeError(field, "missing operand")
	case jump:
		return Operand{Kind: LabelOperand, Label: field}, nil
	case registers[field]:
		return Operand{Kind: RegisterOperand, Reg: field}, nil
	case strings.HasPrefix(field, "["):
		return r.readMemoryOperand(field)
	}
	if !util.IsSignedNumber(field) {
		return Operand{}, r.makeError(field, "bad operand")
	}
	imm, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return Operand{}, r.makeError(field, "immediate out of range")
	}
	return Operand{Kind: ImmediateOperand, Imm: imm}, nil
}

// readMemoryOperand accepts [reg], [reg+disp] and [reg-disp].
func (r *reader) readMemoryOperand(field string) (Operand, error) {
	if !strings.HasSuffix(field, "]") {
		return Operand{}, r.makeError(field, "unterminated memory operand")
	}
	inner := strings.ReplaceAll(field[1:len(field)-1], " ", "")
	base, disp := inner, ""
	if i := strings.IndexAny(inner, "+-"); i > 0 {
		base, disp = inner[:i], inner[i:]
	}
	if !registers[base] || base == "al" {
		return Operand{}, r.makeError(field, "bad base register %s", base)
	}
	operand := Operand{Kind: MemoryOperand, Reg: base}
	if disp != "" {
		value, err := strconv.ParseInt(disp, 0, 64)
		if err != nil {
			return Operand{}, r.makeError(field, "bad displacement %s", disp)
		}
		operand.Disp = value
	}
	return operand, nil
}

func (r *reader) resolveJumps() error {
	for _, index := range r.jumps {
		inst := r.program.Instructions[index]
		if _, ok := r.program.Labels[inst.Operands[0].Label]; !ok {
			return &SyntaxError{Line: inst.Line, Near: inst.String(), Msg: "undefined label " + inst.Operands[0].Label}
		}
	}
	return nil
}

package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	defaultMaxSteps  = 1_000_000
	defaultStackSize = 64 * 1024
	// stackBase is the lowest address of the stack, anything below it is unmapped.
	stackBase int64 = 0x7fff0000
	// haltAddress is the return address of the entry function, returning to it stops the machine.
	haltAddress int64 = -1
)

var (
	ErrStepLimit      = errors.New("step limit exceeded")
	ErrDivideByZero   = errors.New("division by zero")
	ErrDivideOverflow = errors.New("division overflow")
	ErrSegmentation   = errors.New("memory access outside the stack")
	ErrMisaligned     = errors.New("misaligned memory access")
	ErrFlagsUnset     = errors.New("flags read before any cmp")
)

// ExecError is a fault raised while executing the instruction at PC.
type ExecError struct {
	PC   int
	Line int
	Inst string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("asm: line %d, %q: %v", e.Line, e.Inst, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Tracer observes every instruction right before it executes.
type Tracer interface {
	Step(pc int, inst Instruction)
}

type Option func(*Machine)

func WithMaxSteps(steps int) Option {
	return func(machine *Machine) { machine.maxSteps = steps }
}

// WithStackSize sets the stack size in bytes, rounded down to a multiple of 16.
func WithStackSize(size int) Option {
	return func(machine *Machine) { machine.stack = make([]byte, size/16*16) }
}

func WithTracer(tracer Tracer) Option {
	return func(machine *Machine) { machine.tracer = tracer }
}

// flags keeps the operands of the last cmp, conditions are evaluated as signed comparisons.
type flags struct {
	set      bool
	lhs, rhs int64
}

func (f flags) holds(condition string) bool {
	switch condition {
	case "e":
		return f.lhs == f.rhs
	case "ne":
		return f.lhs != f.rhs
	case "l":
		return f.lhs < f.rhs
	case "le":
		return f.lhs <= f.rhs
	case "g":
		return f.lhs > f.rhs
	case "ge":
		return f.lhs >= f.rhs
	}
	return true
}

// Machine executes a Program. Only the stack is addressable memory.
type Machine struct {
	program   *Program
	registers map[string]int64
	stack     []byte
	flags     flags
	pc        int
	steps     int
	maxSteps  int
	tracer    Tracer
}

func NewMachine(program *Program, opts ...Option) *Machine {
	machine := &Machine{
		program:   program,
		registers: map[string]int64{},
		stack:     make([]byte, defaultStackSize),
		maxSteps:  defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(machine)
	}
	return machine
}

// Run calls the function at entry and returns its rax. The machine is reset first, so Run can be called
// repeatedly.
func (machine *Machine) Run(entry string) (int64, error) {
	pc, ok := machine.program.Labels[entry]
	if !ok {
		return 0, fmt.Errorf("asm: entry symbol %s is not defined", entry)
	}
	machine.reset()
	machine.pc = pc
	if err := machine.push(haltAddress); err != nil {
		return 0, err
	}
	for machine.pc != int(haltAddress) {
		if machine.pc < 0 || machine.pc >= len(machine.program.Instructions) {
			return 0, fmt.Errorf("asm: pc %d ran off the program", machine.pc)
		}
		inst := machine.program.Instructions[machine.pc]
		if machine.steps >= machine.maxSteps {
			return 0, machine.makeError(inst, ErrStepLimit)
		}
		if machine.tracer != nil {
			machine.tracer.Step(machine.pc, inst)
		}
		machine.steps++
		if err := machine.execute(inst); err != nil {
			return 0, machine.makeError(inst, err)
		}
	}
	return machine.registers["rax"], nil
}

func (machine *Machine) reset() {
	for name := range registers {
		machine.registers[name] = 0
	}
	delete(machine.registers, "al")
	machine.registers["rsp"] = stackBase + int64(len(machine.stack))
	clear(machine.stack)
	machine.flags = flags{}
	machine.steps = 0
}

// Register returns the value of a 64 bit register.
func (machine *Machine) Register(name string) int64 {
	return machine.registers[name]
}

func (machine *Machine) Steps() int {
	return machine.steps
}

func (machine *Machine) makeError(inst Instruction, err error) error {
	return &ExecError{PC: machine.pc, Line: inst.Line, Inst: inst.String(), Err: err}
}

func (machine *Machine) execute(inst Instruction) error {
	next := machine.pc + 1
	operands := inst.Operands
	switch inst.Op {
	case "push":
		value, err := machine.read(operands[0])
		if err != nil {
			return err
		}
		if err := machine.push(value); err != nil {
			return err
		}
	case "pop":
		value, err := machine.pop()
		if err != nil {
			return err
		}
		if err := machine.write(operands[0], value); err != nil {
			return err
		}
	case "mov", "movzx", "movzb":
		value, err := machine.read(operands[1])
		if err != nil {
			return err
		}
		if err := machine.write(operands[0], value); err != nil {
			return err
		}
	case "add", "sub", "imul":
		if err := machine.arithmetic(inst.Op, operands[0], operands[1]); err != nil {
			return err
		}
	case "cqo":
		if machine.registers["rax"] < 0 {
			machine.registers["rdx"] = -1
		} else {
			machine.registers["rdx"] = 0
		}
	case "idiv":
		if err := machine.divide(operands[0]); err != nil {
			return err
		}
	case "cmp":
		lhs, err := machine.read(operands[0])
		if err != nil {
			return err
		}
		rhs, err := machine.read(operands[1])
		if err != nil {
			return err
		}
		machine.flags = flags{set: true, lhs: lhs, rhs: rhs}
	case "sete", "setne", "setl", "setle", "setg", "setge":
		if !machine.flags.set {
			return ErrFlagsUnset
		}
		var value int64
		if machine.flags.holds(inst.Op[3:]) {
			value = 1
		}
		if err := machine.write(operands[0], value); err != nil {
			return err
		}
	case "jmp":
		next = machine.program.Labels[operands[0].Label]
	case "je", "jne", "jl", "jle", "jg", "jge":
		if !machine.flags.set {
			return ErrFlagsUnset
		}
		if machine.flags.holds(inst.Op[1:]) {
			next = machine.program.Labels[operands[0].Label]
		}
	case "ret":
		address, err := machine.pop()
		if err != nil {
			return err
		}
		next = int(address)
	default:
		return fmt.Errorf("unsupported instruction %s", inst.Op)
	}
	machine.pc = next
	return nil
}

func (machine *Machine) arithmetic(op string, dst, src Operand) error {
	if dst.Kind != RegisterOperand {
		return fmt.Errorf("%s needs a register destination", op)
	}
	lhs, err := machine.read(dst)
	if err != nil {
		return err
	}
	rhs, err := machine.read(src)
	if err != nil {
		return err
	}
	switch op {
	case "add":
		lhs += rhs
	case "sub":
		lhs -= rhs
	case "imul":
		lhs *= rhs
	}
	return machine.write(dst, lhs)
}

// divide implements idiv with a 64 bit divisor: rdx:rax / src, quotient in rax, remainder in rdx.
func (machine *Machine) divide(src Operand) error {
	divisor, err := machine.read(src)
	if err != nil {
		return err
	}
	dividend, high := machine.registers["rax"], machine.registers["rdx"]
	if divisor == 0 {
		return ErrDivideByZero
	}
	// Only sign extended dividends fit in 64 bits.
	if (dividend < 0 && high != -1) || (dividend >= 0 && high != 0) {
		return ErrDivideOverflow
	}
	if dividend == math.MinInt64 && divisor == -1 {
		return ErrDivideOverflow
	}
	machine.registers["rax"] = dividend / divisor
	machine.registers["rdx"] = dividend % divisor
	return nil
}

func (machine *Machine) read(operand Operand) (int64, error) {
	switch operand.Kind {
	case RegisterOperand:
		if operand.Reg == "al" {
			return machine.registers["rax"] & 0xff, nil
		}
		return machine.registers[operand.Reg], nil
	case ImmediateOperand:
		return operand.Imm, nil
	case MemoryOperand:
		return machine.load(machine.registers[operand.Reg] + operand.Disp)
	}
	return 0, fmt.Errorf("operand %s can not be read", operand)
}

func (machine *Machine) write(operand Operand, value int64) error {
	switch operand.Kind {
	case RegisterOperand:
		if operand.Reg == "al" {
			machine.registers["rax"] = machine.registers["rax"]&^0xff | value&0xff
			return nil
		}
		machine.registers[operand.Reg] = value
		return nil
	case MemoryOperand:
		return machine.store(machine.registers[operand.Reg]+operand.Disp, value)
	}
	return fmt.Errorf("operand %s can not be written", operand)
}

func (machine *Machine) push(value int64) error {
	rsp := machine.registers["rsp"] - 8
	if err := machine.store(rsp, value); err != nil {
		return err
	}
	machine.registers["rsp"] = rsp
	return nil
}

func (machine *Machine) pop() (int64, error) {
	rsp := machine.registers["rsp"]
	value, err := machine.load(rsp)
	if err != nil {
		return 0, err
	}
	machine.registers["rsp"] = rsp + 8
	return value, nil
}

// offset maps an address to an index into the stack.
func (machine *Machine) offset(address int64) (int, error) {
	if address%8 != 0 {
		return 0, fmt.Errorf("%w: 0x%x", ErrMisaligned, address)
	}
	offset := address - stackBase
	if offset < 0 || offset+8 > int64(len(machine.stack)) {
		return 0, fmt.Errorf("%w: 0x%x", ErrSegmentation, address)
	}
	return int(offset), nil
}

func (machine *Machine) load(address int64) (int64, error) {
	offset, err := machine.offset(address)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(machine.stack[offset:])), nil
}

func (machine *Machine) store(address int64, value int64) error {
	offset, err := machine.offset(address)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(machine.stack[offset:], uint64(value))
	return nil
}

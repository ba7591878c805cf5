package asm_test

import (
	"errors"
	"math"
	"strconv"
	"strings"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xiaobogaga/minicc/asm"
)

func parse(lines ...string) *asm.Program {
	program, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	Expect(err).NotTo(HaveOccurred())
	return program
}

func function(body ...string) *asm.Program {
	lines := []string{".intel_syntax noprefix", ".globl main", "main:", "  push rbp", "  mov rbp, rsp"}
	lines = append(lines, body...)
	lines = append(lines, "  mov rsp, rbp", "  pop rbp", "  ret")
	return parse(lines...)
}

var _ = Describe("Reader", func() {
	It("should read labels, globals and operands", func() {
		program := parse(
			".intel_syntax noprefix",
			".globl main",
			"main: ",
			"  mov rax, [rbp-8]  # load",
			"  mov [rax], rdi",
			"  je .Lend0",
			".Lend0:",
			"  ret",
		)

		Expect(program.Globals).To(Equal([]string{"main"}))
		Expect(program.Labels).To(HaveKeyWithValue("main", 0))
		Expect(program.Labels).To(HaveKeyWithValue(".Lend0", 3))
		Expect(program.Instructions).To(HaveLen(4))
		Expect(program.Instructions[0].Operands[1]).
			To(Equal(asm.Operand{Kind: asm.MemoryOperand, Reg: "rbp", Disp: -8}))
		Expect(program.Instructions[0].Line).To(Equal(4))
		Expect(program.Instructions[0].String()).To(Equal("mov rax, [rbp-8]"))
		Expect(program.Instructions[2].Operands[0].Kind).To(Equal(asm.LabelOperand))
	})

	DescribeTable("should reject malformed input",
		func(src string, line int) {
			_, err := asm.Parse(strings.NewReader(src))
			var syntaxErr *asm.SyntaxError
			Expect(errors.As(err, &syntaxErr)).To(BeTrue())
			Expect(syntaxErr.Line).To(Equal(line))
		},
		Entry("unknown instruction", "main:\n  lea rax, [rbp]", 2),
		Entry("operand count", "main:\n  push rax, rdi", 2),
		Entry("undefined label", "main:\n  jmp .Lnowhere", 2),
		Entry("duplicate label", "main:\nmain:", 2),
		Entry("bad register", "  mov rax, [xyz]", 1),
		Entry("bad immediate", "  push 12ab", 1),
		Entry("immediate out of range", "main:\n  push 99999999999999999999", 2),
	)
})

var _ = Describe("Machine", func() {
	var (
		mockCtrl *gomock.Controller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should return rax of the entry function", func() {
		program := function("  push 9", "  push 5", "  pop rdi", "  pop rax", "  sub rax, rdi")
		machine := asm.NewMachine(program)

		value, err := machine.Run("main")

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal(int64(4)))
	})

	It("should store and load stack slots", func() {
		program := function(
			"  sub rsp, 16",
			"  mov rax, rbp",
			"  sub rax, 8",
			"  mov rdi, 42",
			"  mov [rax], rdi",
			"  mov rax, [rbp-8]",
		)

		value, err := asm.NewMachine(program).Run("main")

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal(int64(42)))
	})

	DescribeTable("should set al from the last comparison",
		func(set string, lhs, rhs string, expected int64) {
			program := function(
				"  mov rax, "+lhs,
				"  mov rdi, "+rhs,
				"  cmp rax, rdi",
				"  "+set+" al",
				"  movzx rax, al",
			)

			value, err := asm.NewMachine(program).Run("main")

			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(expected))
		},
		Entry("sete true", "sete", "3", "3", int64(1)),
		Entry("setne false", "setne", "3", "3", int64(0)),
		Entry("setl signed", "setl", "-1", "0", int64(1)),
		Entry("setle", "setle", "2", "1", int64(0)),
		Entry("setg", "setg", "2", "1", int64(1)),
		Entry("setge", "setge", "1", "1", int64(1)),
	)

	It("should divide toward zero", func() {
		program := function("  mov rax, -7", "  mov rdi, 2", "  cqo", "  idiv rdi")

		value, err := asm.NewMachine(program).Run("main")

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal(int64(-3)))
	})

	It("should fault on division by zero", func() {
		program := function("  mov rax, 1", "  mov rdi, 0", "  cqo", "  idiv rdi")

		_, err := asm.NewMachine(program).Run("main")

		Expect(errors.Is(err, asm.ErrDivideByZero)).To(BeTrue())
		var execErr *asm.ExecError
		Expect(errors.As(err, &execErr)).To(BeTrue())
		Expect(execErr.Inst).To(Equal("idiv rdi"))
	})

	It("should fault on quotient overflow", func() {
		program := function("  mov rax, "+strconv.FormatInt(math.MinInt64, 10), "  mov rdi, -1", "  cqo", "  idiv rdi")

		_, err := asm.NewMachine(program).Run("main")

		Expect(errors.Is(err, asm.ErrDivideOverflow)).To(BeTrue())
	})

	It("should stop after the step limit", func() {
		program := parse("main:", ".Lbegin0:", "  jmp .Lbegin0")

		_, err := asm.NewMachine(program, asm.WithMaxSteps(100)).Run("main")

		Expect(errors.Is(err, asm.ErrStepLimit)).To(BeTrue())
	})

	It("should fault when the stack overflows", func() {
		program := parse("main:", ".Lbegin0:", "  push 1", "  jmp .Lbegin0")

		_, err := asm.NewMachine(program, asm.WithStackSize(256)).Run("main")

		Expect(errors.Is(err, asm.ErrSegmentation)).To(BeTrue())
	})

	It("should fault on conditional jumps without a comparison", func() {
		program := parse("main:", "  je main", "  ret")

		_, err := asm.NewMachine(program).Run("main")

		Expect(errors.Is(err, asm.ErrFlagsUnset)).To(BeTrue())
	})

	It("should reject an undefined entry", func() {
		_, err := asm.NewMachine(function()).Run("start")

		Expect(err).To(HaveOccurred())
	})

	It("should report every step to the tracer", func() {
		program := parse("main:", "  mov rax, 5", "  push rax", "  pop rax", "  ret")
		tracer := NewMockTracer(mockCtrl)
		gomock.InOrder(
			tracer.EXPECT().Step(0, program.Instructions[0]),
			tracer.EXPECT().Step(1, program.Instructions[1]),
			tracer.EXPECT().Step(2, program.Instructions[2]),
			tracer.EXPECT().Step(3, program.Instructions[3]),
		)
		machine := asm.NewMachine(program, asm.WithTracer(tracer))

		value, err := machine.Run("main")

		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal(int64(5)))
		Expect(machine.Steps()).To(Equal(4))
	})

	It("should start every run from a clean state", func() {
		program := function("  add rbx, 1", "  mov rax, rbx")
		machine := asm.NewMachine(program)

		first, err := machine.Run("main")
		Expect(err).NotTo(HaveOccurred())
		second, err := machine.Run("main")
		Expect(err).NotTo(HaveOccurred())

		Expect(first).To(Equal(int64(1)))
		Expect(second).To(Equal(first))
	})

	It("should render registers and the stack", func() {
		machine := asm.NewMachine(function("  mov rax, 7"))
		_, err := machine.Run("main")
		Expect(err).NotTo(HaveOccurred())

		state := machine.StateTable()

		Expect(state).To(ContainSubstring("rax"))
		Expect(state).To(ContainSubstring("Stack"))
		Expect(machine.Register("rax")).To(Equal(int64(7)))
	})
})

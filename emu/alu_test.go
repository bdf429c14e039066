package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	neg := func(v int64) uint64 { return uint64(v) }

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	Describe("Base integer operations", func() {
		It("should add and wrap", func() {
			Expect(alu.Compute(insts.OpADD, 3, 4)).To(Equal(uint64(7)))
			Expect(alu.Compute(insts.OpADDI, math.MaxUint64, 1)).To(Equal(uint64(0)))
		})

		It("should subtract", func() {
			Expect(alu.Compute(insts.OpSUB, 3, 4)).To(Equal(neg(-1)))
		})

		It("should compare signed and unsigned", func() {
			Expect(alu.Compute(insts.OpSLT, neg(-1), 1)).To(Equal(uint64(1)))
			Expect(alu.Compute(insts.OpSLTU, neg(-1), 1)).To(Equal(uint64(0)))
		})

		It("should mask the shift amount to six bits", func() {
			Expect(alu.Compute(insts.OpSLL, 1, 65)).To(Equal(uint64(2)))
			Expect(alu.Compute(insts.OpSRA, neg(-16), 2)).To(Equal(neg(-4)))
			Expect(alu.Compute(insts.OpSRL, neg(-16), 60)).To(Equal(uint64(0xF)))
		})
	})

	Describe("Word operations", func() {
		It("should sign-extend 32-bit results", func() {
			Expect(alu.Compute(insts.OpADDW, 0x7FFFFFFF, 1)).
				To(Equal(uint64(0xFFFFFFFF80000000)))
			Expect(alu.Compute(insts.OpADDIW, 0xFFFFFFFF00000005, 0)).
				To(Equal(uint64(5)))
		})

		It("should shift within 32 bits", func() {
			Expect(alu.Compute(insts.OpSLLW, 1, 31)).
				To(Equal(uint64(0xFFFFFFFF80000000)))
			Expect(alu.Compute(insts.OpSRAW, 0x80000000, 4)).
				To(Equal(uint64(0xFFFFFFFFF8000000)))
			Expect(alu.Compute(insts.OpSRLW, 0x80000000, 4)).
				To(Equal(uint64(0x08000000)))
		})
	})

	Describe("Multiply", func() {
		It("should return the low product", func() {
			Expect(alu.Compute(insts.OpMUL, 6, 7)).To(Equal(uint64(42)))
		})

		It("should return the high half for each signedness", func() {
			Expect(alu.Compute(insts.OpMULHU, math.MaxUint64, 2)).To(Equal(uint64(1)))
			Expect(alu.Compute(insts.OpMULH, neg(-1), neg(-1))).To(Equal(uint64(0)))
			Expect(alu.Compute(insts.OpMULH, neg(-2), 3)).To(Equal(neg(-1)))
			Expect(alu.Compute(insts.OpMULHSU, neg(-1), math.MaxUint64)).
				To(Equal(neg(-1)))
		})

		It("should multiply words", func() {
			Expect(alu.Compute(insts.OpMULW, 0x10000, 0x10000)).To(Equal(uint64(0)))
		})
	})

	Describe("Divide", func() {
		It("should divide signed values", func() {
			Expect(alu.Compute(insts.OpDIV, neg(-7), 2)).To(Equal(neg(-3)))
			Expect(alu.Compute(insts.OpREM, neg(-7), 2)).To(Equal(neg(-1)))
		})

		It("should follow the divide-by-zero convention", func() {
			Expect(alu.Compute(insts.OpDIV, 5, 0)).To(Equal(uint64(math.MaxUint64)))
			Expect(alu.Compute(insts.OpDIVU, 5, 0)).To(Equal(uint64(math.MaxUint64)))
			Expect(alu.Compute(insts.OpREM, 5, 0)).To(Equal(uint64(5)))
			Expect(alu.Compute(insts.OpREMU, 5, 0)).To(Equal(uint64(5)))
		})

		It("should handle signed overflow", func() {
			minInt := uint64(1) << 63
			Expect(alu.Compute(insts.OpDIV, minInt, neg(-1))).To(Equal(minInt))
			Expect(alu.Compute(insts.OpREM, minInt, neg(-1))).To(Equal(uint64(0)))
		})

		It("should divide words", func() {
			Expect(alu.Compute(insts.OpDIVW, 0x80000000, neg(-1))).
				To(Equal(uint64(0xFFFFFFFF80000000)))
			Expect(alu.Compute(insts.OpDIVUW, 0xFFFFFFFF, 0)).To(Equal(uint64(math.MaxUint64)))
			Expect(alu.Compute(insts.OpREMW, 0xFFFFFFF9, 0)).
				To(Equal(uint64(0xFFFFFFFFFFFFFFF9)))
		})
	})

	It("should return zero for unknown operations", func() {
		Expect(alu.Compute(insts.OpUnknown, 1, 2)).To(Equal(uint64(0)))
	})
})

var _ = Describe("Branch", func() {
	It("should evaluate conditions", func() {
		Expect(emu.BranchTaken(insts.OpBEQ, 1, 1)).To(BeTrue())
		Expect(emu.BranchTaken(insts.OpBNE, 1, 1)).To(BeFalse())
		Expect(emu.BranchTaken(insts.OpBLT, uint64(math.MaxUint64), 0)).To(BeTrue())
		Expect(emu.BranchTaken(insts.OpBLTU, uint64(math.MaxUint64), 0)).To(BeFalse())
		Expect(emu.BranchTaken(insts.OpBGE, 0, 0)).To(BeTrue())
		Expect(emu.BranchTaken(insts.OpBGEU, 0, 1)).To(BeFalse())
		Expect(emu.BranchTaken(insts.OpJAL, 0, 0)).To(BeTrue())
	})

	It("should compute targets", func() {
		jal := insts.Instruction{Op: insts.OpJAL, Imm: -8}
		Expect(emu.BranchTarget(&jal, 0x1010, 0)).To(Equal(uint64(0x1008)))

		jalr := insts.Instruction{Op: insts.OpJALR, Imm: 3}
		Expect(emu.BranchTarget(&jalr, 0x1010, 0x2000)).To(Equal(uint64(0x2002)))
	})
})

var _ = Describe("RegFile", func() {
	It("should hardwire x0 to zero", func() {
		regFile := &emu.RegFile{}
		regFile.WriteReg(0, 42)
		regFile.WriteReg(5, 7)

		Expect(regFile.ReadReg(0)).To(Equal(uint64(0)))
		Expect(regFile.ReadReg(5)).To(Equal(uint64(7)))
	})

	It("should reset state", func() {
		regFile := &emu.RegFile{}
		regFile.WriteReg(5, 7)
		regFile.Reset(0x1000)

		Expect(regFile.ReadReg(5)).To(Equal(uint64(0)))
		Expect(regFile.PC).To(Equal(uint64(0x1000)))
	})
})

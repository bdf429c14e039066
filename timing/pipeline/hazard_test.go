package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		hu      *pipeline.HazardUnit
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		hu = pipeline.NewHazardUnit()
		decoder = insts.NewDecoder()
	})

	Describe("DetectForwarding", func() {
		var (
			idex  *pipeline.IDEXRegister
			exmem *pipeline.EXMEMRegister
			memwb *pipeline.MEMWBRegister
		)

		BeforeEach(func() {
			// add a2, a1, a0
			idex = &pipeline.IDEXRegister{Valid: true, Inst: decoder.Decode(0x00a58633)}
			exmem = &pipeline.EXMEMRegister{}
			memwb = &pipeline.MEMWBRegister{}
		})

		It("should not forward without producers", func() {
			result := hu.DetectForwarding(idex, exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardNone))
			Expect(result.ForwardRs2).To(Equal(pipeline.ForwardNone))
		})

		It("should forward from EX/MEM and MEM/WB", func() {
			// addi a1, a0, 3 in EX/MEM; addi a0, zero, 5 in MEM/WB
			exmem.Valid, exmem.Inst, exmem.ALUResult = true, decoder.Decode(0x00350593), 8
			memwb.Valid, memwb.Inst, memwb.ALUResult = true, decoder.Decode(0x00500513), 5

			result := hu.DetectForwarding(idex, exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardFromEXMEM))
			Expect(result.ForwardRs2).To(Equal(pipeline.ForwardFromMEMWB))
			Expect(hu.GetForwardedValue(result.ForwardRs1, 0, exmem, memwb)).To(Equal(uint64(8)))
			Expect(hu.GetForwardedValue(result.ForwardRs2, 0, exmem, memwb)).To(Equal(uint64(5)))
		})

		It("should prefer EX/MEM over MEM/WB", func() {
			// addi a1, zero, 42 in both
			exmem.Valid, exmem.Inst, exmem.ALUResult = true, decoder.Decode(0x02a00593), 1
			memwb.Valid, memwb.Inst, memwb.ALUResult = true, decoder.Decode(0x02a00593), 2

			result := hu.DetectForwarding(idex, exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardFromEXMEM))
		})

		It("should forward loaded data from MEM/WB", func() {
			// ld a1, 0(a0)
			memwb.Valid, memwb.Inst = true, decoder.Decode(0x00053583)
			memwb.ALUResult, memwb.MemData = 0x100, 77

			result := hu.DetectForwarding(idex, exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardFromMEMWB))
			Expect(hu.GetForwardedValue(result.ForwardRs1, 0, exmem, memwb)).To(Equal(uint64(77)))
		})

		It("should never forward x0", func() {
			// add a2, zero, zero
			idex.Inst = decoder.Decode(0x00000633)
			exmem.Valid, exmem.Inst = true, insts.NOP()

			result := hu.DetectForwarding(idex, exmem, memwb)

			Expect(result.ForwardRs1).To(Equal(pipeline.ForwardNone))
			Expect(result.ForwardRs2).To(Equal(pipeline.ForwardNone))
		})
	})

	Describe("DetectLoadUseHazard", func() {
		It("should detect a consumer of a load in execute", func() {
			// ld a2, 0(a0) followed by addi a3, a2, 1
			idex := &pipeline.IDEXRegister{Valid: true, Inst: decoder.Decode(0x00053603)}
			next := decoder.Decode(0x00160693)

			Expect(hu.DetectLoadUseHazard(idex, &next)).To(BeTrue())
		})

		It("should ignore independent instructions", func() {
			idex := &pipeline.IDEXRegister{Valid: true, Inst: decoder.Decode(0x00053603)}
			// addi a1, zero, 42
			next := decoder.Decode(0x02a00593)

			Expect(hu.DetectLoadUseHazard(idex, &next)).To(BeFalse())
		})
	})

	Describe("ComputeControl", func() {
		It("should run every stage without hazards", func() {
			ctrl := hu.ComputeControl(pipeline.HazardInputs{})

			Expect(ctrl).To(Equal(pipeline.Control{
				EnablePC:    true,
				EnableIFID:  true,
				EnableIDEX:  true,
				EnableEXMEM: true,
				EnableMEMWB: true,
			}))
		})

		It("should freeze everything while a system call is pending", func() {
			ctrl := hu.ComputeControl(pipeline.HazardInputs{
				EcallStall:  true,
				BranchTaken: true,
				DCacheStall: true,
			})

			Expect(ctrl).To(Equal(pipeline.Control{}))
		})

		It("should drain a bubble into write-back on a data cache stall", func() {
			ctrl := hu.ComputeControl(pipeline.HazardInputs{
				DCacheStall: true,
				BranchTaken: true,
			})

			Expect(ctrl.EnablePC).To(BeFalse())
			Expect(ctrl.EnableIFID).To(BeFalse())
			Expect(ctrl.EnableIDEX).To(BeFalse())
			Expect(ctrl.EnableEXMEM).To(BeFalse())
			Expect(ctrl.BubbleMEMWB).To(BeTrue())
			Expect(ctrl.Redirect).To(BeFalse())
		})

		It("should flush rather than stall on a taken branch", func() {
			ctrl := hu.ComputeControl(pipeline.HazardInputs{
				BranchTaken: true,
				LoadUse:     true,
				ICacheStall: true,
			})

			Expect(ctrl.FlushIFID).To(BeTrue())
			Expect(ctrl.FlushIDEX).To(BeTrue())
			Expect(ctrl.Redirect).To(BeTrue())
			Expect(ctrl.EnableEXMEM).To(BeTrue())
		})

		It("should hold fetch and decode on a load-use hazard", func() {
			ctrl := hu.ComputeControl(pipeline.HazardInputs{LoadUse: true})

			Expect(ctrl.EnablePC).To(BeFalse())
			Expect(ctrl.EnableIFID).To(BeFalse())
			Expect(ctrl.BubbleIDEX).To(BeTrue())
			Expect(ctrl.EnableEXMEM).To(BeTrue())
		})

		It("should hold the PC and insert a bubble on an instruction cache stall", func() {
			ctrl := hu.ComputeControl(pipeline.HazardInputs{ICacheStall: true})

			Expect(ctrl.EnablePC).To(BeFalse())
			Expect(ctrl.BubbleIFID).To(BeTrue())
			Expect(ctrl.EnableIDEX).To(BeTrue())
		})
	})
})

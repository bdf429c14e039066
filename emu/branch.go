package emu

import "github.com/sarchlab/rvsim/insts"

// BranchTaken evaluates the condition of a conditional branch or reports
// true for unconditional jumps.
func BranchTaken(op insts.Op, rs1, rs2 uint64) bool {
	switch op {
	case insts.OpBEQ:
		return rs1 == rs2
	case insts.OpBNE:
		return rs1 != rs2
	case insts.OpBLT:
		return int64(rs1) < int64(rs2)
	case insts.OpBGE:
		return int64(rs1) >= int64(rs2)
	case insts.OpBLTU:
		return rs1 < rs2
	case insts.OpBGEU:
		return rs1 >= rs2
	case insts.OpJAL, insts.OpJALR:
		return true
	}

	return false
}

// BranchTarget computes the redirect address of a taken branch or jump.
// JALR clears bit 0 of the computed address.
func BranchTarget(inst *insts.Instruction, pc, rs1 uint64) uint64 {
	if inst.Op == insts.OpJALR {
		return (rs1 + uint64(inst.Imm)) &^ 1
	}

	return pc + uint64(inst.Imm)
}

package pipeline

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/cache"
)

// InstructionCache is the fetch-side view of the instruction cache.
type InstructionCache interface {
	// Fetch returns the word at pc, or false while the line is missing.
	Fetch(pc uint64) (uint32, bool)
	// SetFlush drives the flush input for this cycle.
	SetFlush(level bool)
}

// DataCache is the memory-stage view of the data cache.
type DataCache interface {
	// Access performs a load or store, or reports false while it cannot
	// complete this cycle.
	Access(req cache.Request) (uint64, bool)
}

// FetchStage reads instructions from the instruction cache.
type FetchStage struct {
	icache  InstructionCache
	decoder *insts.Decoder
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(icache InstructionCache) *FetchStage {
	return &FetchStage{
		icache:  icache,
		decoder: insts.NewDecoder(),
	}
}

// Fetch looks up the instruction at pc. It reports false on a miss.
func (s *FetchStage) Fetch(pc uint64) (IFIDRegister, bool) {
	word, ok := s.icache.Fetch(pc)
	if !ok {
		return IFIDRegister{}, false
	}

	return IFIDRegister{
		Valid: true,
		PC:    pc,
		Inst:  s.decoder.Decode(word),
	}, true
}

// DecodeStage reads the source operands of a decoded instruction.
type DecodeStage struct {
	regFile *emu.RegFile
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{regFile: regFile}
}

// Decode produces the ID/EX content for the instruction in IF/ID.
func (s *DecodeStage) Decode(ifid *IFIDRegister) IDEXRegister {
	if !ifid.Valid {
		return IDEXRegister{Inst: insts.NOP()}
	}

	return IDEXRegister{
		Valid:    true,
		PC:       ifid.PC,
		Inst:     ifid.Inst,
		Rs1Value: s.regFile.ReadReg(ifid.Inst.Rs1),
		Rs2Value: s.regFile.ReadReg(ifid.Inst.Rs2),
	}
}

// ExecuteStage computes results, addresses and branch outcomes.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{alu: emu.NewALU()}
}

// Execute runs the instruction in ID/EX with its forwarded operands.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rs1, rs2 uint64) EXMEMRegister {
	if !idex.Valid {
		return EXMEMRegister{Inst: insts.NOP()}
	}

	inst := &idex.Inst
	out := EXMEMRegister{
		Valid: true,
		PC:    idex.PC,
		Inst:  idex.Inst,
	}

	imm := uint64(inst.Imm)

	switch {
	case inst.Op == insts.OpLUI:
		out.ALUResult = imm
	case inst.Op == insts.OpAUIPC:
		out.ALUResult = idex.PC + imm
	case inst.IsJump:
		out.ALUResult = idex.PC + 4
		out.BranchTaken = true
		out.BranchTarget = emu.BranchTarget(inst, idex.PC, rs1)
	case inst.IsBranch:
		out.BranchTaken = emu.BranchTaken(inst.Op, rs1, rs2)
		out.BranchTarget = emu.BranchTarget(inst, idex.PC, rs1)
	case inst.MemRead || inst.MemWrite:
		out.ALUResult = rs1 + imm
		out.StoreData = rs2
	case inst.IsSystem, inst.Op == insts.OpFENCE,
		inst.Op == insts.OpEBREAK, inst.Op == insts.OpUnknown:
	case inst.UsesRs2:
		out.ALUResult = s.alu.Compute(inst.Op, rs1, rs2)
	default:
		out.ALUResult = s.alu.Compute(inst.Op, rs1, imm)
	}

	return out
}

// MemoryStage performs loads and stores through the data cache.
type MemoryStage struct {
	dcache DataCache
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(dcache DataCache) *MemoryStage {
	return &MemoryStage{dcache: dcache}
}

// Access performs the memory operation of the instruction in EX/MEM. It
// reports false while the data cache has not completed the access.
func (s *MemoryStage) Access(exmem *EXMEMRegister) (MEMWBRegister, bool) {
	if !exmem.Valid {
		return MEMWBRegister{Inst: insts.NOP()}, true
	}

	out := MEMWBRegister{
		Valid:     true,
		PC:        exmem.PC,
		Inst:      exmem.Inst,
		ALUResult: exmem.ALUResult,
	}

	inst := &exmem.Inst
	if !inst.MemRead && !inst.MemWrite {
		return out, true
	}

	data, ok := s.dcache.Access(cache.Request{
		Addr:  exmem.ALUResult,
		Size:  int(inst.MemSize),
		Write: inst.MemWrite,
		Data:  exmem.StoreData,
	})
	if !ok {
		return MEMWBRegister{}, false
	}

	if inst.MemRead {
		out.MemData = extend(data, inst.MemSize, inst.MemSigned)
	}

	return out, true
}

// extend sign- or zero-extends a loaded value of size bytes.
func extend(data uint64, size uint8, signed bool) uint64 {
	if size >= 8 {
		return data
	}

	shift := 64 - 8*uint(size)
	if signed {
		return uint64(int64(data<<shift) >> shift)
	}

	return data << shift >> shift
}

// WritebackStage writes results to the register file.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{regFile: regFile}
}

// Writeback commits the result of the instruction in MEM/WB. It reports
// whether a register was written.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) bool {
	if !memwb.Valid || !memwb.Inst.WritesReg() {
		return false
	}

	s.regFile.WriteReg(memwb.Inst.Rd, memwb.Result())

	return true
}

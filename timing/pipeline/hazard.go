package pipeline

import "github.com/sarchlab/rvsim/insts"

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from MEM/WB pipeline register.
	ForwardFromMEMWB
)

// ForwardingResult contains forwarding decisions for both source operands.
type ForwardingResult struct {
	// ForwardRs1 specifies the forwarding source for the rs1 operand.
	ForwardRs1 ForwardSource
	// ForwardRs2 specifies the forwarding source for the rs2 operand,
	// which is also the store data.
	ForwardRs2 ForwardSource
}

// HazardInputs are the stall and flush sources sampled in one cycle.
type HazardInputs struct {
	// ICacheStall is set when the fetch missed or the instruction cache
	// is busy.
	ICacheStall bool
	// DCacheStall is set when the memory stage access did not complete.
	DCacheStall bool
	// EcallStall is set while a system call holds retirement.
	EcallStall bool
	// LoadUse is set when the instruction in decode needs a load result
	// that is not available yet.
	LoadUse bool
	// EcallInFlight is set while a system call is past decode, which keeps
	// younger instructions out of execute.
	EcallInFlight bool
	// BranchTaken is set when execute resolved a taken branch or jump.
	BranchTaken bool
}

// Control holds the per-boundary enable and flush signals for one cycle. A
// disabled register keeps its content; a bubble or flush loads a no-op.
type Control struct {
	EnablePC    bool
	EnableIFID  bool
	EnableIDEX  bool
	EnableEXMEM bool
	EnableMEMWB bool

	// FlushIFID and FlushIDEX squash wrong-path instructions after a taken
	// branch.
	FlushIFID bool
	FlushIDEX bool

	// BubbleIFID, BubbleIDEX and BubbleMEMWB load a no-op into a stage
	// whose producer stalled.
	BubbleIFID  bool
	BubbleIDEX  bool
	BubbleMEMWB bool

	// Redirect loads the branch target into the PC.
	Redirect bool
}

// HazardUnit detects data hazards and determines forwarding, stall and
// flush signals.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectForwarding determines if forwarding is needed for the ID/EX stage.
// It checks if the source registers (rs1, rs2) match the destination
// register of instructions in later pipeline stages.
func (h *HazardUnit) DetectForwarding(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardingResult {
	result := ForwardingResult{
		ForwardRs1: ForwardNone,
		ForwardRs2: ForwardNone,
	}

	if !idex.Valid {
		return result
	}

	if idex.Inst.UsesRs1 {
		result.ForwardRs1 = h.detectForwardForReg(idex.Inst.Rs1, exmem, memwb)
	}

	if idex.Inst.UsesRs2 {
		result.ForwardRs2 = h.detectForwardForReg(idex.Inst.Rs2, exmem, memwb)
	}

	return result
}

// detectForwardForReg checks if a specific register needs forwarding.
// EX/MEM has priority over MEM/WB (more recent value).
func (h *HazardUnit) detectForwardForReg(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardSource {
	if reg == 0 {
		return ForwardNone
	}

	// A load in EX/MEM has no data yet; the load-use stall keeps its
	// consumers out of execute until it reaches MEM/WB.
	if exmem.Valid && exmem.Inst.WritesReg() && !exmem.Inst.MemRead &&
		exmem.Inst.Rd == reg {
		return ForwardFromEXMEM
	}

	if memwb.Valid && memwb.Inst.WritesReg() && memwb.Inst.Rd == reg {
		return ForwardFromMEMWB
	}

	return ForwardNone
}

// GetForwardedValue returns the operand value after applying forwarding.
func (h *HazardUnit) GetForwardedValue(
	source ForwardSource,
	original uint64,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) uint64 {
	switch source {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		return memwb.Result()
	}

	return original
}

// DetectLoadUseHazard reports whether next, the instruction in decode,
// reads the destination of a load in ID/EX.
func (h *HazardUnit) DetectLoadUseHazard(
	idex *IDEXRegister,
	next *insts.Instruction,
) bool {
	if !idex.Valid || !idex.Inst.MemRead || !idex.Inst.WritesReg() {
		return false
	}

	rd := idex.Inst.Rd

	return (next.UsesRs1 && next.Rs1 == rd) || (next.UsesRs2 && next.Rs2 == rd)
}

// ComputeControl derives the stage enables from the hazards of one cycle.
// Sources are resolved oldest stage first. A system call waiting to retire
// freezes the whole pipeline. A data cache stall freezes everything up to
// EX/MEM and drains a bubble into write-back. A taken branch squashes the
// two younger stages; a squashed instruction is dropped even if its stage
// would otherwise have been held. Load-use and system call serialisation
// hold decode and fetch, and an instruction cache stall holds fetch.
func (h *HazardUnit) ComputeControl(in HazardInputs) Control {
	if in.EcallStall {
		return Control{}
	}

	if in.DCacheStall {
		return Control{EnableMEMWB: true, BubbleMEMWB: true}
	}

	ctrl := Control{
		EnablePC:    true,
		EnableIFID:  true,
		EnableIDEX:  true,
		EnableEXMEM: true,
		EnableMEMWB: true,
	}

	if in.BranchTaken {
		ctrl.FlushIFID = true
		ctrl.FlushIDEX = true
		ctrl.Redirect = true
		return ctrl
	}

	if in.LoadUse || in.EcallInFlight {
		ctrl.EnablePC = false
		ctrl.EnableIFID = false
		ctrl.BubbleIDEX = true
		return ctrl
	}

	if in.ICacheStall {
		ctrl.EnablePC = false
		ctrl.BubbleIFID = true
	}

	return ctrl
}

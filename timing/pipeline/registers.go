// Package pipeline provides the 5-stage in-order pipeline of the RV64 core.
package pipeline

import "github.com/sarchlab/rvsim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint64

	// Inst is the decoded instruction bundle.
	Inst insts.Instruction
}

// Clear resets the IF/ID register to a no-op bundle.
func (r *IFIDRegister) Clear() {
	r.Valid = false
	r.PC = 0
	r.Inst = insts.NOP()
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint64

	// Inst is the decoded instruction bundle.
	Inst insts.Instruction

	// Register values read from the register file.
	Rs1Value uint64
	Rs2Value uint64
}

// Clear resets the ID/EX register to a no-op bundle.
func (r *IDEXRegister) Clear() {
	r.Valid = false
	r.PC = 0
	r.Inst = insts.NOP()
	r.Rs1Value = 0
	r.Rs2Value = 0
}

// bypass updates operands already read for a held instruction when an older
// instruction writes reg during the hold.
func (r *IDEXRegister) bypass(reg uint8, value uint64) {
	if !r.Valid || reg == 0 {
		return
	}

	if r.Inst.UsesRs1 && r.Inst.Rs1 == reg {
		r.Rs1Value = value
	}

	if r.Inst.UsesRs2 && r.Inst.Rs2 == reg {
		r.Rs2Value = value
	}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint64

	// Inst is the decoded instruction bundle.
	Inst insts.Instruction

	// ALUResult is the result from the ALU, or the effective address of a
	// load or store.
	ALUResult uint64

	// StoreData is the value to store (for store instructions).
	StoreData uint64

	// BranchTaken and BranchTarget hold the resolved control flow.
	BranchTaken  bool
	BranchTarget uint64
}

// Clear resets the EX/MEM register to a no-op bundle.
func (r *EXMEMRegister) Clear() {
	r.Valid = false
	r.PC = 0
	r.Inst = insts.NOP()
	r.ALUResult = 0
	r.StoreData = 0
	r.BranchTaken = false
	r.BranchTarget = 0
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint64

	// Inst is the decoded instruction bundle.
	Inst insts.Instruction

	// ALUResult is the result from the ALU (for non-load instructions).
	ALUResult uint64

	// MemData is the data loaded from memory (for load instructions).
	MemData uint64
}

// Clear resets the MEM/WB register to a no-op bundle.
func (r *MEMWBRegister) Clear() {
	r.Valid = false
	r.PC = 0
	r.Inst = insts.NOP()
	r.ALUResult = 0
	r.MemData = 0
}

// Result returns the value written back to the destination register.
func (r *MEMWBRegister) Result() uint64 {
	if r.Inst.MemRead {
		return r.MemData
	}
	return r.ALUResult
}

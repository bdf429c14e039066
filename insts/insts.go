// Package insts provides RV64IM instruction definitions and decoding.
//
// The decoder turns a 32-bit RISC-V instruction word into a fully expanded
// Instruction: operation, register indices, sign-extended immediate and the
// control flags the timing pipeline carries from decode to write-back.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x02a08093) // addi ra, ra, 42
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
package insts

// Op represents an instruction operation.
type Op uint16

// Supported operations.
const (
	OpUnknown Op = iota

	// Upper immediates and jumps
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	// Conditional branches
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Loads
	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU

	// Stores
	OpSB
	OpSH
	OpSW
	OpSD

	// Register-immediate arithmetic
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	// Register-register arithmetic
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// 32-bit word arithmetic
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW

	// M extension
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU
	OpMULW
	OpDIVW
	OpDIVUW
	OpREMW
	OpREMUW

	// Misc
	OpFENCE
	OpECALL
	OpEBREAK
)

var opNames = map[Op]string{
	OpLUI: "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge",
	OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLD: "ld",
	OpLBU: "lbu", OpLHU: "lhu", OpLWU: "lwu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw", OpSD: "sd",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori",
	OpORI: "ori", OpANDI: "andi", OpSLLI: "slli", OpSRLI: "srli",
	OpSRAI: "srai",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpADDIW: "addiw", OpSLLIW: "slliw", OpSRLIW: "srliw", OpSRAIW: "sraiw",
	OpADDW: "addw", OpSUBW: "subw", OpSLLW: "sllw", OpSRLW: "srlw",
	OpSRAW: "sraw",
	OpMUL: "mul", OpMULH: "mulh", OpMULHSU: "mulhsu", OpMULHU: "mulhu",
	OpDIV: "div", OpDIVU: "divu", OpREM: "rem", OpREMU: "remu",
	OpMULW: "mulw", OpDIVW: "divw", OpDIVUW: "divuw", OpREMW: "remw",
	OpREMUW: "remuw",
	OpFENCE: "fence", OpECALL: "ecall", OpEBREAK: "ebreak",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}

	return "unknown"
}

// Format represents the encoding format of an instruction.
type Format uint8

// Base encoding formats.
const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Instruction is a decoded RV64 instruction together with its control
// signals. It is a value type so that a copy can travel through the pipeline
// registers unchanged.
type Instruction struct {
	Word   uint32
	Op     Op
	Format Format

	Rd  uint8
	Rs1 uint8
	Rs2 uint8

	// Imm is the sign-extended immediate. Shift-immediate instructions keep
	// the shift amount here.
	Imm int64

	// Control flags
	RegWrite  bool
	MemRead   bool
	MemWrite  bool
	MemSize   uint8 // access width in bytes
	MemSigned bool  // sign-extend loaded data
	IsBranch  bool  // conditional branch
	IsJump    bool  // JAL or JALR
	IsSystem  bool  // ECALL
	UsesRs1   bool
	UsesRs2   bool
}

// NOP returns the canonical no-op, addi x0, x0, 0.
func NOP() Instruction {
	return Instruction{
		Word:    0x00000013,
		Op:      OpADDI,
		Format:  FormatI,
		UsesRs1: true,
	}
}

// ChangesFlow returns true for branches and jumps.
func (i *Instruction) ChangesFlow() bool {
	return i.IsBranch || i.IsJump
}

// WritesReg returns true if the instruction produces a value for a
// non-zero destination register.
func (i *Instruction) WritesReg() bool {
	return i.RegWrite && i.Rd != 0
}

package insts

// Major opcodes, bits [6:0].
const (
	opcodeLoad    = 0b0000011
	opcodeMiscMem = 0b0001111
	opcodeOpImm   = 0b0010011
	opcodeAUIPC   = 0b0010111
	opcodeOpImm32 = 0b0011011
	opcodeStore   = 0b0100011
	opcodeOp      = 0b0110011
	opcodeLUI     = 0b0110111
	opcodeOp32    = 0b0111011
	opcodeBranch  = 0b1100011
	opcodeJALR    = 0b1100111
	opcodeJAL     = 0b1101111
	opcodeSystem  = 0b1110011
)

const (
	funct7Base = 0b0000000
	funct7Alt  = 0b0100000
	funct7Mul  = 0b0000001
)

// Decoder decodes RV64IM machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV64 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Unrecognized encodings decode
// to OpUnknown with every control flag cleared, which the pipeline treats as
// a no-op.
func (d *Decoder) Decode(word uint32) Instruction {
	inst := Instruction{Word: word}

	rd := uint8((word >> 7) & 0x1F)
	rs1 := uint8((word >> 15) & 0x1F)
	rs2 := uint8((word >> 20) & 0x1F)
	funct3 := (word >> 12) & 0x7
	funct7 := word >> 25

	switch word & 0x7F {
	case opcodeLUI:
		inst.Op, inst.Format = OpLUI, FormatU
		inst.Rd, inst.Imm, inst.RegWrite = rd, immU(word), true
	case opcodeAUIPC:
		inst.Op, inst.Format = OpAUIPC, FormatU
		inst.Rd, inst.Imm, inst.RegWrite = rd, immU(word), true
	case opcodeJAL:
		inst.Op, inst.Format = OpJAL, FormatJ
		inst.Rd, inst.Imm, inst.RegWrite = rd, immJ(word), true
		inst.IsJump = true
	case opcodeJALR:
		if funct3 != 0 {
			return inst
		}

		inst.Op, inst.Format = OpJALR, FormatI
		inst.Rd, inst.Rs1, inst.Imm = rd, rs1, immI(word)
		inst.RegWrite, inst.IsJump, inst.UsesRs1 = true, true, true
	case opcodeBranch:
		d.decodeBranch(word, funct3, rs1, rs2, &inst)
	case opcodeLoad:
		d.decodeLoad(word, funct3, rd, rs1, &inst)
	case opcodeStore:
		d.decodeStore(word, funct3, rs1, rs2, &inst)
	case opcodeOpImm:
		d.decodeOpImm(word, funct3, rd, rs1, &inst)
	case opcodeOpImm32:
		d.decodeOpImm32(word, funct3, funct7, rd, rs1, &inst)
	case opcodeOp:
		d.decodeOp(funct3, funct7, rd, rs1, rs2, &inst)
	case opcodeOp32:
		d.decodeOp32(funct3, funct7, rd, rs1, rs2, &inst)
	case opcodeMiscMem:
		inst.Op, inst.Format = OpFENCE, FormatI
	case opcodeSystem:
		d.decodeSystem(word, &inst)
	}

	return inst
}

var branchOps = [8]Op{
	0b000: OpBEQ, 0b001: OpBNE,
	0b100: OpBLT, 0b101: OpBGE,
	0b110: OpBLTU, 0b111: OpBGEU,
}

func (d *Decoder) decodeBranch(
	word, funct3 uint32,
	rs1, rs2 uint8,
	inst *Instruction,
) {
	op := branchOps[funct3]
	if op == OpUnknown {
		return
	}

	inst.Op, inst.Format = op, FormatB
	inst.Rs1, inst.Rs2, inst.Imm = rs1, rs2, immB(word)
	inst.IsBranch, inst.UsesRs1, inst.UsesRs2 = true, true, true
}

type memOp struct {
	op     Op
	size   uint8
	signed bool
}

var loadOps = [8]memOp{
	0b000: {OpLB, 1, true},
	0b001: {OpLH, 2, true},
	0b010: {OpLW, 4, true},
	0b011: {OpLD, 8, false},
	0b100: {OpLBU, 1, false},
	0b101: {OpLHU, 2, false},
	0b110: {OpLWU, 4, false},
}

func (d *Decoder) decodeLoad(
	word, funct3 uint32,
	rd, rs1 uint8,
	inst *Instruction,
) {
	m := loadOps[funct3]
	if m.op == OpUnknown {
		return
	}

	inst.Op, inst.Format = m.op, FormatI
	inst.Rd, inst.Rs1, inst.Imm = rd, rs1, immI(word)
	inst.RegWrite, inst.MemRead, inst.UsesRs1 = true, true, true
	inst.MemSize, inst.MemSigned = m.size, m.signed
}

var storeOps = [8]memOp{
	0b000: {OpSB, 1, false},
	0b001: {OpSH, 2, false},
	0b010: {OpSW, 4, false},
	0b011: {OpSD, 8, false},
}

func (d *Decoder) decodeStore(
	word, funct3 uint32,
	rs1, rs2 uint8,
	inst *Instruction,
) {
	m := storeOps[funct3]
	if m.op == OpUnknown {
		return
	}

	inst.Op, inst.Format = m.op, FormatS
	inst.Rs1, inst.Rs2, inst.Imm = rs1, rs2, immS(word)
	inst.MemWrite, inst.UsesRs1, inst.UsesRs2 = true, true, true
	inst.MemSize = m.size
}

func (d *Decoder) decodeOpImm(
	word, funct3 uint32,
	rd, rs1 uint8,
	inst *Instruction,
) {
	imm := immI(word)
	funct6 := word >> 26
	shamt := int64((word >> 20) & 0x3F)

	switch funct3 {
	case 0b000:
		inst.Op = OpADDI
	case 0b010:
		inst.Op = OpSLTI
	case 0b011:
		inst.Op = OpSLTIU
	case 0b100:
		inst.Op = OpXORI
	case 0b110:
		inst.Op = OpORI
	case 0b111:
		inst.Op = OpANDI
	case 0b001:
		if funct6 != 0 {
			return
		}

		inst.Op, imm = OpSLLI, shamt
	case 0b101:
		switch funct6 {
		case 0b000000:
			inst.Op = OpSRLI
		case 0b010000:
			inst.Op = OpSRAI
		default:
			return
		}

		imm = shamt
	}

	inst.Format = FormatI
	inst.Rd, inst.Rs1, inst.Imm = rd, rs1, imm
	inst.RegWrite, inst.UsesRs1 = true, true
}

func (d *Decoder) decodeOpImm32(
	word, funct3, funct7 uint32,
	rd, rs1 uint8,
	inst *Instruction,
) {
	imm := immI(word)
	shamt := int64((word >> 20) & 0x1F)

	switch {
	case funct3 == 0b000:
		inst.Op = OpADDIW
	case funct3 == 0b001 && funct7 == funct7Base:
		inst.Op, imm = OpSLLIW, shamt
	case funct3 == 0b101 && funct7 == funct7Base:
		inst.Op, imm = OpSRLIW, shamt
	case funct3 == 0b101 && funct7 == funct7Alt:
		inst.Op, imm = OpSRAIW, shamt
	default:
		return
	}

	inst.Format = FormatI
	inst.Rd, inst.Rs1, inst.Imm = rd, rs1, imm
	inst.RegWrite, inst.UsesRs1 = true, true
}

var (
	opBase  = [8]Op{OpADD, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpOR, OpAND}
	opMul   = [8]Op{OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU}
	op32    = [8]Op{0b000: OpADDW, 0b001: OpSLLW, 0b101: OpSRLW}
	opMul32 = [8]Op{
		0b000: OpMULW, 0b100: OpDIVW, 0b101: OpDIVUW,
		0b110: OpREMW, 0b111: OpREMUW,
	}
)

func (d *Decoder) decodeOp(
	funct3, funct7 uint32,
	rd, rs1, rs2 uint8,
	inst *Instruction,
) {
	switch funct7 {
	case funct7Base:
		inst.Op = opBase[funct3]
	case funct7Mul:
		inst.Op = opMul[funct3]
	case funct7Alt:
		switch funct3 {
		case 0b000:
			inst.Op = OpSUB
		case 0b101:
			inst.Op = OpSRA
		}
	}

	if inst.Op == OpUnknown {
		return
	}

	fillR(inst, rd, rs1, rs2)
}

func (d *Decoder) decodeOp32(
	funct3, funct7 uint32,
	rd, rs1, rs2 uint8,
	inst *Instruction,
) {
	switch funct7 {
	case funct7Base:
		inst.Op = op32[funct3]
	case funct7Mul:
		inst.Op = opMul32[funct3]
	case funct7Alt:
		switch funct3 {
		case 0b000:
			inst.Op = OpSUBW
		case 0b101:
			inst.Op = OpSRAW
		}
	}

	if inst.Op == OpUnknown {
		return
	}

	fillR(inst, rd, rs1, rs2)
}

func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	switch word {
	case 0x00000073:
		inst.Op, inst.Format = OpECALL, FormatI
		inst.IsSystem = true
	case 0x00100073:
		inst.Op, inst.Format = OpEBREAK, FormatI
	}
}

func fillR(inst *Instruction, rd, rs1, rs2 uint8) {
	inst.Format = FormatR
	inst.Rd, inst.Rs1, inst.Rs2 = rd, rs1, rs2
	inst.RegWrite, inst.UsesRs1, inst.UsesRs2 = true, true, true
}

func immI(word uint32) int64 {
	return int64(int32(word) >> 20)
}

func immS(word uint32) int64 {
	hi := int32(word&0xFE000000) >> 20
	lo := int32((word >> 7) & 0x1F)

	return int64(hi | lo)
}

func immB(word uint32) int64 {
	imm := (int32(word&0x80000000) >> 19) |
		int32((word>>7)&0x1)<<11 |
		int32((word>>25)&0x3F)<<5 |
		int32((word>>8)&0xF)<<1

	return int64(imm)
}

func immU(word uint32) int64 {
	return int64(int32(word & 0xFFFFF000))
}

func immJ(word uint32) int64 {
	imm := (int32(word&0x80000000) >> 11) |
		int32((word>>12)&0xFF)<<12 |
		int32((word>>20)&0x1)<<11 |
		int32((word>>21)&0x3FF)<<1

	return int64(imm)
}

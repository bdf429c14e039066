package benchmarks

// RV64 instruction encoders for hand-written benchmark programs.

// Register numbers used by the benchmarks.
const (
	RegZero uint8 = 0
	RegRA   uint8 = 1
	RegSP   uint8 = 2
	RegT0   uint8 = 5
	RegT1   uint8 = 6
	RegT2   uint8 = 7
	RegA0   uint8 = 10
	RegA1   uint8 = 11
	RegA2   uint8 = 12
	RegA3   uint8 = 13
	RegA4   uint8 = 14
	RegA7   uint8 = 17
)

const (
	opLoad   = 0x03
	opOpImm  = 0x13
	opStore  = 0x23
	opOp     = 0x33
	opLUI    = 0x37
	opBranch = 0x63
	opJALR   = 0x67
	opJAL    = 0x6f
	opSystem = 0x73
)

func encodeI(opcode, funct3 uint32, rd, rs1 uint8, imm int32) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | funct3<<12 |
		uint32(rd)<<7 | opcode
}

func encodeR(funct7, funct3 uint32, rd, rs1, rs2 uint8) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 |
		uint32(rd)<<7 | opOp
}

// EncodeADDI encodes addi rd, rs1, imm.
func EncodeADDI(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(opOpImm, 0, rd, rs1, imm)
}

// EncodeADD encodes add rd, rs1, rs2.
func EncodeADD(rd, rs1, rs2 uint8) uint32 {
	return encodeR(0, 0, rd, rs1, rs2)
}

// EncodeSUB encodes sub rd, rs1, rs2.
func EncodeSUB(rd, rs1, rs2 uint8) uint32 {
	return encodeR(0x20, 0, rd, rs1, rs2)
}

// EncodeLUI encodes lui rd, imm20.
func EncodeLUI(rd uint8, imm20 uint32) uint32 {
	return (imm20&0xfffff)<<12 | uint32(rd)<<7 | opLUI
}

// EncodeLD encodes ld rd, offset(rs1).
func EncodeLD(rd, rs1 uint8, offset int32) uint32 {
	return encodeI(opLoad, 3, rd, rs1, offset)
}

// EncodeSD encodes sd rs2, offset(rs1).
func EncodeSD(rs2, rs1 uint8, offset int32) uint32 {
	imm := uint32(offset) & 0xfff
	return (imm>>5)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | 3<<12 |
		(imm&0x1f)<<7 | opStore
}

func encodeB(funct3 uint32, rs1, rs2 uint8, offset int32) uint32 {
	imm := uint32(offset) & 0x1fff
	return (imm>>12&1)<<31 | (imm>>5&0x3f)<<25 | uint32(rs2)<<20 |
		uint32(rs1)<<15 | funct3<<12 | (imm>>1&0xf)<<8 | (imm>>11&1)<<7 |
		opBranch
}

// EncodeBEQ encodes beq rs1, rs2, offset.
func EncodeBEQ(rs1, rs2 uint8, offset int32) uint32 {
	return encodeB(0, rs1, rs2, offset)
}

// EncodeBNE encodes bne rs1, rs2, offset.
func EncodeBNE(rs1, rs2 uint8, offset int32) uint32 {
	return encodeB(1, rs1, rs2, offset)
}

// EncodeJAL encodes jal rd, offset.
func EncodeJAL(rd uint8, offset int32) uint32 {
	imm := uint32(offset) & 0x1fffff
	return (imm>>20&1)<<31 | (imm>>1&0x3ff)<<21 | (imm>>11&1)<<20 |
		(imm>>12&0xff)<<12 | uint32(rd)<<7 | opJAL
}

// EncodeJALR encodes jalr rd, offset(rs1).
func EncodeJALR(rd, rs1 uint8, offset int32) uint32 {
	return encodeI(opJALR, 0, rd, rs1, offset)
}

// EncodeECALL encodes ecall.
func EncodeECALL() uint32 {
	return opSystem
}

// EncodeExit returns the two instructions that exit with the status in a0.
func EncodeExit() []uint32 {
	return []uint32{EncodeADDI(RegA7, RegZero, 93), EncodeECALL()}
}

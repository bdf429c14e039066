// Package emu provides the architectural state and functional units of an
// RV64IM hart: the register file, the ALU, branch resolution and the
// syscall handler invoked on ECALL.
package emu

// ABI register indices used by the syscall convention and boot sequence.
const (
	RegZero uint8 = 0
	RegRA   uint8 = 1
	RegSP   uint8 = 2
	RegA0   uint8 = 10
	RegA1   uint8 = 11
	RegA2   uint8 = 12
	RegA3   uint8 = 13
	RegA4   uint8 = 14
	RegA5   uint8 = 15
	RegA7   uint8 = 17
)

// RegFile represents the RV64 integer register file.
type RegFile struct {
	// X holds registers x0-x31. X[0] is never written.
	X [32]uint64

	// PC is the program counter.
	PC uint64
}

// ReadReg reads a register value. x0 and out-of-range indices read as 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// Reset clears every register and sets the PC.
func (r *RegFile) Reset(pc uint64) {
	r.X = [32]uint64{}
	r.PC = pc
}

package emu

import (
	"math"
	"math/bits"

	"github.com/sarchlab/rvsim/insts"
)

// ALU implements the RV64IM integer operations. It holds no state.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Compute returns the result of op applied to x and y, where y is either
// rs2 or the decoded immediate. Operations the ALU does not know return 0.
func (a *ALU) Compute(op insts.Op, x, y uint64) uint64 {
	switch op {
	case insts.OpADD, insts.OpADDI:
		return x + y
	case insts.OpSUB:
		return x - y
	case insts.OpAND, insts.OpANDI:
		return x & y
	case insts.OpOR, insts.OpORI:
		return x | y
	case insts.OpXOR, insts.OpXORI:
		return x ^ y
	case insts.OpSLL, insts.OpSLLI:
		return x << (y & 63)
	case insts.OpSRL, insts.OpSRLI:
		return x >> (y & 63)
	case insts.OpSRA, insts.OpSRAI:
		return uint64(int64(x) >> (y & 63))
	case insts.OpSLT, insts.OpSLTI:
		return boolToUint(int64(x) < int64(y))
	case insts.OpSLTU, insts.OpSLTIU:
		return boolToUint(x < y)

	case insts.OpADDW, insts.OpADDIW:
		return sext32(uint32(x) + uint32(y))
	case insts.OpSUBW:
		return sext32(uint32(x) - uint32(y))
	case insts.OpSLLW, insts.OpSLLIW:
		return sext32(uint32(x) << (y & 31))
	case insts.OpSRLW, insts.OpSRLIW:
		return sext32(uint32(x) >> (y & 31))
	case insts.OpSRAW, insts.OpSRAIW:
		return uint64(int64(int32(x) >> (y & 31)))

	case insts.OpMUL, insts.OpMULH, insts.OpMULHSU, insts.OpMULHU:
		return multiply(op, x, y)
	case insts.OpMULW:
		return sext32(uint32(x) * uint32(y))
	case insts.OpDIV, insts.OpDIVU, insts.OpREM, insts.OpREMU:
		return divide(op, x, y)
	case insts.OpDIVW, insts.OpDIVUW, insts.OpREMW, insts.OpREMUW:
		return divideWord(op, uint32(x), uint32(y))
	}

	return 0
}

func multiply(op insts.Op, x, y uint64) uint64 {
	hi, lo := bits.Mul64(x, y)

	switch op {
	case insts.OpMUL:
		return lo
	case insts.OpMULHU:
		return hi
	case insts.OpMULH:
		if int64(x) < 0 {
			hi -= y
		}
		if int64(y) < 0 {
			hi -= x
		}
		return hi
	case insts.OpMULHSU:
		if int64(x) < 0 {
			hi -= y
		}
		return hi
	}

	return 0
}

func divide(op insts.Op, x, y uint64) uint64 {
	sx, sy := int64(x), int64(y)

	switch op {
	case insts.OpDIV:
		switch {
		case y == 0:
			return math.MaxUint64
		case sx == math.MinInt64 && sy == -1:
			return x
		}
		return uint64(sx / sy)
	case insts.OpDIVU:
		if y == 0 {
			return math.MaxUint64
		}
		return x / y
	case insts.OpREM:
		switch {
		case y == 0:
			return x
		case sx == math.MinInt64 && sy == -1:
			return 0
		}
		return uint64(sx % sy)
	case insts.OpREMU:
		if y == 0 {
			return x
		}
		return x % y
	}

	return 0
}

func divideWord(op insts.Op, x, y uint32) uint64 {
	sx, sy := int32(x), int32(y)

	switch op {
	case insts.OpDIVW:
		switch {
		case y == 0:
			return math.MaxUint64
		case sx == math.MinInt32 && sy == -1:
			return sext32(x)
		}
		return sext32(uint32(sx / sy))
	case insts.OpDIVUW:
		if y == 0 {
			return math.MaxUint64
		}
		return sext32(x / y)
	case insts.OpREMW:
		switch {
		case y == 0:
			return sext32(x)
		case sx == math.MinInt32 && sy == -1:
			return 0
		}
		return sext32(uint32(sx % sy))
	case insts.OpREMUW:
		if y == 0 {
			return sext32(x)
		}
		return sext32(x % y)
	}

	return 0
}

func sext32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

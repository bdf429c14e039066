package benchmarks

import "github.com/sarchlab/rvsim/timing/axi"

// dataBase is where benchmarks keep their data. It shares no cache set with
// the code at 0x1000.
const dataBase = 0x10000

// wayStride separates addresses that map to the same set of the default
// data cache.
const wayStride = 512 * 64

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each
// benchmark targets a specific pipeline or cache characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		loadUseChain(),
		functionCalls(),
		branchLoop(),
		conflictEviction(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, memory traffic and calls.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchLoop(),
		memorySequential(),
		functionCalls(),
	}
}

func program(body []uint32) []byte {
	return BuildProgram(append(body, EncodeExit()...)...)
}

// 1. Arithmetic Sequential - Tests ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	regs := []uint8{RegA0, RegA1, RegA2, RegA3, RegA4}

	var body []uint32
	for i := 0; i < 20; i++ {
		r := regs[i%len(regs)]
		body = append(body, EncodeADDI(r, r, 1))
	}

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDIs - measures ALU throughput",
		Program:      program(body),
		ExpectedExit: 4,
	}
}

// 2. Dependency Chain - Tests forwarding with back-to-back RAW hazards
func dependencyChain() Benchmark {
	var body []uint32
	for i := 0; i < 20; i++ {
		body = append(body, EncodeADDI(RegA0, RegA0, 1))
	}

	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (a0 = a0 + 1) - measures forwarding",
		Program:      program(body),
		ExpectedExit: 20,
	}
}

// 3. Memory Sequential - Stores a line's worth of values and sums them back
func memorySequential() Benchmark {
	body := []uint32{EncodeLUI(RegA1, dataBase>>12)}
	for i := int32(0); i < 8; i++ {
		body = append(body,
			EncodeADDI(RegT0, RegZero, i+1),
			EncodeSD(RegT0, RegA1, 8*i),
		)
	}
	for i := int32(0); i < 8; i++ {
		body = append(body,
			EncodeLD(RegT1, RegA1, 8*i),
			EncodeADD(RegA0, RegA0, RegT1),
		)
	}

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "8 stores and 8 dependent loads within one line - measures D-cache hits",
		Program:      program(body),
		ExpectedExit: 36,
	}
}

// 4. Load-Use Chain - Each load feeds the next instruction directly
func loadUseChain() Benchmark {
	body := []uint32{EncodeLUI(RegA1, dataBase>>12)}
	for i := int32(0); i < 5; i++ {
		body = append(body,
			EncodeLD(RegT0, RegA1, 8*i),
			EncodeADD(RegA0, RegA0, RegT0),
		)
	}

	return Benchmark{
		Name:        "load_use_chain",
		Description: "5 loads each consumed by the next instruction - measures load-use stalls",
		Setup: func(memory *axi.Memory) error {
			for i := uint64(0); i < 5; i++ {
				if err := memory.Write64(dataBase+8*i, i+1); err != nil {
					return err
				}
			}
			return nil
		},
		Program:      program(body),
		ExpectedExit: 15,
	}
}

// 5. Function Calls - JAL/JALR pairs around a one-instruction body
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls (JAL + JALR pairs) - measures call overhead",
		Program: BuildProgram(
			EncodeJAL(RegRA, 20),  // 0x1000 -> 0x1014
			EncodeJAL(RegRA, 16),  // 0x1004 -> 0x1014
			EncodeJAL(RegRA, 12),  // 0x1008 -> 0x1014
			EncodeADDI(RegA7, RegZero, 93),
			EncodeECALL(),
			EncodeADDI(RegA0, RegA0, 1), // 0x1014
			EncodeJALR(RegZero, RegRA, 0),
		),
		ExpectedExit: 3,
	}
}

// 6. Branch Loop - A counted loop closed by a taken BNE
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "10-iteration loop - measures taken-branch flush cost",
		Program: program([]uint32{
			EncodeADDI(RegT0, RegZero, 10),
			EncodeADDI(RegA0, RegA0, 2), // loop
			EncodeADDI(RegT0, RegT0, -1),
			EncodeBNE(RegT0, RegZero, -8),
		}),
		ExpectedExit: 20,
	}
}

// 7. Conflict Eviction - Three dirty lines in one 2-way set
func conflictEviction() Benchmark {
	return Benchmark{
		Name:        "conflict_eviction",
		Description: "3 stores to one set then a reload of the evicted line - measures write-back",
		Program: program([]uint32{
			EncodeLUI(RegA1, dataBase>>12),
			EncodeLUI(RegA2, (dataBase+wayStride)>>12),
			EncodeLUI(RegA3, (dataBase+2*wayStride)>>12),
			EncodeADDI(RegT0, RegZero, 11),
			EncodeSD(RegT0, RegA1, 0),
			EncodeSD(RegT0, RegA2, 0),
			EncodeSD(RegT0, RegA3, 0),
			EncodeLD(RegA0, RegA1, 0),
		}),
		ExpectedExit: 11,
	}
}

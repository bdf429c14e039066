package pipeline

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64

	// Stall cycles, by the oldest source that caused them.
	ICacheStalls  uint64
	DCacheStalls  uint64
	LoadUseStalls uint64
	EcallStalls   uint64

	// Flushes is the number of taken branches and jumps that squashed
	// younger instructions.
	Flushes uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithSyscallHandler sets the handler invoked when an ECALL retires.
func WithSyscallHandler(handler emu.SyscallHandler) PipelineOption {
	return func(p *Pipeline) {
		p.syscallHandler = handler
	}
}

// Pipeline implements the 5-stage in-order pipeline.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
//
// Fetch predicts every branch not taken. Branches and jumps resolve in
// execute; a taken one squashes IF/ID and ID/EX and redirects the PC.
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit

	icache InstructionCache

	regFile        *emu.RegFile
	syscallHandler emu.SyscallHandler

	// Program counter
	pc uint64

	// System call in write-back
	ecallBusy      bool
	ecallRemaining uint64
	ecallResult    emu.SyscallResult

	// Control signals of the last cycle
	control Control

	stats Statistics

	// Execution state
	halted   bool
	exitCode int64
}

// NewPipeline creates a pipeline that fetches through icache, accesses data
// through dcache and commits results to regFile.
func NewPipeline(
	regFile *emu.RegFile,
	icache InstructionCache,
	dcache DataCache,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewFetchStage(icache),
		decodeStage:    NewDecodeStage(regFile),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(dcache),
		writebackStage: NewWritebackStage(regFile),
		hazardUnit:     NewHazardUnit(),
		icache:         icache,
		regFile:        regFile,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.Reset(regFile.PC)

	return p
}

// PC returns the fetch program counter.
func (p *Pipeline) PC() uint64 {
	return p.pc
}

// SetPC sets the fetch program counter.
func (p *Pipeline) SetPC(pc uint64) {
	p.pc = pc
}

// GetIFID returns the IF/ID register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM register.
func (p *Pipeline) GetEXMEM() *EXMEMRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB register.
func (p *Pipeline) GetMEMWB() *MEMWBRegister {
	return &p.memwb
}

// Control returns the stage control signals of the last cycle.
func (p *Pipeline) Control() Control {
	return p.control
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted returns true if the program has exited.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// ExitCode returns the exit code passed to the exit system call.
func (p *Pipeline) ExitCode() int64 {
	return p.exitCode
}

// Halt stops the pipeline with the given exit code.
func (p *Pipeline) Halt(code int64) {
	p.halted = true
	p.exitCode = code
}

// Reset empties every stage and restarts fetch at pc. Register file
// contents are kept.
func (p *Pipeline) Reset(pc uint64) {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.pc = pc
	p.regFile.PC = pc
	p.ecallBusy = false
	p.ecallRemaining = 0
	p.ecallResult = emu.SyscallResult{}
	p.control = Control{}
	p.stats = Statistics{}
	p.halted = false
	p.exitCode = 0
}

// Tick evaluates every stage once and latches the results. Stages are
// evaluated from write-back to fetch so that write-back lands in the
// register file before decode reads it.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.stats.Cycles++

	var in HazardInputs

	// WB
	retired := p.writeback(&in)
	if p.halted {
		p.control = Control{}
		return
	}

	// MEM
	nextMEMWB := MEMWBRegister{Inst: insts.NOP()}
	if !in.EcallStall {
		var ok bool
		nextMEMWB, ok = p.memoryStage.Access(&p.exmem)
		in.DCacheStall = !ok
	}

	// EX
	fwd := p.hazardUnit.DetectForwarding(&p.idex, &p.exmem, &p.memwb)
	rs1 := p.hazardUnit.GetForwardedValue(fwd.ForwardRs1, p.idex.Rs1Value, &p.exmem, &p.memwb)
	rs2 := p.hazardUnit.GetForwardedValue(fwd.ForwardRs2, p.idex.Rs2Value, &p.exmem, &p.memwb)
	nextEXMEM := p.executeStage.Execute(&p.idex, rs1, rs2)
	in.BranchTaken = nextEXMEM.Valid && nextEXMEM.BranchTaken

	// ID
	nextIDEX := p.decodeStage.Decode(&p.ifid)
	in.LoadUse = p.ifid.Valid &&
		p.hazardUnit.DetectLoadUseHazard(&p.idex, &p.ifid.Inst)
	in.EcallInFlight = p.ifid.Valid && p.ecallInFlight()

	// IF
	ctrl := p.hazardUnit.ComputeControl(in)
	nextIFID := IFIDRegister{Inst: insts.NOP()}
	if ctrl.EnableIFID && !ctrl.Redirect {
		var ok bool
		nextIFID, ok = p.fetchStage.Fetch(p.pc)
		if !ok {
			in.ICacheStall = true
			ctrl = p.hazardUnit.ComputeControl(in)
		}
	}

	p.latch(ctrl, nextIFID, nextIDEX, nextEXMEM, nextMEMWB)
	p.icache.SetFlush(ctrl.FlushIFID)

	if retired {
		p.stats.Instructions++
	}
	p.countStalls(in)
}

// writeback retires the instruction in MEM/WB. A system call is handed to
// the syscall handler once and then holds retirement for the latency the
// handler reports.
func (p *Pipeline) writeback(in *HazardInputs) bool {
	if !p.memwb.Valid {
		return false
	}

	if p.memwb.Inst.IsSystem {
		return p.retireSyscall(in)
	}

	if p.writebackStage.Writeback(&p.memwb) {
		p.idex.bypass(p.memwb.Inst.Rd, p.memwb.Result())
	}

	return true
}

func (p *Pipeline) retireSyscall(in *HazardInputs) bool {
	if !p.ecallBusy {
		p.ecallBusy = true
		p.ecallResult = emu.SyscallResult{}
		if p.syscallHandler != nil {
			p.ecallResult = p.syscallHandler.Handle()
		}
		p.ecallRemaining = p.ecallResult.Latency
	}

	if p.ecallRemaining > 0 {
		p.ecallRemaining--
		in.EcallStall = true
		return false
	}

	p.ecallBusy = false

	if p.ecallResult.Exited {
		p.Halt(p.ecallResult.ExitCode)
		p.stats.Instructions++
	}

	return true
}

// ecallInFlight reports whether a system call is past decode.
func (p *Pipeline) ecallInFlight() bool {
	return (p.idex.Valid && p.idex.Inst.IsSystem) ||
		(p.exmem.Valid && p.exmem.Inst.IsSystem) ||
		(p.memwb.Valid && p.memwb.Inst.IsSystem)
}

func (p *Pipeline) latch(
	ctrl Control,
	nextIFID IFIDRegister,
	nextIDEX IDEXRegister,
	nextEXMEM EXMEMRegister,
	nextMEMWB MEMWBRegister,
) {
	p.control = ctrl

	switch {
	case ctrl.BubbleMEMWB:
		p.memwb.Clear()
	case ctrl.EnableMEMWB:
		p.memwb = nextMEMWB
	}

	if ctrl.EnableEXMEM {
		p.exmem = nextEXMEM
	}

	switch {
	case ctrl.FlushIDEX, ctrl.BubbleIDEX:
		p.idex.Clear()
	case ctrl.EnableIDEX:
		p.idex = nextIDEX
	}

	switch {
	case ctrl.FlushIFID, ctrl.BubbleIFID:
		p.ifid.Clear()
	case ctrl.EnableIFID:
		p.ifid = nextIFID
	}

	switch {
	case ctrl.Redirect:
		p.pc = nextEXMEM.BranchTarget
	case ctrl.EnablePC:
		p.pc += 4
	}
	p.regFile.PC = p.pc
}

func (p *Pipeline) countStalls(in HazardInputs) {
	switch {
	case in.EcallStall:
		p.stats.EcallStalls++
	case in.DCacheStall:
		p.stats.DCacheStalls++
	case in.BranchTaken:
		p.stats.Flushes++
	case in.LoadUse:
		p.stats.LoadUseStalls++
	case in.ICacheStall:
		p.stats.ICacheStalls++
	}
}

// Run ticks the pipeline until the program exits and returns its exit
// code.
func (p *Pipeline) Run() int64 {
	for !p.halted {
		p.Tick()
	}
	return p.exitCode
}

// RunCycles ticks the pipeline for at most cycles cycles. It returns false
// once the program has exited.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Package core provides the cycle-accurate RV64 core model.
//
// A Core ties the 5-stage pipeline to its instruction and data caches, the
// arbiter that shares the single external memory port between them, and
// the agents attached to that port. Each Tick is one clock cycle.
package core

import (
	"fmt"
	"io"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/arbiter"
	"github.com/sarchlab/rvsim/timing/axi"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// FaultExitCode is the exit code reported when a bus error stops the core.
const FaultExitCode = -1

// BootParams are sampled when the core is reset.
type BootParams struct {
	// Entry is the first program counter.
	Entry uint64
	// StackPtr is loaded into sp.
	StackPtr uint64
	// Satp is the address translation root. The core only passes it on.
	Satp uint64
}

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64

	// TimerTicks counts rising edges of the timer input.
	TimerTicks uint64

	Pipeline pipeline.Statistics
	ICache   cache.Statistics
	DCache   cache.Statistics
	Arbiter  arbiter.Statistics
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	return s.Pipeline.CPI()
}

// Option is a functional option for configuring the Core.
type Option func(*Core)

// WithMemory attaches a memory slave to the bus. Syscalls read and write
// guest memory through it when a line is not held by the data cache.
func WithMemory(memory *axi.Memory) Option {
	return func(c *Core) {
		c.memory = memory
		c.agents = append(c.agents, memory)
	}
}

// WithAgents attaches further agents, such as a snooper, to the bus.
func WithAgents(agents ...axi.Agent) Option {
	return func(c *Core) {
		c.agents = append(c.agents, agents...)
	}
}

// WithSyscallHandler replaces the default syscall handler.
func WithSyscallHandler(handler emu.SyscallHandler) Option {
	return func(c *Core) {
		c.syscallHandler = handler
	}
}

// WithOutput sets where the default syscall handler writes stdout and
// stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *Core) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// Core represents a cycle-accurate CPU core model.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	ICache  *cache.ICache
	DCache  *cache.DCache
	Arbiter *arbiter.Arbiter

	config *config.Config

	// Shared resources
	regFile *emu.RegFile
	memory  *axi.Memory
	agents  []axi.Agent
	pins    axi.Pins

	syscallHandler emu.SyscallHandler
	stdout         io.Writer
	stderr         io.Writer

	boot       BootParams
	timerLevel bool
	timerTicks uint64
	err        error
}

// TimerHz is the frequency of the timer input.
const TimerHz = 32768

// NewCore creates a core with the given configuration. The core starts in
// reset with its PC at zero; call Reset with the boot parameters first.
func NewCore(cfg *config.Config, opts ...Option) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Core{
		config:  cfg.Clone(),
		regFile: &emu.RegFile{},
		Arbiter: arbiter.New(),
	}
	c.ICache = cache.NewICache(cfg.ICache, c.Arbiter)
	c.DCache = cache.NewDCache(cfg.DCache, c.Arbiter)

	for _, opt := range opts {
		opt(c)
	}

	if c.syscallHandler == nil {
		handler := emu.NewDefaultSyscallHandler(c.regFile, c, c.stdout, c.stderr)
		handler.SetLatency(cfg.SyscallLatency)
		handler.SetClock(c.TimerTicks, TimerHz)
		c.syscallHandler = handler
	}

	c.Pipeline = pipeline.NewPipeline(c.regFile, c.ICache, c.DCache,
		pipeline.WithSyscallHandler(c.syscallHandler))

	return c, nil
}

// Config returns the configuration the core was built with.
func (c *Core) Config() *config.Config {
	return c.config
}

// RegFile returns the architectural register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Pins returns the external bus signals of the last cycle.
func (c *Core) Pins() *axi.Pins {
	return &c.pins
}

// Reset returns the core to its initial state and samples the boot
// parameters: the PC is set to the entry point and sp to the stack
// pointer. Cache contents are dropped without write-back.
func (c *Core) Reset(boot BootParams) {
	c.boot = boot
	c.regFile.Reset(boot.Entry)
	c.regFile.WriteReg(emu.RegSP, boot.StackPtr)
	c.Pipeline.Reset(boot.Entry)
	c.ICache.Reset()
	c.DCache.Reset()
	c.Arbiter.Reset()
	c.pins = axi.Pins{}
	c.timerLevel = false
	c.timerTicks = 0
	c.err = nil
}

// Satp returns the address translation root given at reset.
func (c *Core) Satp() uint64 {
	return c.boot.Satp
}

// Boot returns the boot parameters given at reset.
func (c *Core) Boot() BootParams {
	return c.boot
}

// SetTimer drives the low-frequency timer input. Rising edges are counted.
func (c *Core) SetTimer(level bool) {
	if level && !c.timerLevel {
		c.timerTicks++
	}
	c.timerLevel = level
}

// TimerTicks returns the number of timer rising edges seen since reset.
func (c *Core) TimerTicks() uint64 {
	return c.timerTicks
}

// Tick executes one clock cycle. It returns false once the core has
// halted.
func (c *Core) Tick() bool {
	if c.Halted() {
		return false
	}

	c.drive()
	c.Pipeline.Tick()
	c.edge()

	if err := c.fault(); err != nil {
		c.err = err
		c.Pipeline.Halt(FaultExitCode)
	}

	return true
}

// drive sets every signal of the cycle: slave outputs from the agents,
// then the grantee's request channels through the arbiter.
func (c *Core) drive() {
	c.pins.ClearMaster()
	c.pins.ClearSlave()

	for _, agent := range c.agents {
		agent.Drive(&c.pins)
	}

	c.ICache.Drive()
	c.DCache.Drive()
	c.Arbiter.Drive(&c.pins, c.ICache.Port(), c.DCache.Port())

	c.pins.ACReady = true
	c.pins.Mask()
}

// edge applies the handshakes of the cycle. Snoops reach both caches
// before either controller advances.
func (c *Core) edge() {
	for _, agent := range c.agents {
		agent.Edge(&c.pins)
	}

	c.Arbiter.Route(&c.pins, c.ICache.Port(), c.DCache.Port())

	if c.pins.ACFire() {
		c.ICache.Snoop(c.pins.ACAddr, c.pins.ACSnoop)
		c.DCache.Snoop(c.pins.ACAddr, c.pins.ACSnoop)
	}

	c.ICache.Edge()
	c.DCache.Edge()
	c.Arbiter.Arbitrate()
}

func (c *Core) fault() error {
	if err := c.ICache.Err(); err != nil {
		return fmt.Errorf("instruction fetch: %w", err)
	}

	if err := c.DCache.Err(); err != nil {
		return fmt.Errorf("data access: %w", err)
	}

	return nil
}

// Err returns the bus error that stopped the core, if any.
func (c *Core) Err() error {
	return c.err
}

// Halted returns true if the core has halted (e.g., due to exit syscall).
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// ExitCode returns the exit code if the core has halted.
func (c *Core) ExitCode() int64 {
	return c.Pipeline.ExitCode()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:       pipeStats.Cycles,
		Instructions: pipeStats.Instructions,
		Stalls: pipeStats.ICacheStalls + pipeStats.DCacheStalls +
			pipeStats.LoadUseStalls + pipeStats.EcallStalls,
		Flushes:    pipeStats.Flushes,
		TimerTicks: c.timerTicks,
		Pipeline:   pipeStats,
		ICache:     c.ICache.Stats(),
		DCache:     c.DCache.Stats(),
		Arbiter:    c.Arbiter.Stats(),
	}
}

// Run executes the core until it halts or maxCycles have elapsed. A
// maxCycles of zero means no limit. It returns the exit code and whether
// the core halted.
func (c *Core) Run(maxCycles uint64) (int64, bool) {
	for i := uint64(0); maxCycles == 0 || i < maxCycles; i++ {
		if !c.Tick() {
			break
		}
	}

	return c.ExitCode(), c.Halted()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles; i++ {
		if !c.Tick() {
			return false
		}
	}
	return !c.Halted()
}

// Read8 reads a byte of guest memory, preferring the data cache's copy.
func (c *Core) Read8(addr uint64) byte {
	if b, ok := c.DCache.Peek(addr); ok {
		return b
	}

	if c.memory == nil {
		return 0
	}

	return c.memory.Read8(addr)
}

// Write8 writes a byte of guest memory. A line held by the data cache is
// updated in place and becomes dirty.
func (c *Core) Write8(addr uint64, value byte) {
	if c.DCache.Poke(addr, value) {
		return
	}

	if c.memory != nil {
		c.memory.Write8(addr, value)
	}
}

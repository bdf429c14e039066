// Package benchmarks provides timing benchmark infrastructure for rvsim
// calibration.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/rvsim/timing/axi"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
)

const (
	programAddr  = 0x1000
	stackPointer = 0x80000
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of stall cycles of any cause
	StallCycles uint64 `json:"stall_cycles"`

	ICacheStalls  uint64 `json:"icache_stalls"`
	DCacheStalls  uint64 `json:"dcache_stalls"`
	LoadUseStalls uint64 `json:"load_use_stalls"`
	EcallStalls   uint64 `json:"ecall_stalls"`

	// PipelineFlushes is the number of taken control transfers
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	ICacheHits   uint64 `json:"icache_hits"`
	ICacheMisses uint64 `json:"icache_misses"`

	DCacheHits       uint64 `json:"dcache_hits"`
	DCacheMisses     uint64 `json:"dcache_misses"`
	DCacheWritebacks uint64 `json:"dcache_writebacks"`

	// BusTransactions is the number of bursts on the memory port
	BusTransactions uint64 `json:"bus_transactions"`

	// ExitCode is the program's exit code
	ExitCode int64 `json:"exit_code"`

	// Halted is false when the run hit the cycle limit
	Halted bool `json:"halted"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares memory before the core is reset
	Setup func(memory *axi.Memory) error

	// Program is the RV64 machine code to execute, loaded at 0x1000
	Program []byte

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Core is the core configuration every benchmark runs with
	Core *config.Config

	// MaxCycles bounds each run. Zero means no limit.
	MaxCycles uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Core:      config.DefaultConfig(),
		MaxCycles: 1_000_000,
		Output:    os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Core == nil {
		config.Core = DefaultConfig().Core
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(bench)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", bench.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// runBenchmark executes a single benchmark on a fresh core and memory.
func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, error) {
	memory := axi.NewMemory(h.config.Core.Memory)

	if bench.Setup != nil {
		if err := bench.Setup(memory); err != nil {
			return BenchmarkResult{}, err
		}
	}

	if err := memory.Write(programAddr, bench.Program); err != nil {
		return BenchmarkResult{}, err
	}

	c, err := core.NewCore(h.config.Core,
		core.WithMemory(memory),
		core.WithOutput(io.Discard, io.Discard),
	)
	if err != nil {
		return BenchmarkResult{}, err
	}
	c.Reset(core.BootParams{Entry: programAddr, StackPtr: stackPointer})

	start := time.Now()
	exitCode, halted := c.Run(h.config.MaxCycles)
	wallTime := time.Since(start)

	if err := c.Err(); err != nil {
		return BenchmarkResult{}, err
	}

	stats := c.Stats()
	return BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		ICacheStalls:        stats.Pipeline.ICacheStalls,
		DCacheStalls:        stats.Pipeline.DCacheStalls,
		LoadUseStalls:       stats.Pipeline.LoadUseStalls,
		EcallStalls:         stats.Pipeline.EcallStalls,
		PipelineFlushes:     stats.Flushes,
		ICacheHits:          stats.ICache.Hits,
		ICacheMisses:        stats.ICache.Misses,
		DCacheHits:          stats.DCache.Hits,
		DCacheMisses:        stats.DCache.Misses,
		DCacheWritebacks:    stats.DCache.Writebacks,
		BusTransactions:     stats.Arbiter.Transactions,
		ExitCode:            exitCode,
		Halted:              halted,
		WallTime:            wallTime,
	}, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== rvsim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		if r.Halted {
			_, _ = fmt.Fprintf(out, "  Exit Code: %d\n", r.ExitCode)
		} else {
			_, _ = fmt.Fprintln(out, "  Exit Code: none (cycle limit)")
		}
		_, _ = fmt.Fprintln(out, "  --- Timing ---")
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(out, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(out, "  I-Cache Stalls:       %d\n", r.ICacheStalls)
		_, _ = fmt.Fprintf(out, "  D-Cache Stalls:       %d\n", r.DCacheStalls)
		_, _ = fmt.Fprintf(out, "  Load-Use Stalls:      %d\n", r.LoadUseStalls)
		_, _ = fmt.Fprintf(out, "  Ecall Stalls:         %d\n", r.EcallStalls)
		_, _ = fmt.Fprintf(out, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)

		_, _ = fmt.Fprintln(out, "  --- I-Cache ---")
		_, _ = fmt.Fprintf(out, "  Hits:   %d\n", r.ICacheHits)
		_, _ = fmt.Fprintf(out, "  Misses: %d\n", r.ICacheMisses)

		_, _ = fmt.Fprintln(out, "  --- D-Cache ---")
		_, _ = fmt.Fprintf(out, "  Hits:       %d\n", r.DCacheHits)
		_, _ = fmt.Fprintf(out, "  Misses:     %d\n", r.DCacheMisses)
		_, _ = fmt.Fprintf(out, "  Writebacks: %d\n", r.DCacheWritebacks)

		_, _ = fmt.Fprintf(out, "  Bus Transactions: %d\n", r.BusTransactions)
		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,icache_stalls,dcache_stalls,load_use_stalls,ecall_stalls,flushes,icache_hits,icache_misses,dcache_hits,dcache_misses,dcache_writebacks,bus_transactions,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.ICacheStalls,
			r.DCacheStalls,
			r.LoadUseStalls,
			r.EcallStalls,
			r.PipelineFlushes,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
			r.DCacheWritebacks,
			r.BusTransactions,
			r.ExitCode,
		)
	}
}

// BuildProgram assembles instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 4*len(instrs))
	for i, inst := range instrs {
		binary.LittleEndian.PutUint32(program[4*i:], inst)
	}
	return program
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config is the core configuration used
	Config *config.Config `json:"config"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config:    h.config.Core,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

package cmd

import (
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/axi"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/trace"
)

type runOptions struct {
	configPath string
	tracePath  string
	maxCycles  uint64
	verbose    bool
	engine     bool
}

type runResult struct {
	ExitCode int64
	Halted   bool
	Err      error
	Stats    core.Stats
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run [program.elf]",
	Short: "Run an RV64 ELF program and report its timing.",
	Long: "`run` loads a statically linked RV64 ELF program, runs it until " +
		"it exits and prints the cycle counts. The process exits with the " +
		"program's exit code.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prog, err := loader.Load(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig(runOpts.configPath)
		if err != nil {
			return err
		}

		result, err := simulate(cfg, prog, runOpts,
			cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		printReport(cmd.OutOrStdout(), args[0], result)

		if !result.Halted {
			return fmt.Errorf("program did not exit within %d cycles",
				result.Stats.Cycles)
		}

		if result.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "bus error: %v\n", result.Err)
		}

		atexit.Exit(int(result.ExitCode))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.StringVar(&runOpts.configPath, "config", "",
		"Path to a core configuration JSON file")
	flags.StringVar(&runOpts.tracePath, "trace", "",
		"Write completed bus transactions to [trace].csv")
	flags.Uint64Var(&runOpts.maxCycles, "max-cycles", 0,
		"Stop after this many cycles, overriding the configuration")
	flags.BoolVarP(&runOpts.verbose, "verbose", "v", false,
		"Log arbiter activity to stderr")
	flags.BoolVar(&runOpts.engine, "engine", false,
		"Drive the core from an Akita serial engine")
}

// simulate loads prog into a fresh memory and runs it on a core built from
// cfg. Guest output goes to stdout and stderr.
func simulate(
	cfg *config.Config,
	prog *loader.Program,
	opts runOptions,
	stdout, stderr io.Writer,
) (runResult, error) {
	cfg = cfg.Clone()
	if opts.maxCycles > 0 {
		cfg.MaxCycles = opts.maxCycles
	}

	memory := axi.NewMemory(cfg.Memory)
	if err := prog.LoadInto(memory); err != nil {
		return runResult{}, err
	}

	c, err := core.NewCore(cfg,
		core.WithMemory(memory),
		core.WithOutput(stdout, stderr),
	)
	if err != nil {
		return runResult{}, err
	}

	var tracer *trace.CSVTraceWriter
	if opts.tracePath != "" {
		tracer = trace.NewCSVTraceWriter(opts.tracePath)
		if err := tracer.Init(); err != nil {
			return runResult{}, err
		}
		c.Arbiter.AcceptHook(tracer)
	}

	if opts.verbose {
		logger := trace.NewLogHook(stderr)
		c.Arbiter.AcceptHook(logger)
		c.ICache.AcceptHook(logger)
		c.DCache.AcceptHook(logger)
	}

	c.Reset(core.BootParams{Entry: prog.EntryPoint, StackPtr: prog.InitialSP})

	if opts.engine {
		err = runOnEngine(c, cfg)
	} else {
		c.Run(cfg.MaxCycles)
	}
	if err != nil {
		return runResult{}, err
	}

	if tracer != nil {
		if err := tracer.Close(); err != nil {
			return runResult{}, fmt.Errorf("failed to close trace: %w", err)
		}
	}

	return runResult{
		ExitCode: c.ExitCode(),
		Halted:   c.Halted(),
		Err:      c.Err(),
		Stats:    c.Stats(),
	}, nil
}

func runOnEngine(c *core.Core, cfg *config.Config) error {
	engine := sim.NewSerialEngine()

	comp := core.NewComponent("Core", engine,
		sim.Freq(cfg.FrequencyMHz)*sim.MHz, c)
	comp.SetMaxCycles(cfg.MaxCycles)
	comp.Start()

	return engine.Run()
}

func printReport(w io.Writer, programPath string, r runResult) {
	stats := r.Stats

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", programPath)
	if r.Halted {
		fmt.Fprintf(w, "Exit code: %d\n", r.ExitCode)
	} else {
		fmt.Fprintf(w, "Exit code: none (cycle limit)\n")
	}
	fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Stalls:\n")
	fmt.Fprintf(w, "  Instruction cache: %d\n", stats.Pipeline.ICacheStalls)
	fmt.Fprintf(w, "  Data cache:        %d\n", stats.Pipeline.DCacheStalls)
	fmt.Fprintf(w, "  Load-use:          %d\n", stats.Pipeline.LoadUseStalls)
	fmt.Fprintf(w, "  System call:       %d\n", stats.Pipeline.EcallStalls)
	fmt.Fprintf(w, "  Flushes:           %d\n", stats.Flushes)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Caches:\n")
	fmt.Fprintf(w, "  ICache: %d hits, %d misses\n",
		stats.ICache.Hits, stats.ICache.Misses)
	fmt.Fprintf(w, "  DCache: %d hits, %d misses, %d write-backs\n",
		stats.DCache.Hits, stats.DCache.Misses, stats.DCache.Writebacks)
	fmt.Fprintf(w, "  Bus:    %d transactions, %d beats\n",
		stats.Arbiter.Transactions, stats.Arbiter.Beats)
}

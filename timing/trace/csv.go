// Package trace records the bus activity of a core through the arbiter's
// hooks.
package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/rvsim/timing/arbiter"
	"github.com/sarchlab/rvsim/timing/axi"
)

// CSVTraceWriter is a hook that stores completed bus transactions into a
// CSV file.
type CSVTraceWriter struct {
	path string
	file *os.File
	out  io.Writer

	txns       []arbiter.Transaction
	bufferSize int
}

// NewCSVTraceWriter creates a writer for path, without the .csv suffix. An
// empty path picks a unique file name on Init.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// NewCSVTraceWriterTo creates a writer that writes to w. Init is not
// needed.
func NewCSVTraceWriterTo(w io.Writer) *CSVTraceWriter {
	t := &CSVTraceWriter{out: w, bufferSize: 1000}
	t.writeHeader()

	return t
}

// Init creates the trace file. An existing file is not overwritten. The
// file is flushed and closed when the program exits through atexit.
func (t *CSVTraceWriter) Init() error {
	if t.path == "" {
		t.path = "rvsim_trace_" + xid.New().String()
	}

	filename := t.Filename()
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	t.file = file
	t.out = file

	t.writeHeader()

	atexit.Register(func() {
		if err := t.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: %v\n", err)
		}
	})

	return nil
}

// Filename returns the name of the trace file.
func (t *CSVTraceWriter) Filename() string {
	return t.path + ".csv"
}

func (t *CSVTraceWriter) writeHeader() {
	fmt.Fprintf(t.out, "ID, Client, Dir, Addr, Len, Beats, Resp, Start, End\n")
}

// Func records transactions as they complete.
func (t *CSVTraceWriter) Func(ctx sim.HookCtx) {
	if ctx.Pos != arbiter.HookPosTxnEnd {
		return
	}

	txn, ok := ctx.Item.(*arbiter.Transaction)
	if !ok {
		return
	}

	t.Write(*txn)
}

// Write buffers one transaction.
func (t *CSVTraceWriter) Write(txn arbiter.Transaction) {
	t.txns = append(t.txns, txn)
	if len(t.txns) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered transactions.
func (t *CSVTraceWriter) Flush() {
	for _, txn := range t.txns {
		fmt.Fprintf(t.out, "%s, %s, %s, 0x%x, %d, %d, %s, %d, %d\n",
			txn.ID,
			txn.Client,
			txn.Dir,
			txn.Addr,
			txn.Len,
			txn.Beats,
			axi.RespName(txn.Resp),
			txn.StartCycle,
			txn.EndCycle,
		)
	}

	t.txns = nil
}

// Close flushes the buffer and closes the trace file.
func (t *CSVTraceWriter) Close() error {
	t.Flush()

	if t.file == nil {
		return nil
	}

	err := t.file.Close()
	t.file = nil

	return err
}

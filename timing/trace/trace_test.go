package trace_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rvsim/timing/arbiter"
	"github.com/sarchlab/rvsim/timing/axi"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/trace"
)

var _ = Describe("CSVTraceWriter", func() {
	txn := &arbiter.Transaction{
		ID:         "c0ffee",
		Client:     arbiter.ClientDCache,
		Dir:        axi.DirWrite,
		Addr:       0x10000,
		Len:        7,
		Beats:      8,
		Resp:       axi.RespOkay,
		StartCycle: 10,
		EndCycle:   21,
	}

	It("should write completed transactions", func() {
		buf := &bytes.Buffer{}
		w := trace.NewCSVTraceWriterTo(buf)

		w.Func(sim.HookCtx{Pos: arbiter.HookPosTxnStart, Item: txn})
		w.Func(sim.HookCtx{Pos: arbiter.HookPosTxnEnd, Item: txn})
		Expect(w.Close()).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(Equal([]string{
			"ID, Client, Dir, Addr, Len, Beats, Resp, Start, End",
			"c0ffee, dcache, write, 0x10000, 7, 8, OKAY, 10, 21",
		}))
	})

	It("should ignore items that are not transactions", func() {
		buf := &bytes.Buffer{}
		w := trace.NewCSVTraceWriterTo(buf)

		w.Func(sim.HookCtx{Pos: arbiter.HookPosTxnEnd, Item: arbiter.ClientICache})
		w.Flush()

		Expect(strings.Count(buf.String(), "\n")).To(Equal(1))
	})

	Describe("trace files", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "trace-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should create the file on Init", func() {
			w := trace.NewCSVTraceWriter(filepath.Join(tempDir, "bus"))
			Expect(w.Init()).To(Succeed())

			w.Write(*txn)
			Expect(w.Close()).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tempDir, "bus.csv"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("c0ffee, dcache, write"))
		})

		It("should refuse to overwrite an existing file", func() {
			path := filepath.Join(tempDir, "bus")
			Expect(os.WriteFile(path+".csv", nil, 0644)).To(Succeed())

			w := trace.NewCSVTraceWriter(path)
			Expect(w.Init()).To(MatchError(ContainSubstring("already exists")))
		})
	})
})

var _ = Describe("LogHook", func() {
	It("should log arbiter events", func() {
		buf := &bytes.Buffer{}
		hook := trace.NewLogHook(buf)
		txn := &arbiter.Transaction{
			ID:     "abc",
			Client: arbiter.ClientICache,
			Dir:    axi.DirRead,
			Addr:   0x1000,
			Len:    15,
			Beats:  16,
			Resp:   axi.RespSlvErr,
		}

		hook.Func(sim.HookCtx{Pos: arbiter.HookPosGrant, Item: arbiter.ClientICache})
		hook.Func(sim.HookCtx{Pos: arbiter.HookPosTxnStart, Item: txn})
		hook.Func(sim.HookCtx{Pos: arbiter.HookPosTxnEnd, Item: txn})
		hook.Func(sim.HookCtx{Pos: arbiter.HookPosRelease, Item: arbiter.ClientICache})

		Expect(buf.String()).To(Equal(
			"grant icache\n" +
				"cycle 0 icache read start id=abc addr=0x1000 len=15\n" +
				"cycle 0 icache read end id=abc beats=16 resp=SLVERR\n" +
				"release icache\n"))
	})

	It("should receive events from an arbiter", func() {
		buf := &bytes.Buffer{}
		arb := arbiter.New()
		arb.AcceptHook(trace.NewLogHook(buf))

		arb.Request(arbiter.ClientDCache)
		arb.Arbitrate()
		arb.Release(arbiter.ClientDCache)
		arb.Arbitrate()

		Expect(buf.String()).To(Equal("grant dcache\nrelease dcache\n"))
	})

	It("should log cache line events", func() {
		buf := &bytes.Buffer{}
		hook := trace.NewLogHook(buf)

		for _, pos := range []*sim.HookPos{
			cache.HookPosRefill,
			cache.HookPosDiscardRefill,
			cache.HookPosWriteback,
			cache.HookPosSnoopHit,
			cache.HookPosDeferredFlush,
		} {
			hook.Func(sim.HookCtx{
				Pos:  pos,
				Item: &cache.Event{Cache: arbiter.ClientDCache, Addr: 0x2040},
			})
		}

		Expect(buf.String()).To(Equal(
			"dcache refill line=0x2040\n" +
				"dcache discard refill line=0x2040\n" +
				"dcache writeback line=0x2040\n" +
				"dcache snoop hit line=0x2040\n" +
				"dcache deferred flush line=0x2040\n"))
	})
})

package cache_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/arbiter"
	"github.com/sarchlab/rvsim/timing/axi"
	"github.com/sarchlab/rvsim/timing/cache"
)

var _ = Describe("DCache", func() {
	const setStride = 512 * 64

	var b *bus

	BeforeEach(func() {
		b = newBus()
		for i := uint64(0); i < 8; i++ {
			Expect(b.memory.Write64(0x2000+8*i, 0x1111111111111111*(i+1))).To(Succeed())
		}
	})

	Describe("Loads", func() {
		It("should refill a cold line with one 8-beat burst", func() {
			Expect(b.load(0x2008, 8)).To(Equal(uint64(0x2222222222222222)))

			reads := b.beats(axi.DirRead)
			Expect(reads).To(HaveLen(8))
			Expect(reads[0].Addr).To(Equal(uint64(0x2000)))
			Expect(reads[0].ID).To(Equal(b.dcache.Config().ID))
			Expect(reads[7].Last).To(BeTrue())
		})

		It("should extract narrow values from the line", func() {
			Expect(b.memory.Write64(0x2010, 0x8877665544332211)).To(Succeed())

			Expect(b.load(0x2010, 1)).To(Equal(uint64(0x11)))
			Expect(b.load(0x2013, 1)).To(Equal(uint64(0x44)))
			Expect(b.load(0x2014, 4)).To(Equal(uint64(0x88776655)))
			Expect(b.load(0x2012, 2)).To(Equal(uint64(0x4433)))
			Expect(b.dcache.Stats().Misses).To(Equal(uint64(1)))
		})
	})

	Describe("Unaligned accesses", func() {
		BeforeEach(func() {
			Expect(b.memory.Write64(0x2000, 0x8877665544332211)).To(Succeed())
			Expect(b.memory.Write64(0x2008, 0x00FFEEDDCCBBAA99)).To(Succeed())
			Expect(b.memory.Write64(0x2040, 0x0123456789ABCDEF)).To(Succeed())
		})

		It("should load across a bus word", func() {
			Expect(b.load(0x2006, 4)).To(Equal(uint64(0xAA998877)))
			Expect(b.load(0x2007, 2)).To(Equal(uint64(0x9988)))
			Expect(b.load(0x2001, 8)).To(Equal(uint64(0x9988776655443322)))
			Expect(b.dcache.Stats().Misses).To(Equal(uint64(1)))
		})

		It("should store across a bus word", func() {
			b.store(0x2006, 4, 0x44332211)

			Expect(b.load(0x2000, 8)).To(Equal(uint64(0x2211665544332211)))
			Expect(b.load(0x2008, 8)).To(Equal(uint64(0x00FFEEDDCCBB4433)))
		})

		It("should refill both lines of an access that spans them", func() {
			Expect(b.load(0x203C, 8)).To(Equal(uint64(0x89ABCDEF88888888)))

			Expect(b.dcache.Contains(0x2000)).To(BeTrue())
			Expect(b.dcache.Contains(0x2040)).To(BeTrue())
			Expect(b.dcache.Stats().Misses).To(Equal(uint64(2)))
			Expect(b.dcache.Stats().Hits).To(Equal(uint64(1)))
			Expect(b.beats(axi.DirRead)).To(HaveLen(16))
		})

		It("should dirty both lines of a store that spans them", func() {
			b.store(0x203E, 4, 0xDDCCBBAA)

			Expect(b.load(0x2038, 8)).To(Equal(uint64(0xBBAA888888888888)))
			Expect(b.load(0x2040, 2)).To(Equal(uint64(0xDDCC)))
			Expect(b.dcache.Dirty(0x2000)).To(BeTrue())
			Expect(b.dcache.Dirty(0x2040)).To(BeTrue())
		})
	})

	Describe("Stores", func() {
		It("should merge only the strobed bytes", func() {
			b.store(0x2003, 1, 0xFFFFFFFFFFFFFFAB)

			Expect(b.load(0x2000, 8)).To(Equal(uint64(0x11111111AB111111)))
			Expect(b.dcache.Dirty(0x2000)).To(BeTrue())
		})

		It("should allocate on a write miss without writing memory", func() {
			b.store(0x2008, 8, 0xDEADBEEF)
			b.settle()

			Expect(b.beats(axi.DirWrite)).To(BeEmpty())
			Expect(b.dcache.Contains(0x2008)).To(BeTrue())

			raw, err := b.memory.Read64(0x2008)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(Equal(uint64(0x2222222222222222)))
		})

		It("should write back a dirty victim before refilling its way", func() {
			b.store(0x2000, 8, 0xABCD)
			b.load(0x2000+setStride, 8)
			b.load(0x2000+2*setStride, 8)
			b.settle()

			writes := b.beats(axi.DirWrite)
			Expect(writes).To(HaveLen(8))
			Expect(writes[0].Addr).To(Equal(uint64(0x2000)))
			Expect(writes[0].Strb).To(Equal(uint8(0xFF)))
			Expect(writes[7].Last).To(BeTrue())

			raw, err := b.memory.Read64(0x2000)
			Expect(err).NotTo(HaveOccurred())
			Expect(raw).To(Equal(uint64(0xABCD)))

			Expect(b.dcache.Contains(0x2000)).To(BeFalse())
			Expect(b.dcache.Stats().Writebacks).To(Equal(uint64(1)))
			b.expectBurstsNotInterleaved()
		})
	})

	Describe("Snoops", func() {
		It("should invalidate a matching line", func() {
			b.load(0x2000, 8)
			b.snooper.Invalidate(0x2010)
			b.tick(nil)

			Expect(b.dcache.Contains(0x2000)).To(BeFalse())
			Expect(b.dcache.Stats().SnoopHits).To(Equal(uint64(1)))
		})

		It("should treat a repeated snoop as a no-op", func() {
			b.load(0x2000, 8)
			b.snooper.Invalidate(0x2000)
			b.snooper.Invalidate(0x2000)
			b.tick(nil)
			b.tick(nil)

			Expect(b.snooper.Pending()).To(Equal(0))
			Expect(b.dcache.Contains(0x2000)).To(BeFalse())
			Expect(b.dcache.Stats().Snoops).To(Equal(uint64(2)))
			Expect(b.dcache.Stats().SnoopHits).To(Equal(uint64(1)))
		})

		It("should miss again after a snoop and reload from memory", func() {
			b.load(0x2000, 8)
			Expect(b.memory.Write64(0x2000, 0x5A5A)).To(Succeed())
			b.snooper.Invalidate(0x2000)
			b.tick(nil)

			Expect(b.load(0x2000, 8)).To(Equal(uint64(0x5A5A)))
			Expect(b.beats(axi.DirRead)).To(HaveLen(16))
		})

		It("should write back snooped dirty data before the refill", func() {
			b.store(0x2000, 8, 0xFEED)
			Expect(b.dcache.Dirty(0x2000)).To(BeTrue())

			b.snooper.Invalidate(0x2000)
			b.tick(nil)
			Expect(b.dcache.Contains(0x2000)).To(BeFalse())
			Expect(b.dcache.Dirty(0x2000)).To(BeTrue())

			Expect(b.load(0x2000, 8)).To(Equal(uint64(0xFEED)))

			writes := b.beats(axi.DirWrite)
			reads := b.beats(axi.DirRead)
			Expect(writes).To(HaveLen(8))
			Expect(reads).To(HaveLen(16))
			Expect(writes[7].Last).To(BeTrue())
			Expect(writes[7].Cycle).To(BeNumerically("<", reads[8].Cycle))
			Expect(b.dcache.Dirty(0x2000)).To(BeFalse())
		})

		It("should discard a refill that a snoop hit in flight", func() {
			b.tick(func() { b.dcache.Access(cache.Request{Addr: 0x2000, Size: 8}) })
			for b.dcache.State() != cache.DCacheRefill {
				b.tick(nil)
			}

			b.snooper.Invalidate(0x2000)
			Expect(b.memory.Write64(0x2000, 0x7777)).To(Succeed())

			Expect(b.load(0x2000, 8)).To(Equal(uint64(0x7777)))
			Expect(b.dcache.Stats().DiscardedRefills).To(Equal(uint64(1)))
			Expect(b.beats(axi.DirRead)).To(HaveLen(16))
		})
	})

	Describe("Hooks", func() {
		var rec *eventRecorder

		BeforeEach(func() {
			rec = &eventRecorder{}
			b.dcache.AcceptHook(rec)
		})

		It("should report refills, write-backs and snoop hits", func() {
			b.store(0x2000, 8, 0xABCD)
			b.snooper.Invalidate(0x2000)
			b.tick(nil)
			b.load(0x2000, 8)

			Expect(rec.events).To(Equal([]lineEvent{
				{pos: cache.HookPosRefill, addr: 0x2000},
				{pos: cache.HookPosSnoopHit, addr: 0x2000},
				{pos: cache.HookPosWriteback, addr: 0x2000},
				{pos: cache.HookPosRefill, addr: 0x2000},
			}))
		})

		It("should report a discarded refill", func() {
			b.tick(func() { b.dcache.Access(cache.Request{Addr: 0x2000, Size: 8}) })
			for b.dcache.State() != cache.DCacheRefill {
				b.tick(nil)
			}
			b.snooper.Invalidate(0x2000)
			b.load(0x2000, 8)

			Expect(rec.events).To(Equal([]lineEvent{
				{pos: cache.HookPosDiscardRefill, addr: 0x2000},
				{pos: cache.HookPosRefill, addr: 0x2000},
			}))
		})
	})

	Describe("Sharing the bus", func() {
		It("should grant the data cache first on simultaneous misses", func() {
			b.tick(func() {
				b.icache.Fetch(0x1000)
				b.dcache.Access(cache.Request{Addr: 0x2000, Size: 8})
			})
			b.tick(nil)

			Expect(b.arb.Grant()).To(Equal(arbiter.ClientDCache))
			Expect(b.arb.Requesting(arbiter.ClientICache)).To(BeTrue())

			b.load(0x2000, 8)
			b.fetch(0x1000)
			b.settle()

			reads := b.beats(axi.DirRead)
			Expect(reads).To(HaveLen(24))
			Expect(reads[0].ID).To(Equal(b.dcache.Config().ID))
			Expect(reads[8].ID).To(Equal(b.icache.Config().ID))
			b.expectBurstsNotInterleaved()
		})

		It("should only put the grantee's signals on the shared port", func() {
			for i := uint64(0); i < 4; i++ {
				b.store(0x2000+i*setStride, 8, i)
				b.fetch(0x1000 + i*setStride)
			}
			b.settle()

			ids := map[arbiter.Client]uint16{
				arbiter.ClientICache: b.icache.Config().ID,
				arbiter.ClientDCache: b.dcache.Config().ID,
			}
			seen := map[arbiter.Client]bool{}

			for _, s := range b.samples {
				p := s.pins
				if p.ARValid || p.RReady || p.AWValid || p.WValid || p.BReady {
					Expect(s.grant).NotTo(Equal(arbiter.ClientNone))
				}
				if p.ARValid {
					Expect(p.ARID).To(Equal(ids[s.grant]))
					seen[s.grant] = true
				}
				if p.AWValid || p.WValid || p.BReady {
					Expect(s.grant).To(Equal(arbiter.ClientDCache))
				}
			}

			Expect(seen).To(HaveKey(arbiter.ClientICache))
			Expect(seen).To(HaveKey(arbiter.ClientDCache))
			Expect(b.dcache.Stats().Writebacks).To(Equal(uint64(2)))
			b.expectBurstsNotInterleaved()
		})
	})

	It("should fault on a read error response", func() {
		b.memory.InjectFault(0x3000, 64)

		for i := 0; i < 40; i++ {
			b.tick(func() { b.dcache.Access(cache.Request{Addr: 0x3000, Size: 8}) })
		}

		var respErr *axi.ResponseError
		Expect(errors.As(b.dcache.Err(), &respErr)).To(BeTrue())
		Expect(respErr.Dir).To(Equal(axi.DirRead))
		Expect(b.dcache.Contains(0x3000)).To(BeFalse())
	})

	It("should let a peek see dirty data", func() {
		b.store(0x2000, 1, 0x42)

		value, ok := b.dcache.Peek(0x2000)
		Expect(ok).To(BeTrue())
		Expect(value).To(Equal(byte(0x42)))

		Expect(b.dcache.Poke(0x2001, 0x43)).To(BeTrue())
		Expect(b.load(0x2000, 2)).To(Equal(uint64(0x4342)))

		_, ok = b.dcache.Peek(0x9000)
		Expect(ok).To(BeFalse())
	})
})

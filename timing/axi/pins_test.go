package axi_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/axi"
)

var _ = Describe("Pins", func() {
	It("should truncate fields to their widths", func() {
		p := &axi.Pins{ARID: 0xFFFF, ARSize: 0xFF, ARBurst: 0xFF, ACSnoop: 0xFF}

		p.Mask()

		Expect(p.ARID).To(Equal(uint16(0x1FFF)))
		Expect(p.ARSize).To(Equal(uint8(0x7)))
		Expect(p.ARBurst).To(Equal(uint8(0x3)))
		Expect(p.ACSnoop).To(Equal(uint8(0xF)))
	})

	It("should only fire when both sides agree", func() {
		Expect(axi.Fire(true, true)).To(BeTrue())
		Expect(axi.Fire(true, false)).To(BeFalse())
		Expect(axi.Fire(false, true)).To(BeFalse())
	})

	It("should copy one side without touching the other", func() {
		src := &axi.Pins{ARValid: true, ARAddr: 0x40, RReady: true, RValid: true}
		dst := &axi.Pins{ARReady: true, ACReady: true}

		dst.CopyMaster(src)

		Expect(dst.ARValid).To(BeTrue())
		Expect(dst.ARAddr).To(Equal(uint64(0x40)))
		Expect(dst.RReady).To(BeTrue())
		Expect(dst.ARReady).To(BeTrue())
		Expect(dst.RValid).To(BeFalse())
		Expect(dst.ACReady).To(BeTrue())

		dst.ClearMaster()
		Expect(dst.ARValid).To(BeFalse())
		Expect(dst.ARReady).To(BeTrue())
	})
})

var _ = Describe("Strobe", func() {
	It("should place a strobe on the byte lanes of the address", func() {
		Expect(axi.Strobe(0x1000, 8)).To(Equal(uint8(0xFF)))
		Expect(axi.Strobe(0x1003, 1)).To(Equal(uint8(0x08)))
		Expect(axi.Strobe(0x1004, 4)).To(Equal(uint8(0xF0)))
		Expect(axi.Strobe(0x1006, 2)).To(Equal(uint8(0xC0)))
	})

	It("should merge only strobed bytes", func() {
		merged := axi.MergeStrobe(0x1111111111111111, 0xAABBCCDDEEFF0022, 0x05)

		Expect(merged).To(Equal(uint64(0x1111111111FF1122)))
	})

	It("should compute size encodings", func() {
		Expect(axi.SizeFor(4)).To(Equal(uint8(2)))
		Expect(axi.SizeFor(8)).To(Equal(uint8(3)))
		Expect(axi.SizeBytes(3)).To(Equal(8))
	})

	It("should step burst addresses", func() {
		Expect(axi.BeatAddress(0x1000, 15, 2, axi.BurstIncr, 3)).To(Equal(uint64(0x100C)))
		Expect(axi.BeatAddress(0x1000, 7, 3, axi.BurstFixed, 3)).To(Equal(uint64(0x1000)))
		Expect(axi.BeatAddress(0x1030, 7, 3, axi.BurstWrap, 2)).To(Equal(uint64(0x1000)))
	})
})

var _ = Describe("ResponseError", func() {
	It("should be matchable with errors.As", func() {
		var err error = fmt.Errorf("refill: %w",
			&axi.ResponseError{Dir: axi.DirRead, ID: 1, Addr: 0x80, Resp: axi.RespSlvErr})

		var respErr *axi.ResponseError
		Expect(errors.As(err, &respErr)).To(BeTrue())
		Expect(respErr.Resp).To(Equal(axi.RespSlvErr))
		Expect(err.Error()).To(ContainSubstring("SLVERR"))
	})
})

package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/config"
)

var _ = Describe("Config", func() {
	Describe("Defaults", func() {
		It("should describe two 2-way 512-set caches with 64-byte lines", func() {
			c := config.DefaultConfig()

			for _, cc := range []struct{ sets, ways, block int }{
				{c.ICache.NumSets, c.ICache.Ways, c.ICache.BlockSize},
				{c.DCache.NumSets, c.DCache.Ways, c.DCache.BlockSize},
			} {
				Expect(cc.sets).To(Equal(512))
				Expect(cc.ways).To(Equal(2))
				Expect(cc.block).To(Equal(64))
			}
		})

		It("should refill the instruction cache in 16 beats", func() {
			Expect(config.DefaultConfig().ICache.Beats()).To(Equal(16))
		})

		It("should move data cache lines in 8 beats", func() {
			Expect(config.DefaultConfig().DCache.Beats()).To(Equal(8))
		})

		It("should be valid", func() {
			Expect(config.DefaultConfig().Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		It("should reject a set count that is not a power of two", func() {
			c := config.DefaultConfig()
			c.ICache.NumSets = 500
			Expect(c.Validate()).To(MatchError(ContainSubstring("icache")))
		})

		It("should reject a line that is not a whole number of beats", func() {
			c := config.DefaultConfig()
			c.DCache.BlockSize = 60
			Expect(c.Validate()).To(MatchError(ContainSubstring("dcache")))
		})

		It("should reject caches sharing a bus ID", func() {
			c := config.DefaultConfig()
			c.DCache.ID = c.ICache.ID
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject zero memory capacity", func() {
			c := config.DefaultConfig()
			c.Memory.Capacity = 0
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject a zero clock frequency", func() {
			c := config.DefaultConfig()
			c.FrequencyMHz = 0
			Expect(c.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := config.DefaultConfig()
			clone := original.Clone()

			clone.SyscallLatency = 100
			clone.DCache.Ways = 4

			Expect(original.SyscallLatency).To(Equal(uint64(1)))
			Expect(original.DCache.Ways).To(Equal(2))
			Expect(clone.SyscallLatency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "config-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := config.DefaultConfig()
			original.Memory.ReadLatency = 20
			original.SyscallLatency = 7

			path := filepath.Join(tempDir, "rvsim.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			data := []byte(`{"syscall_latency": 3, "dcache": {"ways": 4}}`)
			Expect(os.WriteFile(path, data, 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.SyscallLatency).To(Equal(uint64(3)))
			Expect(loaded.DCache.Ways).To(Equal(4))
			Expect(loaded.DCache.NumSets).To(Equal(512))
			Expect(loaded.ICache).To(Equal(config.DefaultConfig().ICache))
		})

		It("should return error for non-existent file", func() {
			_, err := config.LoadConfig("/nonexistent/path/rvsim.json")
			Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = config.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})

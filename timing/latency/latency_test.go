package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesweep/insts"
	"github.com/sarchlab/pipesweep/timing/latency"
)

var _ = Describe("Latency", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	Describe("Default Timing Values", func() {
		It("should use single-cycle ALU operations", func() {
			for _, op := range []insts.Op{insts.OpMOVI, insts.OpADD, insts.OpADDI, insts.OpSUB, insts.OpSUBI} {
				Expect(table.GetLatency(&insts.Instruction{Op: op})).To(Equal(uint64(1)), op.String())
			}
		})

		It("should return MultiplyLatency for MUL", func() {
			Expect(table.GetLatency(&insts.Instruction{Op: insts.OpMUL})).To(Equal(uint64(3)))
		})

		It("should resolve branches in one cycle", func() {
			Expect(table.GetLatency(&insts.Instruction{Op: insts.OpCBNZ})).To(Equal(uint64(1)))
			Expect(table.GetLatency(&insts.Instruction{Op: insts.OpB})).To(Equal(uint64(1)))
		})

		It("should charge only address generation for loads", func() {
			Expect(table.GetLatency(&insts.Instruction{Op: insts.OpLDRB})).To(Equal(uint64(1)))
		})

		It("should add the store latency for stores", func() {
			Expect(table.GetLatency(&insts.Instruction{Op: insts.OpSTR})).To(Equal(uint64(2)))
		})

		It("should expose the misprediction penalty", func() {
			Expect(table.MispredictPenalty()).To(Equal(uint64(6)))
		})
	})

	It("should return 1 for nil instruction", func() {
		Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
	})

	It("should use custom config values", func() {
		config := latency.DefaultTimingConfig()
		config.MultiplyLatency = 5
		config.BranchMispredictPenalty = 10

		custom := latency.NewTableWithConfig(config)

		Expect(custom.GetLatency(&insts.Instruction{Op: insts.OpMUL})).To(Equal(uint64(5)))
		Expect(custom.MispredictPenalty()).To(Equal(uint64(10)))
		Expect(custom.Config()).To(BeIdenticalTo(config))
	})
})

var _ = Describe("TimingConfig", func() {
	It("should create valid default config", func() {
		Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
	})

	Describe("Validation", func() {
		It("should reject zero ALU latency", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero branch latency", func() {
			config := latency.DefaultTimingConfig()
			config.BranchLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero front-end depth", func() {
			config := latency.DefaultTimingConfig()
			config.FrontEndDepth = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should accept a zero misprediction penalty", func() {
			config := latency.DefaultTimingConfig()
			config.BranchMispredictPenalty = 0
			Expect(config.Validate()).To(Succeed())
		})
	})

	It("should clone into an independent copy", func() {
		original := latency.DefaultTimingConfig()
		clone := original.Clone()

		clone.ALULatency = 100

		Expect(original.ALULatency).To(Equal(uint64(1)))
		Expect(clone.ALULatency).To(Equal(uint64(100)))
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.ALULatency = 5
			original.AGULatency = 2

			path := filepath.Join(tempDir, "timing.yaml")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for fields absent from the file", func() {
			path := filepath.Join(tempDir, "partial.yaml")
			Expect(os.WriteFile(path, []byte("multiply_latency: 4\n"), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.MultiplyLatency).To(Equal(uint64(4)))
			Expect(loaded.ALULatency).To(Equal(uint64(1)))
		})

		It("should reject files that fail validation", func() {
			path := filepath.Join(tempDir, "zero.yaml")
			Expect(os.WriteFile(path, []byte("alu_latency: 0\n"), 0644)).To(Succeed())

			_, err := latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.yaml")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for malformed YAML", func() {
			path := filepath.Join(tempDir, "invalid.yaml")
			Expect(os.WriteFile(path, []byte("alu_latency: [1, 2\n"), 0644)).To(Succeed())

			_, err := latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})

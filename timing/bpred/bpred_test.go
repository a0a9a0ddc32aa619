package bpred_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesweep/timing/bpred"
)

// runLoop predicts and trains a loop-closing branch that is taken
// iterations-1 times and then falls through. It returns the mispredictions.
func runLoop(p bpred.Predictor, tid int, pc uint64, iterations int) int {
	misses := 0
	for i := 0; i < iterations; i++ {
		taken := i < iterations-1
		if p.Predict(tid, pc) != taken {
			misses++
		}
		p.Update(tid, pc, taken)
	}
	return misses
}

func newPredictor(kind bpred.Kind) bpred.Predictor {
	p, err := bpred.New(kind, bpred.DefaultConfig(2))
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Kind", func() {
	It("should parse predictor names", func() {
		for _, name := range []string{"BiModeBP", "bimode", "BiMode"} {
			k, err := bpred.ParseKind(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(bpred.KindBiMode))
		}

		k, err := bpred.ParseKind("tournament")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(bpred.KindTournament))
	})

	It("should reject unknown names", func() {
		_, err := bpred.ParseKind("perceptron")
		Expect(err).To(HaveOccurred())
	})

	It("should report validity", func() {
		Expect(bpred.KindLocal.Valid()).To(BeTrue())
		Expect(bpred.Kind(42).Valid()).To(BeFalse())
		Expect(bpred.Kind(42).String()).To(Equal("Kind(42)"))
	})

	It("should round-trip through text", func() {
		text, err := bpred.KindBiMode.MarshalText()
		Expect(err).NotTo(HaveOccurred())

		var k bpred.Kind
		Expect(k.UnmarshalText(text)).To(Succeed())
		Expect(k).To(Equal(bpred.KindBiMode))
	})
})

var _ = Describe("New", func() {
	It("should reject unknown kinds", func() {
		_, err := bpred.New(bpred.Kind(0), bpred.DefaultConfig(1))
		Expect(err).To(HaveOccurred())
	})

	It("should reject table sizes that are not powers of 2", func() {
		config := bpred.DefaultConfig(1)
		config.PHTSize = 1000
		_, err := bpred.New(bpred.KindLocal, config)
		Expect(err).To(HaveOccurred())
	})

	It("should reject zero threads", func() {
		_, err := bpred.New(bpred.KindBiMode, bpred.DefaultConfig(0))
		Expect(err).To(HaveOccurred())
	})
})

var _ = DescribeTable("loop-closing branch",
	func(kind bpred.Kind) {
		p := newPredictor(kind)
		Expect(p.Kind()).To(Equal(kind))

		misses := runLoop(p, 0, 0x1014, 13)

		Expect(misses).To(Equal(1))
		Expect(p.Stats().Lookups).To(Equal(uint64(13)))
		Expect(p.Stats().Incorrect).To(Equal(uint64(1)))
		Expect(p.Stats().Correct).To(Equal(uint64(12)))
	},
	Entry("BiMode", bpred.KindBiMode),
	Entry("Local", bpred.KindLocal),
	Entry("Tournament", bpred.KindTournament),
)

var _ = Describe("Local", func() {
	It("should require 2 mispredictions to change direction", func() {
		p := newPredictor(bpred.KindLocal)
		pc := uint64(0x2000)

		// Weakly taken -> strongly taken.
		p.Update(0, pc, true)
		Expect(p.Predict(0, pc)).To(BeTrue())

		p.Update(0, pc, false)
		Expect(p.Predict(0, pc)).To(BeTrue())

		p.Update(0, pc, false)
		Expect(p.Predict(0, pc)).To(BeFalse())
	})
})

var _ = Describe("BiMode", func() {
	It("should learn an alternating pattern through history", func() {
		p := newPredictor(bpred.KindBiMode)
		pc := uint64(0x3000)

		for i := 0; i < 64; i++ {
			taken := i%2 == 0
			p.Predict(0, pc)
			p.Update(0, pc, taken)
		}

		before := p.Stats().Incorrect
		for i := 64; i < 96; i++ {
			taken := i%2 == 0
			Expect(p.Predict(0, pc)).To(Equal(taken))
			p.Update(0, pc, taken)
		}
		Expect(p.Stats().Incorrect).To(Equal(before))
	})

	It("should keep histories separate per thread", func() {
		p := newPredictor(bpred.KindBiMode)

		Expect(runLoop(p, 0, 0x1014, 13)).To(Equal(1))
		Expect(runLoop(p, 1, 0x1014, 13)).To(BeNumerically("<=", 1))
	})

	It("should clear state on reset", func() {
		p := newPredictor(bpred.KindBiMode)
		runLoop(p, 0, 0x1014, 13)

		p.Reset()

		Expect(p.Stats()).To(Equal(bpred.Stats{}))
		Expect(p.Predict(0, 0x1014)).To(BeTrue())
	})
})

var _ = Describe("Stats", func() {
	It("should compute accuracy", func() {
		s := bpred.Stats{Lookups: 4, Correct: 3, Incorrect: 1}
		Expect(s.Accuracy()).To(BeNumerically("~", 75.0))
		Expect(bpred.Stats{}.Accuracy()).To(BeZero())
	})
})

package stats_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesweep/stats"
)

var _ = Describe("Registry", func() {
	var r *stats.Registry

	BeforeEach(func() {
		r = stats.NewRegistry()
	})

	It("should return the same scalar for the same name", func() {
		a := r.Scalar("system.cpu.numCycles", "cycles")
		a.Add(5)

		b := r.Scalar("system.cpu.numCycles", "")

		Expect(b).To(BeIdenticalTo(a))
		Expect(b.Value()).To(Equal(uint64(5)))
		Expect(b.Desc()).To(Equal("cycles"))
	})

	It("should accumulate across registrations until reset", func() {
		r.Scalar("insts", "").Add(10)
		r.Scalar("insts", "").Add(10)
		Expect(r.Scalar("insts", "").Value()).To(Equal(uint64(20)))

		r.Reset()
		Expect(r.Scalar("insts", "").Value()).To(BeZero())
	})

	It("should evaluate formulas lazily", func() {
		insts := r.Scalar("insts", "")
		cycles := r.Scalar("cycles", "")
		r.Formula("ipc", "insts per cycle", stats.Ratio(insts, cycles))

		v, ok := r.Value("ipc")
		Expect(ok).To(BeTrue())
		Expect(v).To(BeZero())

		insts.Add(3)
		cycles.Add(6)
		v, _ = r.Value("ipc")
		Expect(v).To(BeNumerically("~", 0.5))
	})

	It("should report unknown names", func() {
		_, ok := r.Value("missing")
		Expect(ok).To(BeFalse())
	})

	Describe("SnapshotAndReset", func() {
		It("should capture values before resetting", func() {
			insts := r.Scalar("insts", "")
			cycles := r.Scalar("cycles", "")
			r.Formula("ipc", "", stats.Ratio(insts, cycles))
			insts.Add(50)
			cycles.Add(100)

			snap := r.SnapshotAndReset()

			Expect(snap.Uint("insts")).To(Equal(uint64(50)))
			Expect(snap.Get("ipc")).To(BeNumerically("~", 0.5))
			Expect(snap.Names()).To(Equal([]string{"cycles", "insts", "ipc"}))
			Expect(insts.Value()).To(BeZero())
		})

		It("should be a no-op when called twice", func() {
			r.Scalar("insts", "").Add(7)

			first := r.SnapshotAndReset()
			second := r.SnapshotAndReset()

			Expect(first.Uint("insts")).To(Equal(uint64(7)))
			Expect(second.Uint("insts")).To(BeZero())
			Expect(second.Has("insts")).To(BeTrue())
			Expect(r.Scalar("insts", "").Value()).To(BeZero())
		})
	})

	It("should dump values with descriptions", func() {
		r.Scalar("system.cpu.numCycles", "Number of cpu cycles simulated").Add(42)
		r.Formula("system.cpu.ipc", "IPC: instructions per cycle", func() float64 { return 0.25 })

		buf := new(bytes.Buffer)
		Expect(r.Dump(buf)).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("Begin Simulation Statistics"))
		Expect(buf.String()).To(MatchRegexp(`system\.cpu\.numCycles\s+42 # Number of cpu cycles simulated`))
		Expect(buf.String()).To(MatchRegexp(`system\.cpu\.ipc\s+0\.250000 # IPC`))
		Expect(buf.String()).To(ContainSubstring("End Simulation Statistics"))
	})
})

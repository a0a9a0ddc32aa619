package scenario_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesweep/engine"
	"github.com/sarchlab/pipesweep/scenario"
	"github.com/sarchlab/pipesweep/stats"
	"github.com/sarchlab/pipesweep/system"
	"github.com/sarchlab/pipesweep/timing/bpred"
)

// recordingEngine wraps the timing engine and remembers every description it
// was asked to instantiate.
type recordingEngine struct {
	inner *engine.Engine
	descs []*system.Description
}

func (e *recordingEngine) Instantiate(root system.Root, reg *stats.Registry) (engine.Simulation, error) {
	e.descs = append(e.descs, root.System)
	return e.inner.Instantiate(root, reg)
}

type failingEngine struct {
	calls int
}

func (e *failingEngine) Instantiate(system.Root, *stats.Registry) (engine.Simulation, error) {
	e.calls++
	return nil, engine.ErrInstantiation
}

var _ = Describe("ReferenceScenarios", func() {
	It("should list the four experiments in order", func() {
		s := scenario.ReferenceScenarios()

		Expect(s).To(HaveLen(4))
		Expect(s[0].Config).To(Equal(system.MachineConfig{Core: system.SimpleInOrder}))
		Expect(s[1].Config.Core).To(Equal(system.SimpleInOrder))
		Expect(*s[1].Config.BranchPredictor).To(Equal(bpred.KindBiMode))
		Expect(s[2].Config).To(Equal(system.MachineConfig{Core: system.SuperscalarOOO, IssueWidth: 2, ThreadCount: 1}))
		Expect(s[3].Config).To(Equal(system.MachineConfig{Core: system.SuperscalarOOO, IssueWidth: 2, ThreadCount: 2}))
	})

	It("should return fresh configurations on every call", func() {
		a := scenario.ReferenceScenarios()
		b := scenario.ReferenceScenarios()

		Expect(a[1].Config.BranchPredictor).NotTo(BeIdenticalTo(b[1].Config.BranchPredictor))
	})
})

var _ = Describe("Runner", func() {
	It("should run every reference scenario on its own description", func() {
		eng := &recordingEngine{inner: engine.New(engine.Config{})}
		out := new(bytes.Buffer)

		results, err := scenario.RunWith(out, scenario.ReferenceScenarios(), eng)

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		Expect(eng.descs).To(HaveLen(4))
		for i := range eng.descs {
			for j := i + 1; j < len(eng.descs); j++ {
				Expect(eng.descs[i]).NotTo(BeIdenticalTo(eng.descs[j]))
			}
		}

		for _, r := range results {
			Expect(r.Run.TerminationCause).NotTo(BeEmpty())
			Expect(r.Run.InstructionsCommitted).To(BeNumerically(">", 0))
		}
		Expect(results[3].Run.InstructionsCommitted).To(Equal(2 * results[2].Run.InstructionsCommitted))

		text := out.String()
		Expect(strings.Count(text, "Starting simulation...")).To(Equal(4))
		Expect(strings.Count(text, "Total cycles:")).To(Equal(4))
		Expect(strings.Index(text, "Basic pipeline simulation...")).
			To(BeNumerically("<", strings.Index(text, "SMT configuration with 2 threads...")))
	})

	It("should stop at the first failing scenario", func() {
		eng := &failingEngine{}

		results, err := scenario.RunWith(new(bytes.Buffer), scenario.ReferenceScenarios(), eng)

		Expect(errors.Is(err, engine.ErrInstantiation)).To(BeTrue())
		Expect(results).To(BeEmpty())
		Expect(eng.calls).To(Equal(1))
	})

	It("should stop on an invalid configuration before touching the engine", func() {
		eng := &failingEngine{}
		scenarios := []scenario.Scenario{{Name: "bad", Config: system.MachineConfig{Core: 7}}}

		_, err := scenario.RunWith(new(bytes.Buffer), scenarios, eng)

		Expect(errors.Is(err, system.ErrInvalidConfiguration)).To(BeTrue())
		Expect(eng.calls).To(BeZero())
	})
})

var _ = Describe("RunBatch", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should write reports and stats to files", func() {
		cfg := scenario.BatchConfig{
			Output: filepath.Join(dir, "output.txt"),
			Stats:  filepath.Join(dir, "stats.txt"),
		}

		_, err := scenario.RunBatch(cfg, scenario.ReferenceScenarios()[:1], engine.New(engine.Config{}))
		Expect(err).NotTo(HaveOccurred())

		out, err := os.ReadFile(cfg.Output)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(HavePrefix("Basic pipeline simulation...\nStarting simulation...\n"))

		statsText, err := os.ReadFile(cfg.Stats)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(statsText)).To(ContainSubstring("system.cpu.numCycles"))
	})

	It("should keep what was written before a failure", func() {
		cfg := scenario.BatchConfig{Output: filepath.Join(dir, "output.txt")}

		_, err := scenario.RunBatch(cfg, scenario.ReferenceScenarios(), &failingEngine{})
		Expect(err).To(HaveOccurred())

		out, err := os.ReadFile(cfg.Output)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("Basic pipeline simulation...\n"))
	})

	It("should fail when the output cannot be created", func() {
		cfg := scenario.BatchConfig{Output: filepath.Join(dir, "missing", "output.txt")}

		_, err := scenario.RunBatch(cfg, scenario.ReferenceScenarios(), &failingEngine{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("LoadFile", func() {
	It("should read scenarios from YAML", func() {
		path := filepath.Join(GinkgoT().TempDir(), "scenarios.yaml")
		Expect(os.WriteFile(path, []byte(`scenarios:
  - name: wide
    banner: Four-wide core...
    config:
      core: DerivO3CPU
      issue_width: 4
      thread_count: 1
      branch_predictor: TournamentBP
`), 0o644)).To(Succeed())

		s, err := scenario.LoadFile(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(HaveLen(1))
		Expect(s[0].Name).To(Equal("wide"))
		Expect(s[0].Config.IssueWidth).To(Equal(4))
		Expect(*s[0].Config.BranchPredictor).To(Equal(bpred.KindTournament))
	})

	It("should reject unknown core kinds", func() {
		path := filepath.Join(GinkgoT().TempDir(), "scenarios.yaml")
		Expect(os.WriteFile(path, []byte("scenarios:\n  - name: x\n    config: {core: Atomic}\n"), 0o644)).To(Succeed())

		_, err := scenario.LoadFile(path)
		Expect(err).To(HaveOccurred())
	})

	It("should reject an empty list", func() {
		path := filepath.Join(GinkgoT().TempDir(), "scenarios.yaml")
		Expect(os.WriteFile(path, []byte("scenarios: []\n"), 0o644)).To(Succeed())

		_, err := scenario.LoadFile(path)
		Expect(err).To(HaveOccurred())
	})
})

// Package scenario runs batches of machine configurations, one after the
// other, against a single output sink.
package scenario

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/pipesweep/orchestrator"
	"github.com/sarchlab/pipesweep/system"
	"github.com/sarchlab/pipesweep/timing/bpred"
)

// Scenario is one named machine configuration.
type Scenario struct {
	Name   string               `yaml:"name"`
	Banner string               `yaml:"banner,omitempty"`
	Config system.MachineConfig `yaml:"config"`
}

// ReferenceScenarios returns the four reference experiments in order: the
// basic in-order pipeline, the same pipeline with a BiMode predictor, a
// 2-wide superscalar core and a 2-wide core running two threads.
func ReferenceScenarios() []Scenario {
	return []Scenario{
		{
			Name:   "basic",
			Banner: "Basic pipeline simulation...",
			Config: system.MachineConfig{Core: system.SimpleInOrder},
		},
		{
			Name:   "bimode",
			Banner: "Simulation with branch prediction...",
			Config: system.MachineConfig{
				Core:            system.SimpleInOrder,
				BranchPredictor: system.Predictor(bpred.KindBiMode),
			},
		},
		{
			Name:   "superscalar",
			Banner: "Superscalar configuration...",
			Config: system.MachineConfig{Core: system.SuperscalarOOO, IssueWidth: 2, ThreadCount: 1},
		},
		{
			Name:   "smt",
			Banner: "SMT configuration with 2 threads...",
			Config: system.MachineConfig{Core: system.SuperscalarOOO, IssueWidth: 2, ThreadCount: 2},
		},
	}
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadFile reads a scenario list from a YAML file.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file %s: %w", path, err)
	}

	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file %s lists no scenarios", path)
	}

	for i, s := range f.Scenarios {
		if s.Name == "" {
			return nil, fmt.Errorf("scenario %d in %s has no name", i, path)
		}
	}

	return f.Scenarios, nil
}

// Result pairs a scenario with the outcome of its run.
type Result struct {
	Scenario Scenario
	Run      orchestrator.RunResult
}

// Runner executes scenarios sequentially.
type Runner struct {
	builder *system.Builder
	orch    *orchestrator.Orchestrator
	out     io.Writer
	log     logrus.FieldLogger
}

// NewRunner creates a runner that prints banners to out. out should be the
// orchestrator's sink so that banners and reports interleave.
func NewRunner(builder *system.Builder, orch *orchestrator.Orchestrator, out io.Writer) *Runner {
	return &Runner{
		builder: builder,
		orch:    orch,
		out:     out,
		log:     logrus.StandardLogger(),
	}
}

// WithLogger sets the logger.
func (r *Runner) WithLogger(log logrus.FieldLogger) *Runner {
	r.log = log
	return r
}

// RunAll runs every scenario in order and stops at the first failure. The
// results of the scenarios that completed are returned either way.
func (r *Runner) RunAll(scenarios []Scenario) ([]Result, error) {
	results := make([]Result, 0, len(scenarios))

	for i, s := range scenarios {
		log := r.log.WithFields(logrus.Fields{
			"scenario": s.Name,
			"index":    i,
		})
		log.Info("running scenario")

		res, err := r.Run(s)
		if err != nil {
			log.WithError(err).Error("scenario failed")
			return results, err
		}

		results = append(results, Result{Scenario: s, Run: res})
	}

	return results, nil
}

// Run builds a fresh description for s and runs it.
func (r *Runner) Run(s Scenario) (orchestrator.RunResult, error) {
	if s.Banner != "" {
		if _, err := fmt.Fprintln(r.out, s.Banner); err != nil {
			return orchestrator.RunResult{}, fmt.Errorf("failed to write banner: %w", err)
		}
	}

	desc, err := r.builder.Build(s.Config)
	if err != nil {
		return orchestrator.RunResult{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	res, err := r.orch.Run(desc)
	if err != nil {
		return orchestrator.RunResult{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	return res, nil
}

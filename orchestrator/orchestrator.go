// Package orchestrator runs one system description to completion and
// harvests its counters.
package orchestrator

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/pipesweep/engine"
	"github.com/sarchlab/pipesweep/stats"
	"github.com/sarchlab/pipesweep/system"
)

// Engine instantiates descriptions. *engine.Engine implements it.
type Engine interface {
	Instantiate(root system.Root, reg *stats.Registry) (engine.Simulation, error)
}

// RunResult is the outcome of one run.
type RunResult struct {
	TerminationCause      string
	ElapsedTicks          uint64
	InstructionsCommitted uint64
	Cycles                uint64
	IPC                   float64
}

// Orchestrator owns the counter registry and runs descriptions one at a
// time.
type Orchestrator struct {
	engine   Engine
	registry *stats.Registry
	out      io.Writer
	statsOut io.Writer
	log      logrus.FieldLogger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStatsSink dumps the full counter set of every run to w.
func WithStatsSink(w io.Writer) Option {
	return func(o *Orchestrator) {
		o.statsOut = w
	}
}

// WithRegistry replaces the registry the orchestrator owns.
func WithRegistry(r *stats.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = r
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// New creates an orchestrator that prints run reports to out.
func New(eng Engine, out io.Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   eng,
		registry: stats.NewRegistry(),
		out:      out,
		log:      logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Registry returns the counter registry.
func (o *Orchestrator) Registry() *stats.Registry {
	return o.registry
}

// Run instantiates desc, simulates it until its exit event and reports the
// committed instructions, IPC and cycles. The registry is zero when Run
// returns successfully.
func (o *Orchestrator) Run(desc *system.Description) (RunResult, error) {
	o.registry.Reset()

	sim, err := o.engine.Instantiate(system.Root{FullSystem: false, System: desc}, o.registry)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to instantiate system: %w", err)
	}

	if err := o.println("Starting simulation..."); err != nil {
		return RunResult{}, err
	}

	exit, err := sim.Simulate()
	if err != nil {
		return RunResult{}, fmt.Errorf("simulation aborted at tick %d: %w", sim.CurTick(), err)
	}

	if err := o.printf("Simulation ended at tick %d because %s\n", exit.Tick, exit.Cause); err != nil {
		return RunResult{}, err
	}
	if err := o.println("Collecting stats..."); err != nil {
		return RunResult{}, err
	}

	if o.statsOut != nil {
		if err := o.registry.Dump(o.statsOut); err != nil {
			return RunResult{}, fmt.Errorf("failed to dump stats: %w", err)
		}
	}

	snap := o.registry.SnapshotAndReset()
	_ = o.registry.SnapshotAndReset()

	cpu := "system.cpu"
	if desc != nil && desc.CPU != nil {
		cpu = desc.CPU.Name
	}

	res := RunResult{
		TerminationCause:      exit.Cause,
		ElapsedTicks:          exit.Tick,
		InstructionsCommitted: snap.Uint(cpu + ".committedInsts"),
		Cycles:                snap.Uint(cpu + ".numCycles"),
		IPC:                   snap.Get(cpu + ".ipc"),
	}

	o.log.WithFields(logrus.Fields{
		"insts":  res.InstructionsCommitted,
		"cycles": res.Cycles,
		"ipc":    res.IPC,
	}).Debug("run finished")

	if err := o.report(res); err != nil {
		return RunResult{}, err
	}

	return res, nil
}

func (o *Orchestrator) report(res RunResult) error {
	if err := o.printf("Instructions committed: %d\n", res.InstructionsCommitted); err != nil {
		return err
	}
	if err := o.printf("Instructions per Cycle: %g\n", res.IPC); err != nil {
		return err
	}
	return o.printf("Total cycles: %d\n", res.Cycles)
}

func (o *Orchestrator) println(s string) error {
	return o.printf("%s\n", s)
}

func (o *Orchestrator) printf(format string, args ...any) error {
	if _, err := fmt.Fprintf(o.out, format, args...); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

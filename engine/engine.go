// Package engine instantiates system descriptions into runnable timing
// models and runs them to completion.
package engine

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/pipesweep/emu"
	"github.com/sarchlab/pipesweep/stats"
	"github.com/sarchlab/pipesweep/system"
	"github.com/sarchlab/pipesweep/timing/bpred"
	"github.com/sarchlab/pipesweep/timing/core"
	"github.com/sarchlab/pipesweep/timing/latency"
	"github.com/sarchlab/pipesweep/timing/mem"
	"github.com/sarchlab/pipesweep/workload"
)

var (
	// ErrInstantiation is returned when a description cannot be turned into
	// a runnable model.
	ErrInstantiation = errors.New("instantiation failed")

	// ErrSimulation is returned when the model faults while running.
	ErrSimulation = errors.New("simulation failed")
)

// ThreadStride separates the physical images of hardware threads.
const ThreadStride = system.ThreadStride

// ExitEvent is the terminal event of a run.
type ExitEvent struct {
	Cause string
	// Tick is the simulated time in picoseconds.
	Tick uint64
}

// Simulation is an instantiated system.
type Simulation interface {
	// Simulate runs until the exit event. It may be called once.
	Simulate() (ExitEvent, error)
	CurTick() uint64
}

// Config holds engine-wide settings that do not belong to a description.
type Config struct {
	Timing *latency.TimingConfig

	// MaxInstructions stops a run when any thread commits this many
	// instructions. Zero means run until exit.
	MaxInstructions uint64

	// WorkloadStdout receives what the workload writes to fd 1 and 2.
	WorkloadStdout io.Writer

	Loader workload.Loader
}

// Engine instantiates descriptions.
type Engine struct {
	config Config
	log    logrus.FieldLogger
}

// New creates an engine. Missing settings take their defaults.
func New(config Config) *Engine {
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.Loader == nil {
		config.Loader = workload.NewLoader()
	}

	return &Engine{
		config: config,
		log:    logrus.StandardLogger(),
	}
}

// WithLogger sets the logger.
func (e *Engine) WithLogger(log logrus.FieldLogger) *Engine {
	e.log = log
	return e
}

func instErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInstantiation, fmt.Sprintf(format, args...))
}

// Instantiate validates root, claims its description and builds the runtime
// model. Counters are registered in reg.
func (e *Engine) Instantiate(root system.Root, reg *stats.Registry) (Simulation, error) {
	if root.FullSystem {
		return nil, instErr("full-system mode is not supported")
	}

	d := root.System
	if d == nil {
		return nil, instErr("root has no system")
	}

	if err := d.Claim(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
	}

	if err := validate(d); err != nil {
		return nil, err
	}

	if err := e.config.Timing.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
	}

	prog, err := e.config.Loader.Load(d.CPU.Workload.Executable)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
	}

	memRange := d.MemCtrl.DRAM.Range
	lastImageEnd := uint64(d.CPU.NumThreads-1)*ThreadStride + prog.Footprint()
	if prog.Footprint() > ThreadStride || lastImageEnd > memRange.End() {
		return nil, instErr("%d images of %s (%d bytes each) do not fit in %s",
			d.CPU.NumThreads, prog.Name, prog.Footprint(), memRange)
	}

	inst, err := e.build(d, prog, reg)
	if err != nil {
		return nil, err
	}

	return inst, nil
}

func (e *Engine) build(d *system.Description, prog *workload.Program, reg *stats.Registry) (*Instance, error) {
	akitaEngine := sim.NewSerialEngine()
	freq := d.ClockDomain.Clock

	xbar := mem.NewXBar(d.MemBus.Name, d.MemBus.Config, periodPS(freq), reg)
	dram := mem.NewDRAM(d.MemCtrl.Name+".dram", d.MemCtrl.DRAM.Config, d.MemCtrl.DRAM.Range, reg)
	ctrl := mem.NewController(d.MemCtrl.Name, d.MemCtrl.Config, dram, reg)
	if err := xbar.Attach(ctrl); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
	}

	var predictor bpred.Predictor
	if d.CPU.BranchPredictor != nil {
		p, err := bpred.New(*d.CPU.BranchPredictor, bpred.DefaultConfig(d.CPU.NumThreads))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
		}
		predictor = p
	}

	c, err := core.MakeBuilder().
		WithEngine(akitaEngine).
		WithFreq(freq).
		WithParams(coreParams(d.CPU, e.config.MaxInstructions)).
		WithLatencyTable(latency.NewTableWithConfig(e.config.Timing.Clone())).
		WithPredictor(predictor).
		WithInstPort(xbar).
		WithDataPort(xbar).
		WithRegistry(reg).
		Build(d.CPU.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
	}

	for _, tc := range d.CPU.Threads {
		emulator := emu.NewEmulator(prog.Text, prog.TextBase,
			emu.WithStdout(e.config.WorkloadStdout),
			emu.WithStderr(e.config.WorkloadStdout))
		for _, seg := range prog.Segments {
			emulator.Memory().WriteBytes(seg.VirtAddr, seg.Data)
		}
		emulator.RegFile().PC = prog.EntryPoint

		if err := c.AddThread(emulator, uint64(tc.ID)*ThreadStride); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInstantiation, err)
		}
	}

	inst := &Instance{
		engine: akitaEngine,
		core:   c,
		log:    e.log,

		simTicks: reg.Scalar("simTicks", "Number of ticks simulated"),
		simInsts: reg.Scalar("simInsts", "Number of instructions simulated"),
	}
	reg.Formula("simFreq", "The number of ticks per simulated second", func() float64 { return 1e12 })
	reg.Formula("simSeconds", "Number of seconds simulated", func() float64 {
		return float64(inst.simTicks.Value()) / 1e12
	})

	e.log.WithFields(logrus.Fields{
		"cpu":     d.CPU.Kind.String(),
		"threads": d.CPU.NumThreads,
		"program": prog.Name,
	}).Debug("instantiated system")

	return inst, nil
}

func coreParams(cpu *system.CPU, maxInsts uint64) core.Params {
	kind := core.KindOutOfOrder
	if cpu.Kind == system.SimpleInOrder {
		kind = core.KindInOrder
	}

	return core.Params{
		Kind:            kind,
		FetchWidth:      cpu.Widths.Fetch,
		DecodeWidth:     cpu.Widths.Decode,
		IssueWidth:      cpu.Widths.Issue,
		ExecuteWidth:    cpu.Widths.Execute,
		MemoryWidth:     cpu.Widths.Memory,
		CommitWidth:     cpu.Widths.Commit,
		NumThreads:      cpu.NumThreads,
		WindowSize:      cpu.ROBEntries,
		FetchQueueSize:  cpu.FetchQueueSize,
		LineSize:        64,
		MaxInstructions: maxInsts,
	}
}

func periodPS(freq sim.Freq) uint64 {
	return uint64(1e12/float64(freq) + 0.5)
}

// Package core provides the cycle-level CPU core model.
//
// The core executes each instruction functionally when it is fetched and
// models its timing through a fetch queue, an instruction window and in-order
// commit. The same model covers an in-order pipeline (issue stops at the
// oldest instruction that is not ready) and an out-of-order core (any ready
// instruction in the window issues). Hardware threads share the window and
// the stage widths.
package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pipesweep/emu"
	"github.com/sarchlab/pipesweep/stats"
	"github.com/sarchlab/pipesweep/timing/bpred"
	"github.com/sarchlab/pipesweep/timing/latency"
	"github.com/sarchlab/pipesweep/timing/mem"
)

// Termination causes.
const (
	CauseAllExited = "exiting with last active thread context"
	CauseMaxInsts  = "a thread reached the max instruction count"
)

// Kind selects the issue discipline.
type Kind int

// Core kinds.
const (
	KindInOrder Kind = iota + 1
	KindOutOfOrder
)

func (k Kind) String() string {
	switch k {
	case KindInOrder:
		return "in-order"
	case KindOutOfOrder:
		return "out-of-order"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Params holds the structural parameters of a core.
type Params struct {
	Kind Kind

	FetchWidth   int
	DecodeWidth  int
	IssueWidth   int
	ExecuteWidth int
	MemoryWidth  int
	CommitWidth  int

	NumThreads int

	// WindowSize bounds the number of dispatched, uncommitted instructions.
	WindowSize int
	// FetchQueueSize bounds fetched instructions waiting for dispatch, per
	// thread.
	FetchQueueSize int
	// LineSize is the instruction fetch granularity in bytes.
	LineSize uint64

	// MaxInstructions stops the run once any thread commits this many
	// instructions. Zero means no limit.
	MaxInstructions uint64
}

// Validate checks that every width and size is usable.
func (p Params) Validate() error {
	if p.Kind != KindInOrder && p.Kind != KindOutOfOrder {
		return fmt.Errorf("unknown core kind %s", p.Kind)
	}

	checks := []struct {
		name  string
		value int
	}{
		{"fetch width", p.FetchWidth},
		{"decode width", p.DecodeWidth},
		{"issue width", p.IssueWidth},
		{"execute width", p.ExecuteWidth},
		{"memory width", p.MemoryWidth},
		{"commit width", p.CommitWidth},
		{"thread count", p.NumThreads},
		{"window size", p.WindowSize},
		{"fetch queue size", p.FetchQueueSize},
	}
	for _, c := range checks {
		if c.value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", c.name, c.value)
		}
	}

	if p.LineSize == 0 || p.LineSize&(p.LineSize-1) != 0 {
		return fmt.Errorf("line size must be a power of two, got %d", p.LineSize)
	}

	return nil
}

// MemPort is the path from a core port into the memory system.
type MemPort interface {
	Access(req mem.Request, t uint64) (uint64, error)
}

// Exit describes why the core stopped.
type Exit struct {
	Cause string
	Cycle uint64
}

// Core is a ticking component that runs its hardware threads to completion.
type Core struct {
	*sim.TickingComponent

	path string

	params   Params
	periodPS uint64

	latency   *latency.Table
	predictor bpred.Predictor
	instPort  MemPort
	dataPort  MemPort

	threads []*thread
	window  []*uop

	cycle    uint64
	seq      uint64
	fetchRR  int
	commitRR int

	exit *Exit
	err  error

	counters counters
}

type counters struct {
	numCycles      *stats.Scalar
	committedInsts *stats.Scalar
	fetchedInsts   *stats.Scalar
	fetchStalls    *stats.Scalar
	issuedInsts    *stats.Scalar
	loads          *stats.Scalar
	stores         *stats.Scalar
	branches       *stats.Scalar
	bpLookups      *stats.Scalar
	condPredicted  *stats.Scalar
	condIncorrect  *stats.Scalar
	perThread      []*stats.Scalar
}

// ErrNoThreads is returned when a core is started without thread contexts.
var ErrNoThreads = errors.New("core has no thread contexts")

// AddThread binds a functional thread context to the next hardware thread.
// physOffset is added to every address the thread sends to memory.
func (c *Core) AddThread(e *emu.Emulator, physOffset uint64) error {
	if len(c.threads) >= c.params.NumThreads {
		return fmt.Errorf("core %s supports %d threads", c.path, c.params.NumThreads)
	}

	c.threads = append(c.threads, &thread{
		id:     len(c.threads),
		emu:    e,
		offset: physOffset,
	})

	return nil
}

// NumThreadContexts returns the number of bound threads.
func (c *Core) NumThreadContexts() int {
	return len(c.threads)
}

// Path returns the dotted path that prefixes the core's counters.
func (c *Core) Path() string {
	return c.path
}

// Params returns the structural parameters.
func (c *Core) Params() Params {
	return c.params
}

// Start schedules the first tick.
func (c *Core) Start() error {
	if len(c.threads) == 0 {
		return ErrNoThreads
	}

	c.TickLater()
	return nil
}

// Exit returns the termination record, or nil while running.
func (c *Core) Exit() *Exit {
	return c.exit
}

// Err returns the fault that stopped the core, if any.
func (c *Core) Err() error {
	return c.err
}

// Cycle returns the number of cycles simulated.
func (c *Core) Cycle() uint64 {
	return c.cycle
}

// Committed returns the number of instructions committed by all threads.
func (c *Core) Committed() uint64 {
	var n uint64
	for _, t := range c.threads {
		n += t.committed
	}
	return n
}

// PeriodPS returns the clock period in picoseconds.
func (c *Core) PeriodPS() uint64 {
	return c.periodPS
}

// Tick advances the core by one cycle. Stages are evaluated back to front so
// that an instruction moves through at most one stage per cycle.
func (c *Core) Tick() bool {
	if c.exit != nil || c.err != nil {
		return false
	}

	c.commit()
	if c.exit == nil && c.err == nil {
		c.issue()
		c.dispatch()
		c.fetch()
	}

	c.cycle++
	c.counters.numCycles.Inc()

	if c.exit != nil {
		c.exit.Cycle = c.cycle
	}

	return c.exit == nil && c.err == nil
}

func (c *Core) toCycle(ps uint64) uint64 {
	return (ps + c.periodPS - 1) / c.periodPS
}

func periodOf(freq sim.Freq) uint64 {
	return uint64(math.Round(1e12 / float64(freq)))
}

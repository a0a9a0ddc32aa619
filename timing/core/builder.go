package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pipesweep/stats"
	"github.com/sarchlab/pipesweep/timing/bpred"
	"github.com/sarchlab/pipesweep/timing/latency"
)

// Builder builds cores.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	params    Params
	latency   *latency.Table
	predictor bpred.Predictor
	instPort  MemPort
	dataPort  MemPort
	registry  *stats.Registry
}

// MakeBuilder creates a builder with a 1GHz clock and default latencies.
func MakeBuilder() Builder {
	return Builder{
		freq:    1 * sim.GHz,
		latency: latency.NewTable(),
	}
}

// WithEngine sets the event engine that drives the core.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithParams sets the structural parameters.
func (b Builder) WithParams(params Params) Builder {
	b.params = params
	return b
}

// WithLatencyTable sets the execution latencies.
func (b Builder) WithLatencyTable(t *latency.Table) Builder {
	b.latency = t
	return b
}

// WithPredictor attaches a branch predictor. Without one, conditional
// branches are predicted not taken.
func (b Builder) WithPredictor(p bpred.Predictor) Builder {
	b.predictor = p
	return b
}

// WithInstPort sets the memory path used by instruction fetch.
func (b Builder) WithInstPort(p MemPort) Builder {
	b.instPort = p
	return b
}

// WithDataPort sets the memory path used by loads and stores.
func (b Builder) WithDataPort(p MemPort) Builder {
	b.dataPort = p
	return b
}

// WithRegistry sets the counter registry.
func (b Builder) WithRegistry(r *stats.Registry) Builder {
	b.registry = r
	return b
}

// Build creates the core. The name is a lowercase dotted path such as
// "system.cpu" that prefixes all counters and port names; the akita
// component is registered under ComponentName(name).
func (b Builder) Build(name string) (*Core, error) {
	if err := b.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters for %s: %w", name, err)
	}
	if b.engine == nil {
		return nil, fmt.Errorf("core %s has no engine", name)
	}
	if b.instPort == nil || b.dataPort == nil {
		return nil, fmt.Errorf("core %s has an unconnected memory port", name)
	}
	if b.registry == nil {
		return nil, fmt.Errorf("core %s has no counter registry", name)
	}
	if b.freq <= 0 {
		return nil, fmt.Errorf("core %s has a non-positive frequency", name)
	}

	c := &Core{
		path:      name,
		params:    b.params,
		periodPS:  periodOf(b.freq),
		latency:   b.latency,
		predictor: b.predictor,
		instPort:  b.instPort,
		dataPort:  b.dataPort,
	}
	c.TickingComponent = sim.NewTickingComponent(ComponentName(name), b.engine, b.freq, c)
	c.counters = registerCounters(name, b.params.NumThreads, b.registry)

	return c, nil
}

// ComponentName converts a dotted path into an akita component name: every
// element starts with a capital letter and separators inside an element are
// dropped, so "system.cpu.icache_port" becomes "System.Cpu.IcachePort".
func ComponentName(path string) string {
	elems := strings.Split(path, ".")
	for i, e := range elems {
		var b strings.Builder
		upper := true
		for _, r := range e {
			if r == '_' || r == '-' || r == '\'' || r == '"' {
				upper = true
				continue
			}
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		}
		elems[i] = b.String()
	}
	return strings.Join(elems, ".")
}

func registerCounters(name string, numThreads int, r *stats.Registry) counters {
	cs := counters{
		numCycles:      r.Scalar(name+".numCycles", "Number of cpu cycles simulated"),
		committedInsts: r.Scalar(name+".committedInsts", "Number of instructions committed"),
		fetchedInsts:   r.Scalar(name+".fetch.insts", "Number of instructions fetched"),
		fetchStalls:    r.Scalar(name+".fetch.stallCycles", "Number of cycles fetch was stalled"),
		issuedInsts:    r.Scalar(name+".issuedInsts", "Number of instructions issued"),
		loads:          r.Scalar(name+".commit.loads", "Number of loads committed"),
		stores:         r.Scalar(name+".commit.stores", "Number of stores committed"),
		branches:       r.Scalar(name+".commit.branches", "Number of branches committed"),
		bpLookups:      r.Scalar(name+".branchPred.lookups", "Number of branch predictor lookups"),
		condPredicted:  r.Scalar(name+".branchPred.condPredicted", "Number of conditional branches predicted"),
		condIncorrect:  r.Scalar(name+".branchPred.condIncorrect", "Number of conditional branches incorrect"),
	}

	for i := 0; i < numThreads; i++ {
		cs.perThread = append(cs.perThread,
			r.Scalar(fmt.Sprintf("%s.thread_%d.numInsts", name, i), "Number of instructions committed by this thread"))
	}

	r.Formula(name+".ipc", "IPC: instructions per cycle", stats.Ratio(cs.committedInsts, cs.numCycles))
	r.Formula(name+".cpi", "CPI: cycles per instruction", stats.Ratio(cs.numCycles, cs.committedInsts))

	return cs
}

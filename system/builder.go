package system

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/pipesweep/timing/mem"
	"github.com/sarchlab/pipesweep/workload"
)

// Fixed system constants.
const (
	ClockFreq = 1 * sim.GHz
	Voltage   = 1.0
	MemSize   = 512 * 1024 * 1024
	MemMode   = "timing"

	// MaxThreads is the number of hardware threads whose images fit in
	// MemSize, one ThreadStride slot each.
	MaxThreads   = 8
	ThreadStride = MemSize / MaxThreads
)

// Core structure presets.
const (
	inOrderWindow     = 8
	inOrderFetchQueue = 4
	o3ROBEntries      = 192
	o3FetchQueue      = 32
)

// Builder turns MachineConfigs into Descriptions.
type Builder struct {
	executable string
	log        logrus.FieldLogger
}

// NewBuilder creates a builder that binds every system to the hello
// workload.
func NewBuilder() *Builder {
	return &Builder{
		executable: workload.HelloPath,
		log:        logrus.StandardLogger(),
	}
}

// WithLogger sets the logger used for configuration warnings.
func (b *Builder) WithLogger(log logrus.FieldLogger) *Builder {
	b.log = log
	return b
}

// Build validates cfg and returns a new, unclaimed description. On error the
// description is nil.
func (b *Builder) Build(cfg MachineConfig) (*Description, error) {
	cpu, err := b.buildCPU(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.BranchPredictor != nil {
		if !cfg.BranchPredictor.Valid() {
			return nil, fmt.Errorf("%w: unknown branch predictor %s",
				ErrInvalidConfiguration, cfg.BranchPredictor)
		}
		k := *cfg.BranchPredictor
		cpu.BranchPredictor = &k
	}

	memRange := mem.AddrRange{Start: 0, Size: MemSize}

	d := &Description{
		ClockDomain: ClockDomain{
			Clock:         ClockFreq,
			VoltageDomain: VoltageDomain{Voltage: Voltage},
		},
		MemMode:   MemMode,
		MemRanges: []mem.AddrRange{memRange},
		CPU:       cpu,
		MemBus: &XBar{
			Name:         "system.membus",
			Config:       mem.SystemXBarConfig(),
			CPUSidePorts: &VectorPort{Name: "system.membus.cpu_side_ports", Side: CPUSide},
			MemSidePorts: &VectorPort{Name: "system.membus.mem_side_ports", Side: MemSide},
		},
		MemCtrl: &MemCtrl{
			Name:   "system.mem_ctrl",
			Config: mem.DefaultCtrlConfig(),
			DRAM: &DRAMInterface{
				Config: mem.DDR3Config(),
				Range:  memRange,
			},
			Port: &Port{Name: "system.mem_ctrl.port"},
		},
		SystemPort: &Port{Name: "system.system_port"},
	}

	d.MemBus.CPUSidePorts.Connect(cpu.ICachePort)
	d.MemBus.CPUSidePorts.Connect(cpu.DCachePort)
	d.MemBus.MemSidePorts.Connect(d.MemCtrl.Port)
	d.MemBus.CPUSidePorts.Connect(d.SystemPort)

	cpu.InterruptController = &InterruptController{Name: cpu.Name + ".interrupts"}

	process := workload.NewProcess(b.executable)
	cpu.Workload = &process
	for tid := 0; tid < cpu.NumThreads; tid++ {
		cpu.Threads = append(cpu.Threads, ThreadContext{ID: tid, Process: process})
	}

	b.log.WithField("config", cfg.String()).Debugf("built %s", d)

	return d, nil
}

func (b *Builder) buildCPU(cfg MachineConfig) (*CPU, error) {
	cpu := &CPU{
		Name:       "system.cpu",
		Kind:       cfg.Core,
		ICachePort: &Port{Name: "system.cpu.icache_port"},
		DCachePort: &Port{Name: "system.cpu.dcache_port"},
	}

	switch cfg.Core {
	case SimpleInOrder:
		if cfg.IssueWidth > 1 || cfg.ThreadCount > 1 {
			b.log.WithFields(logrus.Fields{
				"issue_width":  cfg.IssueWidth,
				"thread_count": cfg.ThreadCount,
			}).Warn("in-order core ignores issue width and thread count")
		}
		cpu.Widths = Uniform(1)
		cpu.NumThreads = 1
		cpu.ROBEntries = inOrderWindow
		cpu.FetchQueueSize = inOrderFetchQueue

	case SuperscalarOOO:
		if cfg.IssueWidth < 1 {
			return nil, fmt.Errorf("%w: issue width must be positive, got %d",
				ErrInvalidConfiguration, cfg.IssueWidth)
		}
		if cfg.ThreadCount < 1 || cfg.ThreadCount > MaxThreads {
			return nil, fmt.Errorf("%w: thread count must be in [1, %d], got %d",
				ErrInvalidConfiguration, MaxThreads, cfg.ThreadCount)
		}
		cpu.Widths = Uniform(cfg.IssueWidth)
		cpu.NumThreads = cfg.ThreadCount
		cpu.ROBEntries = o3ROBEntries
		cpu.FetchQueueSize = o3FetchQueue

	default:
		return nil, fmt.Errorf("%w: unknown core kind %s", ErrInvalidConfiguration, cfg.Core)
	}

	return cpu, nil
}

package system

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pipesweep/timing/bpred"
	"github.com/sarchlab/pipesweep/timing/mem"
	"github.com/sarchlab/pipesweep/workload"
)

// ErrClaimed is returned when a description is instantiated a second time.
var ErrClaimed = errors.New("system description already instantiated")

// PortSide tells which side of a crossbar a vector port faces.
type PortSide int

// Port sides.
const (
	CPUSide PortSide = iota + 1
	MemSide
)

func (s PortSide) String() string {
	switch s {
	case CPUSide:
		return "cpu_side"
	case MemSide:
		return "mem_side"
	default:
		return "unknown"
	}
}

// Port is a single-connection port owned by a component.
type Port struct {
	Name string
	Peer *VectorPort
}

// Bound reports whether the port has been connected.
func (p *Port) Bound() bool {
	return p != nil && p.Peer != nil
}

// VectorPort accepts any number of connections.
type VectorPort struct {
	Name  string
	Side  PortSide
	Peers []*Port
}

// Connect binds p to v.
func (v *VectorPort) Connect(p *Port) {
	p.Peer = v
	v.Peers = append(v.Peers, p)
}

// VoltageDomain supplies a clock domain.
type VoltageDomain struct {
	Voltage float64
}

// ClockDomain is the clock shared by all components of the system.
type ClockDomain struct {
	Clock         sim.Freq
	VoltageDomain VoltageDomain
}

// XBar is the system crossbar.
type XBar struct {
	Name         string
	Config       mem.XBarConfig
	CPUSidePorts *VectorPort
	MemSidePorts *VectorPort
}

// DRAMInterface is the DRAM device behind a memory controller.
type DRAMInterface struct {
	Config mem.DRAMConfig
	Range  mem.AddrRange
}

// MemCtrl is a memory controller bound to one DRAM interface.
type MemCtrl struct {
	Name   string
	Config mem.CtrlConfig
	DRAM   *DRAMInterface
	Port   *Port
}

// StageWidths holds the per-stage widths of a core.
type StageWidths struct {
	Fetch   int
	Decode  int
	Issue   int
	Execute int
	Memory  int
	Commit  int
}

// Uniform returns widths equal to w at every stage.
func Uniform(w int) StageWidths {
	return StageWidths{Fetch: w, Decode: w, Issue: w, Execute: w, Memory: w, Commit: w}
}

// InterruptController is the per-core interrupt controller.
type InterruptController struct {
	Name string
}

// ThreadContext is one hardware thread bound to a workload process.
type ThreadContext struct {
	ID      int
	Process workload.Process
}

// CPU describes the core.
type CPU struct {
	Name string
	Kind CoreKind

	Widths     StageWidths
	NumThreads int

	ROBEntries     int
	FetchQueueSize int

	// BranchPredictor is nil for static not-taken prediction.
	BranchPredictor *bpred.Kind

	ICachePort *Port
	DCachePort *Port

	InterruptController *InterruptController

	Workload *workload.Process
	Threads  []ThreadContext
}

// Description is a fully wired system model.
type Description struct {
	ClockDomain ClockDomain
	MemMode     string
	MemRanges   []mem.AddrRange

	CPU     *CPU
	MemBus  *XBar
	MemCtrl *MemCtrl

	SystemPort *Port

	claimed bool
}

// Claim marks the description as instantiated. Only the first call succeeds.
func (d *Description) Claim() error {
	if d.claimed {
		return ErrClaimed
	}
	d.claimed = true
	return nil
}

// Claimed reports whether the description has been instantiated.
func (d *Description) Claimed() bool {
	return d.claimed
}

// Root wraps the system being simulated.
type Root struct {
	FullSystem bool
	System     *Description
}

// String summarizes the description for logs.
func (d *Description) String() string {
	if d.CPU == nil {
		return "system(no cpu)"
	}
	return fmt.Sprintf("system(%s threads=%d widths=%d mem=%s)",
		d.CPU.Kind, d.CPU.NumThreads, d.CPU.Widths.Issue, d.MemRanges)
}

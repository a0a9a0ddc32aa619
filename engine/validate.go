package engine

import (
	"github.com/sarchlab/pipesweep/system"
)

func validate(d *system.Description) error {
	if d.MemMode != system.MemMode {
		return instErr("memory mode %q is not supported", d.MemMode)
	}
	if d.ClockDomain.Clock <= 0 {
		return instErr("clock domain has no frequency")
	}
	if len(d.MemRanges) == 0 {
		return instErr("system has no memory ranges")
	}

	if err := validateMemory(d); err != nil {
		return err
	}

	return validateCPU(d)
}

func validateMemory(d *system.Description) error {
	bus := d.MemBus
	if bus == nil || bus.CPUSidePorts == nil || bus.MemSidePorts == nil {
		return instErr("system has no memory bus")
	}

	ctrl := d.MemCtrl
	if ctrl == nil {
		return instErr("system has no memory controller")
	}
	if ctrl.DRAM == nil {
		return instErr("memory controller %s has no DRAM interface", ctrl.Name)
	}
	if ctrl.DRAM.Range.Size == 0 {
		return instErr("DRAM interface of %s has an empty range", ctrl.Name)
	}

	covered := false
	for _, r := range d.MemRanges {
		if r.Contains(ctrl.DRAM.Range.Start, int(ctrl.DRAM.Range.Size)) {
			covered = true
		}
	}
	if !covered {
		return instErr("DRAM range %s is outside the system memory ranges", ctrl.DRAM.Range)
	}

	if err := checkPort(ctrl.Port, bus, system.MemSide); err != nil {
		return err
	}
	return checkPort(d.SystemPort, bus, system.CPUSide)
}

func validateCPU(d *system.Description) error {
	cpu := d.CPU
	if cpu == nil {
		return instErr("system has no cpu")
	}

	for _, p := range []*system.Port{cpu.ICachePort, cpu.DCachePort} {
		if err := checkPort(p, d.MemBus, system.CPUSide); err != nil {
			return err
		}
	}

	if cpu.InterruptController == nil {
		return instErr("%s has no interrupt controller", cpu.Name)
	}
	if cpu.Workload == nil || cpu.Workload.Executable == "" {
		return instErr("%s has no workload", cpu.Name)
	}
	if cpu.NumThreads < 1 || len(cpu.Threads) != cpu.NumThreads {
		return instErr("%s has %d thread contexts for %d threads",
			cpu.Name, len(cpu.Threads), cpu.NumThreads)
	}
	for i, tc := range cpu.Threads {
		if tc.ID != i || tc.Process.Executable != cpu.Workload.Executable {
			return instErr("thread context %d of %s is not bound to the workload", i, cpu.Name)
		}
	}

	return nil
}

func checkPort(p *system.Port, bus *system.XBar, side system.PortSide) error {
	if p == nil {
		return instErr("missing port")
	}
	if !p.Bound() {
		return instErr("port %s is not connected", p.Name)
	}

	want := bus.CPUSidePorts
	if side == system.MemSide {
		want = bus.MemSidePorts
	}
	if p.Peer != want {
		return instErr("port %s is connected to %s, want %s of %s",
			p.Name, p.Peer.Name, side, bus.Name)
	}

	return nil
}

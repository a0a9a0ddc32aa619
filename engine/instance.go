package engine

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/pipesweep/stats"
	"github.com/sarchlab/pipesweep/timing/core"
)

// ErrAlreadySimulated is returned when Simulate is called twice.
var ErrAlreadySimulated = errors.New("instance already simulated")

// Instance is a system ready to run on its own event engine.
type Instance struct {
	engine sim.Engine
	core   *core.Core
	log    logrus.FieldLogger

	simTicks *stats.Scalar
	simInsts *stats.Scalar

	ran bool
}

// CurTick returns the simulated time in picoseconds.
func (i *Instance) CurTick() uint64 {
	return i.core.Cycle() * i.core.PeriodPS()
}

// Simulate runs the event loop until the core stops and returns the exit
// event.
func (i *Instance) Simulate() (ExitEvent, error) {
	if i.ran {
		return ExitEvent{}, fmt.Errorf("%w: %w", ErrSimulation, ErrAlreadySimulated)
	}
	i.ran = true

	if err := i.core.Start(); err != nil {
		return ExitEvent{}, fmt.Errorf("%w: %w", ErrSimulation, err)
	}

	if err := i.engine.Run(); err != nil {
		return ExitEvent{}, fmt.Errorf("%w: %w", ErrSimulation, err)
	}

	tick := i.CurTick()
	i.simTicks.Add(tick)

	i.simInsts.Add(i.core.Committed())

	if err := i.core.Err(); err != nil {
		return ExitEvent{}, fmt.Errorf("%w at tick %d: %w", ErrSimulation, tick, err)
	}

	exit := i.core.Exit()
	if exit == nil {
		return ExitEvent{}, fmt.Errorf("%w: event queue drained at tick %d without an exit event",
			ErrSimulation, tick)
	}

	i.log.WithFields(logrus.Fields{
		"tick":  tick,
		"cause": exit.Cause,
	}).Debug("simulation exited")

	return ExitEvent{Cause: exit.Cause, Tick: tick}, nil
}

package mem

import "github.com/sarchlab/pipesweep/stats"

// CtrlConfig holds the static latencies of the memory controller.
type CtrlConfig struct {
	FrontendLatency uint64
	BackendLatency  uint64
}

// DefaultCtrlConfig returns a controller with 10ns static latency on each
// side.
func DefaultCtrlConfig() CtrlConfig {
	return CtrlConfig{
		FrontendLatency: 10 * ns,
		BackendLatency:  10 * ns,
	}
}

// Controller is a memory controller in front of one DRAM interface.
type Controller struct {
	config CtrlConfig
	dram   *DRAM

	readReqs     *stats.Scalar
	writeReqs    *stats.Scalar
	bytesRead    *stats.Scalar
	bytesWritten *stats.Scalar
}

// NewController creates a controller driving dram.
func NewController(name string, config CtrlConfig, dram *DRAM, reg *stats.Registry) *Controller {
	return &Controller{
		config: config,
		dram:   dram,

		readReqs:     reg.Scalar(name+".readReqs", "Number of read requests accepted"),
		writeReqs:    reg.Scalar(name+".writeReqs", "Number of write requests accepted"),
		bytesRead:    reg.Scalar(name+".bytesRead", "Total number of bytes read from memory"),
		bytesWritten: reg.Scalar(name+".bytesWritten", "Total number of bytes written to memory"),
	}
}

// Range returns the range of the attached DRAM.
func (c *Controller) Range() AddrRange {
	return c.dram.Range()
}

// DRAM returns the attached interface.
func (c *Controller) DRAM() *DRAM {
	return c.dram
}

// Access implements Responder.
func (c *Controller) Access(req Request, t uint64) uint64 {
	if req.Write {
		c.writeReqs.Inc()
		c.bytesWritten.Add(uint64(req.Size))
	} else {
		c.readReqs.Inc()
		c.bytesRead.Add(uint64(req.Size))
	}

	done := c.dram.Access(req.Addr, req.Size, req.Write, t+c.config.FrontendLatency)
	return done + c.config.BackendLatency
}

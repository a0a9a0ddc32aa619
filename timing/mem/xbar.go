package mem

import (
	"fmt"

	"github.com/sarchlab/pipesweep/stats"
)

// XBarConfig holds crossbar latencies in crossbar clock cycles.
type XBarConfig struct {
	FrontendLatency uint64
	ForwardLatency  uint64
	ResponseLatency uint64
	Width           int // bytes per cycle
}

// SystemXBarConfig returns the system crossbar preset.
func SystemXBarConfig() XBarConfig {
	return XBarConfig{
		FrontendLatency: 3,
		ForwardLatency:  4,
		ResponseLatency: 2,
		Width:           16,
	}
}

// XBar routes requests to the responder owning the address.
type XBar struct {
	config   XBarConfig
	periodPS uint64

	responders []Responder

	pktCount *stats.Scalar
	pktSize  *stats.Scalar
}

// NewXBar creates a crossbar clocked with the given period in picoseconds.
func NewXBar(name string, config XBarConfig, periodPS uint64, reg *stats.Registry) *XBar {
	return &XBar{
		config:   config,
		periodPS: periodPS,
		pktCount: reg.Scalar(name+".pktCount", "Packet count per connected requestor and responder"),
		pktSize:  reg.Scalar(name+".pktSize", "Cumulative packet size per connected requestor and responder"),
	}
}

// Attach adds a responder on the memory side.
func (x *XBar) Attach(r Responder) error {
	for _, other := range x.responders {
		o, n := other.Range(), r.Range()
		if n.Start < o.End() && o.Start < n.End() {
			return fmt.Errorf("range %s overlaps %s", n, o)
		}
	}

	x.responders = append(x.responders, r)
	return nil
}

// Responders returns the memory-side responders.
func (x *XBar) Responders() []Responder {
	return x.responders
}

// Access forwards req issued at t and returns the time the response is back
// at the requestor.
func (x *XBar) Access(req Request, t uint64) (uint64, error) {
	var target Responder
	for _, r := range x.responders {
		if r.Range().Contains(req.Addr, req.Size) {
			target = r
			break
		}
	}

	if target == nil {
		return 0, fmt.Errorf("%w: %s accessing 0x%x", ErrAddressOutOfRange, req.Source, req.Addr)
	}

	x.pktCount.Inc()
	x.pktSize.Add(uint64(req.Size))

	width := x.config.Width
	if width < 1 {
		width = 1
	}
	layers := uint64((req.Size + width - 1) / width)
	if layers < 1 {
		layers = 1
	}

	arrive := t + (x.config.FrontendLatency+x.config.ForwardLatency+layers-1)*x.periodPS
	done := target.Access(req, arrive)

	return done + x.config.ResponseLatency*x.periodPS, nil
}

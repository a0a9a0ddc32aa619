package mem

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/pipesweep/stats"
)

const ns = 1000

// DRAMConfig holds the timing parameters of a DRAM interface.
type DRAMConfig struct {
	Name string

	Banks         int
	RowBufferSize int // bytes per bank row
	BurstSize     int // bytes per burst

	TRCD   uint64 // activate to read/write
	TCL    uint64 // read to data
	TRP    uint64 // precharge
	TBURST uint64 // one burst on the data bus
	TWR    uint64 // write recovery
}

// DDR3Config returns the DDR3_1600_8x8 preset: eight x8 devices forming a
// 64-bit channel, 1KB page per device.
func DDR3Config() DRAMConfig {
	return DRAMConfig{
		Name:          "DDR3_1600_8x8",
		Banks:         8,
		RowBufferSize: 8 * 1024,
		BurstSize:     64,
		TRCD:          13750,
		TCL:           13750,
		TRP:           13750,
		TBURST:        5 * ns,
		TWR:           15 * ns,
	}
}

// DRAM models bank state with an open-row policy. Each bank keeps at most one
// row open; the row buffers are tracked as a one-way directory with one set
// per bank.
type DRAM struct {
	config DRAMConfig
	rng    AddrRange

	rows     *akitacache.DirectoryImpl
	bankFree []uint64

	rowHits      *stats.Scalar
	rowMisses    *stats.Scalar
	rowConflicts *stats.Scalar
	bursts       *stats.Scalar
}

// NewDRAM creates a DRAM interface serving rng. Counters are registered under
// the given name.
func NewDRAM(name string, config DRAMConfig, rng AddrRange, reg *stats.Registry) *DRAM {
	return &DRAM{
		config: config,
		rng:    rng,
		rows: akitacache.NewDirectory(
			config.Banks,
			1,
			config.RowBufferSize,
			akitacache.NewLRUVictimFinder(),
		),
		bankFree: make([]uint64, config.Banks),

		rowHits:      reg.Scalar(name+".rowHits", "Number of row buffer hits"),
		rowMisses:    reg.Scalar(name+".rowMisses", "Number of accesses to a closed bank"),
		rowConflicts: reg.Scalar(name+".rowConflicts", "Number of accesses that closed another row"),
		bursts:       reg.Scalar(name+".bursts", "Number of DRAM bursts"),
	}
}

// Config returns the timing parameters.
func (d *DRAM) Config() DRAMConfig {
	return d.config
}

// Range returns the address range served by this interface.
func (d *DRAM) Range() AddrRange {
	return d.rng
}

func (d *DRAM) rowAddr(addr uint64) uint64 {
	rowSize := uint64(d.config.RowBufferSize)
	return (addr - d.rng.Start) / rowSize * rowSize
}

// Bank returns the bank an address maps to. Consecutive rows are interleaved
// across banks.
func (d *DRAM) Bank(addr uint64) int {
	return int(d.rowAddr(addr) / uint64(d.config.RowBufferSize) % uint64(d.config.Banks))
}

// Access returns the time data for an access issued at t is delivered.
func (d *DRAM) Access(addr uint64, size int, write bool, t uint64) uint64 {
	row := d.rowAddr(addr)
	bank := d.Bank(addr)

	start := t
	if d.bankFree[bank] > start {
		start = d.bankFree[bank]
	}

	var lat uint64
	block := d.rows.Lookup(0, row)
	switch {
	case block != nil && block.IsValid:
		d.rowHits.Inc()
		lat = d.config.TCL
		d.rows.Visit(block)
	default:
		victim := d.rows.FindVictim(row)
		if victim.IsValid {
			d.rowConflicts.Inc()
			lat = d.config.TRP + d.config.TRCD + d.config.TCL
		} else {
			d.rowMisses.Inc()
			lat = d.config.TRCD + d.config.TCL
		}
		victim.Tag = row
		victim.IsValid = true
		d.rows.Visit(victim)
	}

	bursts := (size + d.config.BurstSize - 1) / d.config.BurstSize
	if bursts < 1 {
		bursts = 1
	}
	d.bursts.Add(uint64(bursts))

	done := start + lat + uint64(bursts)*d.config.TBURST

	d.bankFree[bank] = done
	if write {
		d.bankFree[bank] += d.config.TWR
	}

	return done
}

// Reset closes all rows and idles all banks.
func (d *DRAM) Reset() {
	d.rows.Reset()
	for i := range d.bankFree {
		d.bankFree[i] = 0
	}
}

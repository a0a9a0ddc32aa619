package core

import (
	"fmt"

	"github.com/sarchlab/pipesweep/emu"
	"github.com/sarchlab/pipesweep/timing/mem"
)

// uop is one dynamic instruction in flight.
type uop struct {
	seq uint64
	tid int
	ret emu.Retired

	// dispatchAt is the first cycle the instruction may leave the fetch
	// queue.
	dispatchAt uint64

	srcs []*uop

	mispredicted bool

	issued    bool
	doneCycle uint64
	committed bool
}

func (u *uop) doneBy(cycle uint64) bool {
	return u.issued && u.doneCycle <= cycle
}

// thread is the timing state of one hardware thread context.
type thread struct {
	id     int
	emu    *emu.Emulator
	offset uint64

	fetchQueue []*uop
	rob        []*uop
	lastWriter [32]*uop

	line      uint64
	lineValid bool
	lineReady uint64

	// blocker is a mispredicted branch or a syscall that fetch waits on.
	blocker *uop

	fetchDone bool
	exited    bool
	committed uint64
}

func (c *Core) fetchBlocked(t *thread) bool {
	b := t.blocker
	if b == nil {
		return false
	}

	if b.ret.Inst.IsSyscall() {
		if !b.committed {
			return true
		}
	} else if !b.issued || c.cycle < b.doneCycle+c.latency.MispredictPenalty() {
		return true
	}

	t.blocker = nil
	return false
}

func (c *Core) canFetch(t *thread) bool {
	return !t.fetchDone && !t.exited &&
		len(t.fetchQueue) < c.params.FetchQueueSize &&
		!c.fetchBlocked(t)
}

// fetch picks one thread per cycle, round robin, and fetches up to the fetch
// width from the current line.
func (c *Core) fetch() {
	n := len(c.threads)
	for i := 0; i < n; i++ {
		t := c.threads[(c.fetchRR+i)%n]
		if !c.canFetch(t) {
			continue
		}

		c.fetchRR = (t.id + 1) % n
		c.fetchFrom(t)
		return
	}

	c.counters.fetchStalls.Inc()
}

func (c *Core) fetchFrom(t *thread) {
	for fetched := 0; fetched < c.params.FetchWidth; fetched++ {
		if len(t.fetchQueue) >= c.params.FetchQueueSize {
			return
		}

		if !c.lineAvailable(t) {
			if fetched == 0 {
				c.counters.fetchStalls.Inc()
			}
			return
		}

		u, err := c.fetchOne(t)
		if err != nil {
			c.err = err
			return
		}

		if c.endsFetchGroup(t, u) {
			return
		}
	}
}

// lineAvailable requests the line holding the next pc if needed and reports
// whether it has arrived.
func (c *Core) lineAvailable(t *thread) bool {
	addr := t.emu.PC() + t.offset
	line := addr &^ (c.params.LineSize - 1)

	if t.lineValid && t.line == line {
		return c.cycle >= t.lineReady
	}

	done, err := c.instPort.Access(mem.Request{
		Source: c.path + ".icache_port",
		Addr:   line,
		Size:   int(c.params.LineSize),
	}, c.cycle*c.periodPS)
	if err != nil {
		c.err = fmt.Errorf("thread %d fetch at pc 0x%x: %w", t.id, t.emu.PC(), err)
		return false
	}

	t.line = line
	t.lineValid = true
	t.lineReady = c.toCycle(done)

	return false
}

func (c *Core) fetchOne(t *thread) (*uop, error) {
	ret, err := t.emu.Step()
	if err != nil {
		return nil, fmt.Errorf("thread %d: %w", t.id, err)
	}

	c.seq++
	u := &uop{
		seq:        c.seq,
		tid:        t.id,
		ret:        ret,
		dispatchAt: c.cycle + c.latency.FrontEndDepth(),
	}

	t.fetchQueue = append(t.fetchQueue, u)
	c.counters.fetchedInsts.Inc()

	if ret.Inst.IsCondBranch() {
		u.mispredicted = c.predict(t, u) != ret.Taken
	}

	return u, nil
}

func (c *Core) predict(t *thread, u *uop) bool {
	c.counters.bpLookups.Inc()
	c.counters.condPredicted.Inc()

	predicted := false
	if c.predictor != nil {
		predicted = c.predictor.Predict(t.id, u.ret.PC)
		c.predictor.Update(t.id, u.ret.PC, u.ret.Taken)
	}

	if predicted != u.ret.Taken {
		c.counters.condIncorrect.Inc()
	}

	return predicted
}

// endsFetchGroup reports whether fetch must stop after u for this cycle.
func (c *Core) endsFetchGroup(t *thread, u *uop) bool {
	inst := u.ret.Inst

	switch {
	case u.ret.Exited:
		t.fetchDone = true
		t.blocker = u
		return true
	case inst.IsSyscall():
		t.blocker = u
		return true
	case u.mispredicted:
		t.blocker = u
		return true
	case inst.IsBranch() && u.ret.Taken:
		// Correctly predicted taken branch: redirect at the next cycle.
		return true
	}

	return false
}

// dispatch moves fetched instructions into the window and records their
// producers.
func (c *Core) dispatch() {
	budget := c.params.DecodeWidth
	n := len(c.threads)

	for progress := true; progress && budget > 0; {
		progress = false
		for i := 0; i < n && budget > 0; i++ {
			t := c.threads[i]
			if len(t.fetchQueue) == 0 || len(c.window) >= c.params.WindowSize {
				continue
			}

			u := t.fetchQueue[0]
			if u.dispatchAt > c.cycle {
				continue
			}

			t.fetchQueue = t.fetchQueue[1:]
			c.rename(t, u)
			t.rob = append(t.rob, u)
			c.window = append(c.window, u)

			budget--
			progress = true
		}
	}
}

func (c *Core) rename(t *thread, u *uop) {
	for _, r := range u.ret.Inst.SrcRegs() {
		if p := t.lastWriter[r]; p != nil && !p.committed {
			u.srcs = append(u.srcs, p)
		}
	}

	if rd, ok := u.ret.Inst.DstReg(); ok {
		t.lastWriter[rd] = u
	}
}

func (c *Core) ready(u *uop) bool {
	for _, p := range u.srcs {
		if !p.doneBy(c.cycle) {
			return false
		}
	}
	return true
}

// issue selects ready instructions from the window, oldest first. An
// in-order core stops at the first instruction that cannot issue.
func (c *Core) issue() {
	width := c.params.IssueWidth
	if c.params.ExecuteWidth < width {
		width = c.params.ExecuteWidth
	}
	memBudget := c.params.MemoryWidth

	memBlocked := make([]bool, len(c.threads))
	issued := 0

	for _, u := range c.window {
		if issued >= width {
			return
		}
		if u.issued {
			continue
		}

		inst := u.ret.Inst
		ok := c.ready(u)

		if inst.IsMem() {
			ok = ok && memBudget > 0 && !memBlocked[u.tid]
			if !ok {
				memBlocked[u.tid] = true
			}
		}

		if inst.IsSyscall() {
			ok = ok && c.threads[u.tid].rob[0] == u
		}

		if !ok {
			if c.params.Kind == KindInOrder {
				return
			}
			continue
		}

		if err := c.execute(u); err != nil {
			c.err = err
			return
		}

		if inst.IsMem() {
			memBudget--
		}
		issued++
	}
}

func (c *Core) execute(u *uop) error {
	inst := u.ret.Inst
	lat := c.latency.GetLatency(inst)
	u.issued = true
	u.doneCycle = c.cycle + lat
	c.counters.issuedInsts.Inc()

	if !inst.IsMem() {
		return nil
	}

	t := c.threads[u.tid]
	req := mem.Request{
		Source: c.path + ".dcache_port",
		Addr:   u.ret.MemAddr + t.offset,
		Size:   inst.AccessSize(),
		Write:  inst.IsStore(),
	}

	sendAt := (c.cycle + c.latency.Config().AGULatency) * c.periodPS
	done, err := c.dataPort.Access(req, sendAt)
	if err != nil {
		return fmt.Errorf("thread %d %s at pc 0x%x: %w", u.tid, inst, u.ret.PC, err)
	}

	// Stores retire into the memory system; loads wait for the data.
	if inst.IsLoad() {
		u.doneCycle = c.toCycle(done)
	}

	return nil
}

// commit retires completed instructions in program order per thread,
// alternating between threads.
func (c *Core) commit() {
	budget := c.params.CommitWidth
	n := len(c.threads)
	start := c.commitRR

	for progress := true; progress && budget > 0; {
		progress = false
		for i := 0; i < n && budget > 0; i++ {
			t := c.threads[(start+i)%n]
			if len(t.rob) == 0 || !t.rob[0].doneBy(c.cycle) {
				continue
			}

			u := t.rob[0]
			t.rob = t.rob[1:]
			c.retire(t, u)

			budget--
			progress = true

			if c.exit != nil {
				return
			}
		}
	}

	c.commitRR = (start + 1) % n
}

func (c *Core) retire(t *thread, u *uop) {
	u.committed = true
	c.removeFromWindow(u)

	t.committed++
	c.counters.committedInsts.Inc()
	c.counters.perThread[t.id].Inc()

	inst := u.ret.Inst
	switch {
	case inst.IsLoad():
		c.counters.loads.Inc()
	case inst.IsStore():
		c.counters.stores.Inc()
	case inst.IsBranch():
		c.counters.branches.Inc()
	}

	if u.ret.Exited {
		t.exited = true
		if c.allExited() {
			c.exit = &Exit{Cause: CauseAllExited}
		}
		return
	}

	if c.params.MaxInstructions != 0 && t.committed >= c.params.MaxInstructions {
		c.exit = &Exit{Cause: CauseMaxInsts}
	}
}

func (c *Core) removeFromWindow(u *uop) {
	for i, w := range c.window {
		if w == u {
			c.window = append(c.window[:i], c.window[i+1:]...)
			return
		}
	}
}

func (c *Core) allExited() bool {
	for _, t := range c.threads {
		if !t.exited {
			return false
		}
	}
	return true
}

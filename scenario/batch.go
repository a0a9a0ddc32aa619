package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/pipesweep/orchestrator"
	"github.com/sarchlab/pipesweep/system"
)

// BatchConfig names the files a batch writes.
type BatchConfig struct {
	// Output receives banners and run reports.
	Output string
	// Stats, when set, receives the full counter dump of every run.
	Stats string
}

// RunBatch opens the output files, runs all scenarios against eng and closes
// the files on every path.
func RunBatch(cfg BatchConfig, scenarios []Scenario, eng orchestrator.Engine) (results []Result, err error) {
	out, err := os.Create(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to open output %s: %w", cfg.Output, err)
	}
	defer closeInto(out, &err)

	opts := []orchestrator.Option{}
	if cfg.Stats != "" {
		statsOut, serr := os.Create(cfg.Stats)
		if serr != nil {
			return nil, fmt.Errorf("failed to open stats output %s: %w", cfg.Stats, serr)
		}
		defer closeInto(statsOut, &err)
		opts = append(opts, orchestrator.WithStatsSink(statsOut))
	}

	return RunWith(out, scenarios, eng, opts...)
}

// RunWith runs scenarios with all reports written to out.
func RunWith(out io.Writer, scenarios []Scenario, eng orchestrator.Engine, opts ...orchestrator.Option) ([]Result, error) {
	orch := orchestrator.New(eng, out, opts...)
	runner := NewRunner(system.NewBuilder(), orch, out)
	return runner.RunAll(scenarios)
}

func closeInto(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil {
		*err = errors.Join(*err, fmt.Errorf("failed to close output: %w", cerr))
	}
}

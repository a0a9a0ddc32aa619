package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/pipesweep/engine"
	"github.com/sarchlab/pipesweep/scenario"
	"github.com/sarchlab/pipesweep/timing/latency"
)

type runOptions struct {
	output         string
	statsFile      string
	timingConfig   string
	scenarioFile   string
	maxInsts       uint64
	workloadStdout bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scenarios and write their reports to the output file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd.OutOrStdout(), opts)
		},
	}

	runCmd.Flags().StringVar(&opts.output, "output", "output.txt", "File receiving the banners and run reports")
	runCmd.Flags().StringVar(&opts.statsFile, "stats-file", "", "File receiving the full counter dump of every run")
	runCmd.Flags().StringVar(&opts.timingConfig, "timing-config", "", "YAML file with instruction timing parameters")
	runCmd.Flags().StringVar(&opts.scenarioFile, "scenarios", "", "YAML scenario list (default: the reference scenarios)")
	runCmd.Flags().Uint64Var(&opts.maxInsts, "max-insts", 0, "Stop a run when a thread commits this many instructions (0 = no limit)")
	runCmd.Flags().BoolVar(&opts.workloadStdout, "workload-stdout", false, "Forward the workload's output to stdout")

	return runCmd
}

func runScenarios(stdout io.Writer, opts *runOptions) error {
	scenarios, err := loadScenarios(opts.scenarioFile)
	if err != nil {
		return err
	}

	timing := latency.DefaultTimingConfig()
	if opts.timingConfig != "" {
		timing, err = latency.LoadConfig(opts.timingConfig)
		if err != nil {
			return err
		}
	}

	cfg := engine.Config{
		Timing:          timing,
		MaxInstructions: opts.maxInsts,
	}
	if opts.workloadStdout {
		cfg.WorkloadStdout = stdout
	}

	logrus.WithFields(logrus.Fields{
		"scenarios": len(scenarios),
		"output":    opts.output,
	}).Info("starting batch")

	_, err = scenario.RunBatch(scenario.BatchConfig{
		Output: opts.output,
		Stats:  opts.statsFile,
	}, scenarios, engine.New(cfg))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(stdout, "Simulation results have been written to %s\n", opts.output)
	return err
}

func loadScenarios(path string) ([]scenario.Scenario, error) {
	if path == "" {
		return scenario.ReferenceScenarios(), nil
	}
	return scenario.LoadFile(path)
}

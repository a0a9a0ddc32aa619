// Package cmd implements the pipesweep command line.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
}

// NewRootCmd creates the pipesweep command tree. Reports go to stdout and
// logs to stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "pipesweep",
		Short:         "Run processor microarchitecture scenarios against a fixed workload",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
			}
			logrus.SetLevel(level)
			logrus.SetOutput(stderr)
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(newRunCmd(), newScenariosCmd())

	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

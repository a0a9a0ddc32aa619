package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScenariosCmd() *cobra.Command {
	var scenarioFile string

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the scenarios a run would execute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := loadScenarios(scenarioFile)
			if err != nil {
				return err
			}

			for _, s := range scenarios {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", s.Name, s.Config); err != nil {
					return err
				}
			}
			return nil
		},
	}

	scenariosCmd.Flags().StringVar(&scenarioFile, "scenarios", "", "YAML scenario list (default: the reference scenarios)")

	return scenariosCmd
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/s3vkit"
	"github.com/hupe1980/s3vkit/config"
)

// hybridTopK is the default neighbor count of the hybrid demo.
const hybridTopK = 20

func newHybridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hybrid",
		Short: "Run a vector plus metadata filter query and always clean up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := newViper(cmd)
			v.SetDefault(config.KeyTopK, hybridTopK)
			return runScenario(cmd, v, func(*config.Config) s3vkit.Scenario {
				return s3vkit.HybridScenario()
			})
		},
	}
	addIndexFlags(cmd)
	return cmd
}

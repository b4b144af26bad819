package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/s3vkit"
)

func newSmokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Write two vectors, query them and optionally clean up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := newViper(cmd)
			return runScenario(cmd, v, s3vkit.SmokeScenario)
		},
	}
	addIndexFlags(cmd)
	cmd.Flags().String("filter", "", "metadata filter as JSON (env S3V_FILTER_JSON)")
	cmd.Flags().String("filter-kind", "", "shorthand for a kind equality filter (env S3V_FILTER_KIND)")
	cmd.Flags().Bool("cleanup", false, "delete written vectors afterwards (env S3V_CLEANUP)")
	return cmd
}

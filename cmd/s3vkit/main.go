// Package main implements the s3vkit command line interface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "s3vkit",
		Short:        "s3vkit provisions, exercises and cleans up Amazon S3 Vectors indexes",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text or json)")
	pf.String("region", "", "AWS region")
	pf.Duration("timeout", 0, "timeout per remote call")
	pf.Float64("max-rps", 0, "client-side request rate limit, 0 disables")

	rootCmd.AddCommand(newSmokeCmd(), newHybridCmd(), newCheckCmd())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of s3vkit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "s3vkit version %s\n", Version)
			return err
		},
	})

	return rootCmd
}

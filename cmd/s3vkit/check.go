package main

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"

	"github.com/hupe1980/s3vkit/config"
	"github.com/hupe1980/s3vkit/credcheck"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify AWS credentials and bucket access",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			v := newViper(cmd)
			cfg, err := config.ResolveCheck(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
			if err != nil {
				return fmt.Errorf("%w: load aws config: %w", config.ErrConfig, err)
			}

			ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			id, err := credcheck.NewFromConfig(awsCfg).Check(ctx, cfg.Bucket, cfg.Region)
			if err != nil {
				logger.ErrorContext(ctx, "credential check failed", "bucket", cfg.Bucket, "error", err)
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "STS OK")
			_, _ = fmt.Fprintf(out, "Account: %s\n", id.Account)
			_, _ = fmt.Fprintf(out, "Arn: %s\n", id.ARN)
			_, _ = fmt.Fprintln(out, "S3 OK")
			_, _ = fmt.Fprintf(out, "Bucket: %s\n", id.Bucket)
			_, _ = fmt.Fprintf(out, "Region: %s\n", cfg.Region)
			return nil
		},
	}
	cmd.Flags().String("bucket", "", "S3 bucket to check (env S3V_BUCKET)")
	return cmd
}

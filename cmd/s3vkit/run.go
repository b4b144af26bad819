package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hupe1980/s3vkit"
	"github.com/hupe1980/s3vkit/config"
	"github.com/hupe1980/s3vkit/vectorstore"
	"github.com/hupe1980/s3vkit/vectorstore/s3vectors"
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"bucket":         config.KeyBucket,
	"index":          config.KeyIndex,
	"dimension":      config.KeyDimension,
	"metric":         config.KeyMetric,
	"top-k":          config.KeyTopK,
	"filter":         config.KeyFilterJSON,
	"filter-kind":    config.KeyFilterKind,
	"min-similarity": config.KeyMinSimilarity,
	"cleanup":        config.KeyCleanup,
	"region":         config.KeyRegion,
	"timeout":        config.KeyTimeout,
	"max-rps":        config.KeyMaxRPS,
	"log-level":      config.KeyLogLevel,
	"log-format":     config.KeyLogFormat,
}

// bindFlags copies every explicitly set flag of cmd, including inherited
// ones, into v. Flags left at their zero default do not shadow the
// environment.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && f.Changed {
			v.Set(key, f.Value.String())
		}
	})
}

func addIndexFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("bucket", "", "vector bucket name (env S3V_BUCKET)")
	f.String("index", "", "vector index name (env S3V_INDEX)")
	f.Int("dimension", 0, "embedding dimension (env S3V_DIMENSION)")
	f.String("metric", "", "distance metric, cosine or euclidean (env S3V_METRIC)")
	f.IntP("top-k", "k", 0, "number of neighbors to return (env S3V_K)")
	f.String("min-similarity", "", "drop matches below this cosine similarity (env S3V_MIN_SIMILARITY)")
}

func newViper(cmd *cobra.Command) *viper.Viper {
	v := config.NewViper()
	bindFlags(cmd, v)
	return v
}

func newLogger(w io.Writer, level, format string) (*s3vkit.Logger, error) {
	if level == "" {
		level = "info"
	}
	l, err := s3vkit.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", config.ErrConfig, config.KeyLogLevel, err)
	}
	return s3vkit.NewFormatLogger(w, format, l), nil
}

func runScenario(cmd *cobra.Command, v *viper.Viper, scenario func(*config.Config) s3vkit.Scenario) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Resolve(v)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.LogLevel(), cfg.LogFormat())
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region()))
	if err != nil {
		return fmt.Errorf("%w: load aws config: %w", config.ErrConfig, err)
	}

	store := vectorstore.NewRateLimited(s3vectors.NewFromConfig(awsCfg), cfg.MaxRPS())
	client := s3vkit.New(store,
		s3vkit.WithLogger(logger),
		s3vkit.WithCallTimeout(cfg.Timeout()),
		s3vkit.WithCleanupTimeout(cfg.Timeout()),
	)

	report, err := s3vkit.NewWorkflow(client, cfg).Run(ctx, scenario(cfg))
	printReport(cmd.OutOrStdout(), report)
	return err
}

func printReport(w io.Writer, r *s3vkit.Report) {
	if r == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Scenario: %s\n", r.Scenario)
	_, _ = fmt.Fprintf(w, "Index:    %s (dimension=%d metric=%s)\n", r.Index, r.Index.Dimension, r.Index.Metric)
	_, _ = fmt.Fprintf(w, "Bucket:   %s\n", r.Bucket)
	_, _ = fmt.Fprintf(w, "Index:    %s\n", r.IndexState)
	if r.Filter != nil {
		_, _ = fmt.Fprintf(w, "Filter:   %s\n", r.Filter)
	}
	if len(r.Keys) > 0 {
		_, _ = fmt.Fprintf(w, "Keys:     %s\n", strings.Join(r.Keys, ", "))
	}
	if r.State >= s3vkit.StateQueried || len(r.Result.Matches) > 0 {
		_, _ = fmt.Fprintf(w, "Results:  %d\n", len(r.Result.Matches))
		for i, m := range r.Result.Matches {
			_, _ = fmt.Fprintf(w, "  %d. %s distance=%.6f metadata=%v\n", i+1, m.Key, m.Distance, map[string]any(m.Metadata))
		}
	}
	if r.CleanupErr != nil {
		_, _ = fmt.Fprintf(w, "Cleanup:  %v\n", r.CleanupErr)
	}
	_, _ = fmt.Fprintf(w, "State:    %s (%s)\n", r.State, r.Duration.Round(1e6))
}

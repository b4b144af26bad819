// Package s3vkit provisions vector buckets and indexes, writes and queries
// embeddings, and cleans up what it wrote.
//
// The package sits on top of a vectorstore.Store, usually the Amazon S3
// Vectors adapter in vectorstore/s3vectors, and adds idempotent
// provisioning, client-side validation, similarity thresholds and a
// cleanup guarantee.
//
// # Quick Start
//
//	cfg, _ := config.Resolve(config.NewViper())
//	awsCfg, _ := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region()))
//	store := vectorstore.NewRateLimited(s3vectors.NewFromConfig(awsCfg), cfg.MaxRPS())
//	client := s3vkit.New(store, s3vkit.WithCallTimeout(cfg.Timeout()))
//
//	report, err := s3vkit.NewWorkflow(client, cfg).Run(ctx, s3vkit.HybridScenario())
//
// # Provisioning
//
// EnsureBucket and EnsureIndex are idempotent. An existing resource yields
// AlreadyExisted; an existing index whose layout differs from the requested
// one fails with ErrIndexMismatch.
//
// # Cleanup
//
// RunScoped deletes a set of keys after a body function returns, fails or
// panics:
//
//	res, err := s3vkit.RunScoped(ctx, client, desc, keys, func(ctx context.Context) (model.QueryResult, error) {
//		if _, err := client.Put(ctx, desc, records); err != nil {
//			return model.QueryResult{}, err
//		}
//		return client.Query(ctx, desc, s3vkit.QueryRequest{Vector: q, TopK: 5})
//	})
//
// # Errors
//
// Every failure is a *StageError naming the stage (provision, write, query,
// cleanup) and matches the stage sentinel with errors.Is. ErrValidation
// marks input rejected before any request, ErrTransient marks timeouts and
// throttling, and ErrConfig marks configuration problems.
package s3vkit

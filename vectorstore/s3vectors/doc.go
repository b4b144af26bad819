// Package s3vectors provides an Amazon S3 Vectors implementation of the
// vectorstore.Store interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion("us-east-1"))
//	store := s3vectors.NewFromConfig(cfg)
//
// Service errors are mapped onto vectorstore.ErrAlreadyExists,
// vectorstore.ErrNotFound and vectorstore.ErrTransient by error code. The
// recognized codes can be replaced with WithConflictCodes, WithNotFoundCodes
// and WithTransientCodes as the service error taxonomy evolves.
package s3vectors

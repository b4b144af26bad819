package vectorstore

import (
	"context"
	"errors"

	"github.com/hupe1980/s3vkit/filter"
	"github.com/hupe1980/s3vkit/model"
)

var (
	// ErrAlreadyExists is returned by CreateBucket and CreateIndex when the
	// resource exists. Implementations should return an error that satisfies
	// errors.Is(err, ErrAlreadyExists).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned when a bucket or index does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransient marks failures that may succeed on retry: timeouts,
	// throttling and temporary unavailability.
	ErrTransient = errors.New("transient failure")
)

// QueryInput describes a top-K similarity query.
type QueryInput struct {
	Vector         []float32
	TopK           int
	Filter         *filter.Expression
	ReturnMetadata bool
	ReturnDistance bool
}

// Store is the remote vector storage contract consumed by the workflow.
//
// Each method is a single blocking request. Implementations must be safe for
// concurrent use.
type Store interface {
	// CreateBucket creates a vector bucket.
	CreateBucket(ctx context.Context, bucket string) error

	// CreateIndex creates a vector index inside an existing bucket.
	CreateIndex(ctx context.Context, desc model.IndexDescriptor) error

	// DescribeIndex returns the layout of an existing index.
	DescribeIndex(ctx context.Context, bucket, index string) (model.IndexDescriptor, error)

	// PutVectors inserts or overwrites records by key.
	PutVectors(ctx context.Context, bucket, index string, records []model.VectorRecord) error

	// QueryVectors returns up to TopK matches ordered by ascending distance.
	QueryVectors(ctx context.Context, bucket, index string, in QueryInput) (model.QueryResult, error)

	// DeleteVectors deletes records by key. Missing keys are not an error.
	DeleteVectors(ctx context.Context, bucket, index string, keys []string) error
}

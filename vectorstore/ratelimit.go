package vectorstore

import (
	"context"
	"fmt"
	"math"

	"github.com/hupe1980/s3vkit/model"
	"golang.org/x/time/rate"
)

// RateLimited wraps a Store and paces every request through a token bucket.
type RateLimited struct {
	inner   Store
	limiter *rate.Limiter
}

// NewRateLimited returns inner paced to rps requests per second.
// If rps <= 0, inner is returned unchanged.
func NewRateLimited(inner Store, rps float64) Store {
	if rps <= 0 {
		return inner
	}
	burst := int(math.Ceil(rps))
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// CreateBucket implements Store.
func (s *RateLimited) CreateBucket(ctx context.Context, bucket string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.inner.CreateBucket(ctx, bucket)
}

// CreateIndex implements Store.
func (s *RateLimited) CreateIndex(ctx context.Context, desc model.IndexDescriptor) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.inner.CreateIndex(ctx, desc)
}

// DescribeIndex implements Store.
func (s *RateLimited) DescribeIndex(ctx context.Context, bucket, index string) (model.IndexDescriptor, error) {
	if err := s.wait(ctx); err != nil {
		return model.IndexDescriptor{}, err
	}
	return s.inner.DescribeIndex(ctx, bucket, index)
}

// PutVectors implements Store.
func (s *RateLimited) PutVectors(ctx context.Context, bucket, index string, records []model.VectorRecord) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.inner.PutVectors(ctx, bucket, index, records)
}

// QueryVectors implements Store.
func (s *RateLimited) QueryVectors(ctx context.Context, bucket, index string, in QueryInput) (model.QueryResult, error) {
	if err := s.wait(ctx); err != nil {
		return model.QueryResult{}, err
	}
	return s.inner.QueryVectors(ctx, bucket, index, in)
}

// DeleteVectors implements Store.
func (s *RateLimited) DeleteVectors(ctx context.Context, bucket, index string, keys []string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.inner.DeleteVectors(ctx, bucket, index, keys)
}

// wait blocks for a token. A limiter that cannot grant one before the
// context ends reports a transient failure.
func (s *RateLimited) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %w", ErrTransient, err)
	}
	return nil
}

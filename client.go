package s3vkit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/hupe1980/s3vkit/filter"
	"github.com/hupe1980/s3vkit/model"
	"github.com/hupe1980/s3vkit/vectorstore"
)

// Outcome is the result of an idempotent provisioning step.
type Outcome int

const (
	// Failed means the resource could not be reconciled.
	Failed Outcome = iota
	// Created means the resource did not exist and was created.
	Created
	// AlreadyExisted means the resource existed and was left untouched.
	AlreadyExisted
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExisted:
		return "already_existed"
	default:
		return "failed"
	}
}

// QueryRequest describes a top-K query issued through a Client.
type QueryRequest struct {
	Vector []float32
	TopK   int
	Filter *filter.Expression

	// MinSimilarity drops matches with 1 - distance below the threshold.
	// It is applied only when the index metric is cosine and ignored otherwise.
	MinSimilarity *float64
}

// Client is the typed entry point for provisioning, writing, querying and
// deleting vectors. All methods are safe for concurrent use as long as the
// underlying Store is.
type Client struct {
	store vectorstore.Store
	opts  options
}

// New creates a Client over store.
func New(store vectorstore.Store, optFns ...Option) *Client {
	opts := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		cleanupTimeout:   DefaultCleanupTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{store: store, opts: opts}
}

// Logger returns the client's logger.
func (c *Client) Logger() *Logger { return c.opts.logger }

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.callTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.callTimeout)
	}
	return context.WithCancel(ctx)
}

// EnsureBucket creates the bucket if it does not exist.
// An existing bucket yields AlreadyExisted and no error.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) (Outcome, error) {
	if bucket == "" {
		return Failed, newStageError(StageProvision, "create vector bucket", validationErr("bucket name is empty"))
	}

	start := time.Now()
	cctx, cancel := c.callContext(ctx)
	err := c.store.CreateBucket(cctx, bucket)
	cancel()

	outcome, err := reconcile(err, "create vector bucket")
	c.opts.metricsCollector.RecordProvision("bucket", outcome, time.Since(start), err)
	c.opts.logger.LogProvision(ctx, "bucket", bucket, outcome, err)
	return outcome, err
}

// EnsureIndex creates the index if it does not exist. When the index already
// exists its layout is compared with desc and ErrIndexMismatch is returned
// if dimension, data type or metric differ. A failed layout lookup is logged
// and the index is still reported as AlreadyExisted.
func (c *Client) EnsureIndex(ctx context.Context, desc model.IndexDescriptor) (Outcome, error) {
	if err := validateDescriptor(desc); err != nil {
		return Failed, newStageError(StageProvision, "create index", err)
	}

	start := time.Now()
	cctx, cancel := c.callContext(ctx)
	err := c.store.CreateIndex(cctx, desc)
	cancel()

	outcome, err := reconcile(err, "create index")
	if outcome == AlreadyExisted {
		if lerr := c.checkLayout(ctx, desc); lerr != nil {
			if errors.Is(lerr, ErrIndexMismatch) {
				outcome, err = Failed, lerr
			} else {
				c.opts.logger.WarnContext(ctx, "index layout check skipped",
					"index", desc.String(),
					"error", lerr,
				)
			}
		}
	}
	c.opts.metricsCollector.RecordProvision("index", outcome, time.Since(start), err)
	c.opts.logger.LogProvision(ctx, "index", desc.String(), outcome, err)
	return outcome, err
}

func (c *Client) checkLayout(ctx context.Context, want model.IndexDescriptor) error {
	got, err := c.DescribeIndex(ctx, want.Bucket, want.Index)
	if err != nil {
		return err
	}
	if got.Dimension != want.Dimension ||
		(got.DataType != "" && got.DataType != want.DataType) ||
		(got.Metric != "" && got.Metric != want.Metric) {
		return newStageError(StageProvision, "describe index", fmt.Errorf(
			"%w: %s has dimension=%d data_type=%s metric=%s, want dimension=%d data_type=%s metric=%s",
			ErrIndexMismatch, want.String(),
			got.Dimension, got.DataType, got.Metric,
			want.Dimension, want.DataType, want.Metric,
		))
	}
	return nil
}

func reconcile(err error, op string) (Outcome, error) {
	switch {
	case err == nil:
		return Created, nil
	case errors.Is(err, vectorstore.ErrAlreadyExists):
		return AlreadyExisted, nil
	default:
		return Failed, newStageError(StageProvision, op, err)
	}
}

// DescribeIndex returns the layout of an existing index.
func (c *Client) DescribeIndex(ctx context.Context, bucket, index string) (model.IndexDescriptor, error) {
	cctx, cancel := c.callContext(ctx)
	defer cancel()

	desc, err := c.store.DescribeIndex(cctx, bucket, index)
	if err != nil {
		return model.IndexDescriptor{}, newStageError(StageProvision, "describe index", err)
	}
	return desc, nil
}

// ValidateRecords checks records against desc without sending anything.
// Keys must be non-empty and unique, and every embedding must have exactly
// desc.Dimension components.
func ValidateRecords(desc model.IndexDescriptor, records []model.VectorRecord) error {
	if len(records) == 0 {
		return validationErr("no records")
	}
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if r.Key == "" {
			return validationErr("record %d has an empty key", i)
		}
		if _, dup := seen[r.Key]; dup {
			return validationErr("duplicate key %q", r.Key)
		}
		seen[r.Key] = struct{}{}
		if len(r.Embedding) != desc.Dimension {
			return &ErrDimensionMismatch{Key: r.Key, Expected: desc.Dimension, Actual: len(r.Embedding)}
		}
	}
	return nil
}

// Put writes records in a single batch and returns their keys in input order.
// Validation failures are reported before any request is sent.
func (c *Client) Put(ctx context.Context, desc model.IndexDescriptor, records []model.VectorRecord) ([]string, error) {
	if err := ValidateRecords(desc, records); err != nil {
		return nil, newStageError(StageWrite, "put vectors", err)
	}

	start := time.Now()
	cctx, cancel := c.callContext(ctx)
	err := c.store.PutVectors(cctx, desc.Bucket, desc.Index, records)
	cancel()

	if err != nil {
		err = newStageError(StageWrite, "put vectors", err)
	}
	c.opts.metricsCollector.RecordPut(len(records), time.Since(start), err)
	c.opts.logger.WithIndex(desc).LogPut(ctx, len(records), err)
	if err != nil {
		return nil, err
	}

	return lo.Map(records, func(r model.VectorRecord, _ int) string { return r.Key }), nil
}

// Query runs a top-K similarity query, always requesting metadata and
// distances. The result never holds more than req.TopK matches. When
// req.MinSimilarity is set and the metric is cosine, matches below the
// threshold are dropped; the metric reported by the service takes precedence
// over desc.Metric.
func (c *Client) Query(ctx context.Context, desc model.IndexDescriptor, req QueryRequest) (model.QueryResult, error) {
	if err := validateQuery(desc, req); err != nil {
		return model.QueryResult{}, newStageError(StageQuery, "query vectors", err)
	}

	start := time.Now()
	cctx, cancel := c.callContext(ctx)
	res, err := c.store.QueryVectors(cctx, desc.Bucket, desc.Index, vectorstore.QueryInput{
		Vector:         req.Vector,
		TopK:           req.TopK,
		Filter:         req.Filter,
		ReturnMetadata: true,
		ReturnDistance: true,
	})
	cancel()

	log := c.opts.logger.WithIndex(desc)
	if err != nil {
		err = newStageError(StageQuery, "query vectors", err)
		c.opts.metricsCollector.RecordQuery(req.TopK, 0, time.Since(start), err)
		log.LogQuery(ctx, req.TopK, 0, 0, err)
		return model.QueryResult{}, err
	}

	returned := len(res.Matches)
	if returned > req.TopK {
		res.Matches = res.Matches[:req.TopK]
	}
	if res.Metric == "" {
		res.Metric = desc.Metric
	}
	if req.MinSimilarity != nil && res.Metric == model.MetricCosine {
		threshold := *req.MinSimilarity
		res.Matches = lo.Filter(res.Matches, func(m model.Match, _ int) bool {
			return m.Similarity() >= threshold
		})
	}

	c.opts.metricsCollector.RecordQuery(req.TopK, len(res.Matches), time.Since(start), nil)
	log.LogQuery(ctx, req.TopK, returned, len(res.Matches), nil)
	return res, nil
}

// VerifyFilter returns the keys of matches whose metadata does not satisfy
// expr. A nil expression accepts everything.
func VerifyFilter(expr *filter.Expression, res model.QueryResult) []string {
	bad := lo.Reject(res.Matches, func(m model.Match, _ int) bool {
		return expr.Matches(m.Metadata)
	})
	return lo.Map(bad, func(m model.Match, _ int) string { return m.Key })
}

// Delete removes keys from the index. An empty key list issues no request.
func (c *Client) Delete(ctx context.Context, desc model.IndexDescriptor, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	start := time.Now()
	cctx, cancel := c.callContext(ctx)
	err := c.store.DeleteVectors(cctx, desc.Bucket, desc.Index, keys)
	cancel()

	if err != nil {
		err = newStageError(StageCleanup, "delete vectors", err)
	}
	c.opts.metricsCollector.RecordDelete(len(keys), time.Since(start), err)
	c.opts.logger.WithIndex(desc).LogCleanup(ctx, len(keys), err)
	return err
}

func validateDescriptor(desc model.IndexDescriptor) error {
	switch {
	case desc.Bucket == "":
		return validationErr("bucket name is empty")
	case desc.Index == "":
		return validationErr("index name is empty")
	case desc.Dimension <= 0:
		return validationErr("dimension must be positive, got %d", desc.Dimension)
	case desc.Dimension > math.MaxInt32:
		return validationErr("dimension %d exceeds %d", desc.Dimension, math.MaxInt32)
	}
	if _, err := model.ParseDataType(string(desc.DataType)); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if _, err := model.ParseMetric(string(desc.Metric)); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

func validateQuery(desc model.IndexDescriptor, req QueryRequest) error {
	if req.TopK <= 0 {
		return validationErr("top k must be positive, got %d", req.TopK)
	}
	if req.TopK > math.MaxInt32 {
		return validationErr("top k %d exceeds %d", req.TopK, math.MaxInt32)
	}
	if len(req.Vector) != desc.Dimension {
		return &ErrDimensionMismatch{Expected: desc.Dimension, Actual: len(req.Vector)}
	}
	if req.Filter != nil {
		if err := req.Filter.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	if req.MinSimilarity != nil && (*req.MinSimilarity < 0 || *req.MinSimilarity > 1) {
		return validationErr("min similarity %v is outside [0,1]", *req.MinSimilarity)
	}
	return nil
}

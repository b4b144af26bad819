package s3vectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors/document"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors/types"
	"github.com/aws/smithy-go"
	smithydocument "github.com/aws/smithy-go/document"
	"github.com/hupe1980/s3vkit/model"
	"github.com/hupe1980/s3vkit/vectorstore"
)

// Client is the subset of the S3 Vectors API used by Store.
// *s3vectors.Client satisfies it.
type Client interface {
	CreateVectorBucket(ctx context.Context, params *s3vectors.CreateVectorBucketInput, optFns ...func(*s3vectors.Options)) (*s3vectors.CreateVectorBucketOutput, error)
	CreateIndex(ctx context.Context, params *s3vectors.CreateIndexInput, optFns ...func(*s3vectors.Options)) (*s3vectors.CreateIndexOutput, error)
	GetIndex(ctx context.Context, params *s3vectors.GetIndexInput, optFns ...func(*s3vectors.Options)) (*s3vectors.GetIndexOutput, error)
	PutVectors(ctx context.Context, params *s3vectors.PutVectorsInput, optFns ...func(*s3vectors.Options)) (*s3vectors.PutVectorsOutput, error)
	QueryVectors(ctx context.Context, params *s3vectors.QueryVectorsInput, optFns ...func(*s3vectors.Options)) (*s3vectors.QueryVectorsOutput, error)
	DeleteVectors(ctx context.Context, params *s3vectors.DeleteVectorsInput, optFns ...func(*s3vectors.Options)) (*s3vectors.DeleteVectorsOutput, error)
}

var (
	// DefaultConflictCodes are the error codes treated as "already exists"
	// by CreateBucket and CreateIndex. Compared case-insensitively.
	DefaultConflictCodes = []string{"ConflictException", "ResourceAlreadyExistsException", "AlreadyExists"}

	// DefaultNotFoundCodes are the error codes mapped to vectorstore.ErrNotFound.
	DefaultNotFoundCodes = []string{"NotFoundException", "ResourceNotFoundException", "NoSuchBucket"}

	// DefaultTransientCodes are the error codes mapped to vectorstore.ErrTransient.
	DefaultTransientCodes = []string{
		"TooManyRequestsException",
		"ThrottlingException",
		"ServiceUnavailableException",
		"InternalServerException",
		"RequestTimeout",
		"RequestTimeoutException",
	}
)

type options struct {
	conflictCodes  []string
	notFoundCodes  []string
	transientCodes []string
}

// Option configures a Store.
type Option func(*options)

// WithConflictCodes replaces the error codes recognized as "already exists".
func WithConflictCodes(codes ...string) Option {
	return func(o *options) {
		o.conflictCodes = codes
	}
}

// WithNotFoundCodes replaces the error codes recognized as "not found".
func WithNotFoundCodes(codes ...string) Option {
	return func(o *options) {
		o.notFoundCodes = codes
	}
}

// WithTransientCodes replaces the error codes recognized as transient.
func WithTransientCodes(codes ...string) Option {
	return func(o *options) {
		o.transientCodes = codes
	}
}

// Store implements vectorstore.Store for Amazon S3 Vectors.
type Store struct {
	client    Client
	conflict  codeSet
	notFound  codeSet
	transient codeSet
}

// NewStore creates a Store over an existing client.
func NewStore(client Client, optFns ...Option) *Store {
	o := options{
		conflictCodes:  DefaultConflictCodes,
		notFoundCodes:  DefaultNotFoundCodes,
		transientCodes: DefaultTransientCodes,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Store{
		client:    client,
		conflict:  newCodeSet(o.conflictCodes),
		notFound:  newCodeSet(o.notFoundCodes),
		transient: newCodeSet(o.transientCodes),
	}
}

// NewFromConfig creates a Store with a new S3 Vectors client built from cfg.
func NewFromConfig(cfg aws.Config, optFns ...Option) *Store {
	return NewStore(s3vectors.NewFromConfig(cfg), optFns...)
}

// CreateBucket implements vectorstore.Store.
func (s *Store) CreateBucket(ctx context.Context, bucket string) error {
	_, err := s.client.CreateVectorBucket(ctx, &s3vectors.CreateVectorBucketInput{
		VectorBucketName: aws.String(bucket),
	})
	return s.translate(err, true)
}

// CreateIndex implements vectorstore.Store.
func (s *Store) CreateIndex(ctx context.Context, desc model.IndexDescriptor) error {
	dim, err := toInt32("dimension", desc.Dimension)
	if err != nil {
		return err
	}
	_, err = s.client.CreateIndex(ctx, &s3vectors.CreateIndexInput{
		VectorBucketName: aws.String(desc.Bucket),
		IndexName:        aws.String(desc.Index),
		DataType:         types.DataType(desc.DataType),
		Dimension:        dim,
		DistanceMetric:   types.DistanceMetric(desc.Metric),
	})
	return s.translate(err, true)
}

// DescribeIndex implements vectorstore.Store.
func (s *Store) DescribeIndex(ctx context.Context, bucket, index string) (model.IndexDescriptor, error) {
	out, err := s.client.GetIndex(ctx, &s3vectors.GetIndexInput{
		VectorBucketName: aws.String(bucket),
		IndexName:        aws.String(index),
	})
	if err != nil {
		return model.IndexDescriptor{}, s.translate(err, false)
	}
	if out.Index == nil {
		return model.IndexDescriptor{}, fmt.Errorf("index %s/%s: empty GetIndex response", bucket, index)
	}

	desc := model.IndexDescriptor{
		Bucket:    bucket,
		Index:     index,
		Dimension: int(aws.ToInt32(out.Index.Dimension)),
		DataType:  model.DataType(out.Index.DataType),
		Metric:    model.Metric(out.Index.DistanceMetric),
	}
	if name := aws.ToString(out.Index.IndexName); name != "" {
		desc.Index = name
	}
	if name := aws.ToString(out.Index.VectorBucketName); name != "" {
		desc.Bucket = name
	}
	return desc, nil
}

// PutVectors implements vectorstore.Store.
func (s *Store) PutVectors(ctx context.Context, bucket, index string, records []model.VectorRecord) error {
	vectors := make([]types.PutInputVector, len(records))
	for i, r := range records {
		vectors[i] = types.PutInputVector{
			Key:  aws.String(r.Key),
			Data: &types.VectorDataMemberFloat32{Value: r.Embedding},
		}
		if len(r.Metadata) > 0 {
			vectors[i].Metadata = document.NewLazyDocument(map[string]any(r.Metadata))
		}
	}

	_, err := s.client.PutVectors(ctx, &s3vectors.PutVectorsInput{
		VectorBucketName: aws.String(bucket),
		IndexName:        aws.String(index),
		Vectors:          vectors,
	})
	return s.translate(err, false)
}

// QueryVectors implements vectorstore.Store.
func (s *Store) QueryVectors(ctx context.Context, bucket, index string, in vectorstore.QueryInput) (model.QueryResult, error) {
	topK, err := toInt32("top k", in.TopK)
	if err != nil {
		return model.QueryResult{}, err
	}
	params := &s3vectors.QueryVectorsInput{
		VectorBucketName: aws.String(bucket),
		IndexName:        aws.String(index),
		TopK:             topK,
		QueryVector:      &types.VectorDataMemberFloat32{Value: in.Vector},
		ReturnMetadata:   in.ReturnMetadata,
		ReturnDistance:   in.ReturnDistance,
	}
	if in.Filter != nil {
		params.Filter = document.NewLazyDocument(in.Filter.Document())
	}

	out, err := s.client.QueryVectors(ctx, params)
	if err != nil {
		return model.QueryResult{}, s.translate(err, false)
	}

	res := model.QueryResult{
		Metric:  model.Metric(out.DistanceMetric),
		Matches: make([]model.Match, 0, len(out.Vectors)),
	}
	for _, v := range out.Vectors {
		m := model.Match{
			Key:      aws.ToString(v.Key),
			Distance: aws.ToFloat32(v.Distance),
		}
		if v.Metadata != nil {
			md, err := decodeMetadata(v.Metadata)
			if err != nil {
				return model.QueryResult{}, fmt.Errorf("decode metadata of %q: %w", m.Key, err)
			}
			m.Metadata = md
		}
		res.Matches = append(res.Matches, m)
	}
	return res, nil
}

// DeleteVectors implements vectorstore.Store.
func (s *Store) DeleteVectors(ctx context.Context, bucket, index string, keys []string) error {
	_, err := s.client.DeleteVectors(ctx, &s3vectors.DeleteVectorsInput{
		VectorBucketName: aws.String(bucket),
		IndexName:        aws.String(index),
		Keys:             keys,
	})
	return s.translate(err, false)
}

// toInt32 guards the service's 32-bit integer fields.
func toInt32(name string, n int) (*int32, error) {
	if n < 0 || n > math.MaxInt32 {
		return nil, fmt.Errorf("%s %d out of int32 range", name, n)
	}
	return aws.Int32(int32(n)), nil
}

// translate maps service errors onto the vectorstore sentinels while keeping
// the original error in the chain. Conflict codes only count for creates.
func (s *Store) translate(err error, create bool) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case create && s.conflict.has(code):
			return fmt.Errorf("%w: %w", vectorstore.ErrAlreadyExists, err)
		case s.notFound.has(code):
			return fmt.Errorf("%w: %w", vectorstore.ErrNotFound, err)
		case s.transient.has(code):
			return fmt.Errorf("%w: %w", vectorstore.ErrTransient, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", vectorstore.ErrTransient, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", vectorstore.ErrTransient, err)
	}
	return err
}

// decodeMetadata unmarshals a metadata document into scalar Go values.
// Numbers arrive as smithy document numbers and are converted to float64.
func decodeMetadata(doc document.Interface) (model.Metadata, error) {
	var raw map[string]any
	if err := doc.UnmarshalSmithyDocument(&raw); err != nil {
		return nil, err
	}
	md := make(model.Metadata, len(raw))
	for k, v := range raw {
		md[k] = normalize(v)
	}
	return md, nil
}

func normalize(v any) any {
	switch n := v.(type) {
	case smithydocument.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case []any:
		out := make([]any, len(n))
		for i := range n {
			out[i] = normalize(n[i])
		}
		return out
	default:
		return v
	}
}

type codeSet map[string]struct{}

func newCodeSet(codes []string) codeSet {
	s := make(codeSet, len(codes))
	for _, c := range codes {
		s[strings.ToLower(c)] = struct{}{}
	}
	return s
}

func (s codeSet) has(code string) bool {
	_, ok := s[strings.ToLower(code)]
	return ok
}

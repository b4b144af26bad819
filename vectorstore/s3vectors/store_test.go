package s3vectors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors/types"
	"github.com/aws/smithy-go"
	smithydocument "github.com/aws/smithy-go/document"
	"github.com/hupe1980/s3vkit/filter"
	"github.com/hupe1980/s3vkit/model"
	"github.com/hupe1980/s3vkit/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var _ vectorstore.Store = (*Store)(nil)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code + " raised"}
}

func TestStore_CreateBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockClient := new(MockClient)
		store := NewStore(mockClient)

		mockClient.On("CreateVectorBucket", mock.Anything, mock.MatchedBy(func(input *s3vectors.CreateVectorBucketInput) bool {
			return *input.VectorBucketName == "vb"
		})).Return(&s3vectors.CreateVectorBucketOutput{}, nil).Once()

		assert.NoError(t, store.CreateBucket(ctx, "vb"))
		mockClient.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		mockClient := new(MockClient)
		store := NewStore(mockClient)

		cause := apiError("ConflictException")
		mockClient.On("CreateVectorBucket", mock.Anything, mock.Anything).Return(nil, cause).Once()

		err := store.CreateBucket(ctx, "vb")
		assert.ErrorIs(t, err, vectorstore.ErrAlreadyExists)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("ConflictCodeIsCaseInsensitive", func(t *testing.T) {
		mockClient := new(MockClient)
		store := NewStore(mockClient)

		mockClient.On("CreateVectorBucket", mock.Anything, mock.Anything).Return(nil, apiError("alreadyexists")).Once()

		assert.ErrorIs(t, store.CreateBucket(ctx, "vb"), vectorstore.ErrAlreadyExists)
	})

	t.Run("AccessDenied", func(t *testing.T) {
		mockClient := new(MockClient)
		store := NewStore(mockClient)

		mockClient.On("CreateVectorBucket", mock.Anything, mock.Anything).Return(nil, apiError("AccessDeniedException")).Once()

		err := store.CreateBucket(ctx, "vb")
		require.Error(t, err)
		assert.NotErrorIs(t, err, vectorstore.ErrAlreadyExists)
		assert.NotErrorIs(t, err, vectorstore.ErrTransient)
	})
}

func TestStore_CustomConflictCodes(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient, WithConflictCodes("BucketAlreadyOwnedByYou"))

	mockClient.On("CreateVectorBucket", mock.Anything, mock.Anything).Return(nil, apiError("BucketAlreadyOwnedByYou")).Once()
	mockClient.On("CreateIndex", mock.Anything, mock.Anything).Return(nil, apiError("ConflictException")).Once()

	ctx := context.Background()
	assert.ErrorIs(t, store.CreateBucket(ctx, "vb"), vectorstore.ErrAlreadyExists)
	assert.NotErrorIs(t, store.CreateIndex(ctx, model.IndexDescriptor{Bucket: "vb", Index: "i", Dimension: 3}), vectorstore.ErrAlreadyExists)
}

func TestStore_CreateIndex(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient)

	mockClient.On("CreateIndex", mock.Anything, mock.MatchedBy(func(input *s3vectors.CreateIndexInput) bool {
		return *input.VectorBucketName == "vb" &&
			*input.IndexName == "docs" &&
			*input.Dimension == 3 &&
			input.DataType == types.DataTypeFloat32 &&
			input.DistanceMetric == types.DistanceMetricCosine
	})).Return(&s3vectors.CreateIndexOutput{}, nil).Once()

	err := store.CreateIndex(context.Background(), model.IndexDescriptor{
		Bucket: "vb", Index: "docs", Dimension: 3, DataType: model.DataTypeFloat32, Metric: model.MetricCosine,
	})
	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestStore_DescribeIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mockClient := new(MockClient)
		store := NewStore(mockClient)

		mockClient.On("GetIndex", mock.Anything, mock.MatchedBy(func(input *s3vectors.GetIndexInput) bool {
			return *input.VectorBucketName == "vb" && *input.IndexName == "docs"
		})).Return(&s3vectors.GetIndexOutput{
			Index: &types.Index{
				VectorBucketName: aws.String("vb"),
				IndexName:        aws.String("docs"),
				Dimension:        aws.Int32(3),
				DataType:         types.DataTypeFloat32,
				DistanceMetric:   types.DistanceMetricEuclidean,
			},
		}, nil).Once()

		desc, err := store.DescribeIndex(ctx, "vb", "docs")
		require.NoError(t, err)
		assert.Equal(t, model.IndexDescriptor{
			Bucket: "vb", Index: "docs", Dimension: 3, DataType: model.DataTypeFloat32, Metric: model.MetricEuclidean,
		}, desc)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockClient := new(MockClient)
		store := NewStore(mockClient)

		mockClient.On("GetIndex", mock.Anything, mock.Anything).Return(nil, apiError("NotFoundException")).Once()

		_, err := store.DescribeIndex(ctx, "vb", "docs")
		assert.ErrorIs(t, err, vectorstore.ErrNotFound)
	})
}

func TestStore_PutVectors(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient)

	mockClient.On("PutVectors", mock.Anything, mock.MatchedBy(func(input *s3vectors.PutVectorsInput) bool {
		if *input.VectorBucketName != "vb" || *input.IndexName != "docs" || len(input.Vectors) != 2 {
			return false
		}
		data, ok := input.Vectors[0].Data.(*types.VectorDataMemberFloat32)
		return ok &&
			*input.Vectors[0].Key == "a" &&
			assert.ObjectsAreEqual([]float32{1, 2}, data.Value) &&
			input.Vectors[0].Metadata != nil &&
			input.Vectors[1].Metadata == nil
	})).Return(&s3vectors.PutVectorsOutput{}, nil).Once()

	err := store.PutVectors(context.Background(), "vb", "docs", []model.VectorRecord{
		{Key: "a", Embedding: []float32{1, 2}, Metadata: model.Metadata{"kind": "smoke"}},
		{Key: "b", Embedding: []float32{3, 4}},
	})
	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestStore_PutVectors_Throttled(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient)

	mockClient.On("PutVectors", mock.Anything, mock.Anything).Return(nil, apiError("TooManyRequestsException")).Once()

	err := store.PutVectors(context.Background(), "vb", "docs", []model.VectorRecord{{Key: "a", Embedding: []float32{1}}})
	assert.ErrorIs(t, err, vectorstore.ErrTransient)
}

func TestStore_QueryVectors(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient)

	f := filter.And(filter.Eq("category", "apples"), filter.In("origin", "NL", "DE"))

	mockClient.On("QueryVectors", mock.Anything, mock.MatchedBy(func(input *s3vectors.QueryVectorsInput) bool {
		q, ok := input.QueryVector.(*types.VectorDataMemberFloat32)
		return ok &&
			*input.VectorBucketName == "vb" &&
			*input.IndexName == "docs" &&
			*input.TopK == 3 &&
			assert.ObjectsAreEqual([]float32{0.5, 0.5}, q.Value) &&
			input.Filter != nil &&
			input.ReturnMetadata &&
			input.ReturnDistance
	})).Return(&s3vectors.QueryVectorsOutput{
		DistanceMetric: types.DistanceMetricCosine,
		Vectors: []types.QueryOutputVector{
			{Key: aws.String("a"), Distance: aws.Float32(0.1)},
			{Key: aws.String("b"), Distance: aws.Float32(0.4)},
		},
	}, nil).Once()

	res, err := store.QueryVectors(context.Background(), "vb", "docs", vectorstore.QueryInput{
		Vector:         []float32{0.5, 0.5},
		TopK:           3,
		Filter:         f,
		ReturnMetadata: true,
		ReturnDistance: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.MetricCosine, res.Metric)
	assert.Equal(t, []string{"a", "b"}, res.Keys())
	assert.InDelta(t, 0.1, res.Matches[0].Distance, 1e-6)
	assert.Nil(t, res.Matches[1].Metadata)
	mockClient.AssertExpectations(t)
}

func TestStore_RejectsValuesBeyondInt32(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient)

	err := store.CreateIndex(context.Background(), model.IndexDescriptor{
		Bucket: "vb", Index: "docs", Dimension: math.MaxInt32 + 1, DataType: model.DataTypeFloat32, Metric: model.MetricCosine,
	})
	assert.ErrorContains(t, err, "out of int32 range")

	_, err = store.QueryVectors(context.Background(), "vb", "docs", vectorstore.QueryInput{Vector: []float32{1}, TopK: math.MaxInt32 + 1})
	assert.ErrorContains(t, err, "out of int32 range")

	mockClient.AssertNotCalled(t, "CreateIndex", mock.Anything, mock.Anything)
	mockClient.AssertNotCalled(t, "QueryVectors", mock.Anything, mock.Anything)
}

func TestStore_QueryVectors_NoFilter(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient)

	mockClient.On("QueryVectors", mock.Anything, mock.MatchedBy(func(input *s3vectors.QueryVectorsInput) bool {
		return input.Filter == nil && !input.ReturnMetadata
	})).Return(&s3vectors.QueryVectorsOutput{}, nil).Once()

	res, err := store.QueryVectors(context.Background(), "vb", "docs", vectorstore.QueryInput{Vector: []float32{1}, TopK: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
}

func TestStore_DeleteVectors(t *testing.T) {
	mockClient := new(MockClient)
	store := NewStore(mockClient)

	mockClient.On("DeleteVectors", mock.Anything, mock.MatchedBy(func(input *s3vectors.DeleteVectorsInput) bool {
		return *input.VectorBucketName == "vb" && assert.ObjectsAreEqual([]string{"a", "b"}, input.Keys)
	})).Return(&s3vectors.DeleteVectorsOutput{}, nil).Once()

	assert.NoError(t, store.DeleteVectors(context.Background(), "vb", "docs", []string{"a", "b"}))
	mockClient.AssertExpectations(t)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestStore_Translate(t *testing.T) {
	store := NewStore(new(MockClient))

	assert.NoError(t, store.translate(nil, true))

	assert.ErrorIs(t, store.translate(context.DeadlineExceeded, false), vectorstore.ErrTransient)
	assert.ErrorIs(t, store.translate(fmt.Errorf("send: %w", timeoutErr{}), false), vectorstore.ErrTransient)
	assert.ErrorIs(t, store.translate(apiError("ServiceUnavailableException"), false), vectorstore.ErrTransient)
	assert.ErrorIs(t, store.translate(apiError("ResourceNotFoundException"), true), vectorstore.ErrNotFound)
	assert.NotErrorIs(t, store.translate(apiError("ConflictException"), false), vectorstore.ErrAlreadyExists)

	plain := errors.New("plain")
	assert.Equal(t, plain, store.translate(plain, false))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 3.5, normalize(smithydocument.Number("3.5")))
	assert.Equal(t, []any{1.0, "x"}, normalize([]any{smithydocument.Number("1"), "x"}))
	assert.Equal(t, "s", normalize("s"))
	assert.Equal(t, true, normalize(true))
}

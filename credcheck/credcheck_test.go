package credcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSTS struct {
	mock.Mock
}

func (m *mockSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sts.GetCallerIdentityOutput), args.Error(1)
}

type mockS3 struct {
	mock.Mock
	region string
}

func (m *mockS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	var o s3.Options
	for _, fn := range optFns {
		fn(&o)
	}
	m.region = o.Region

	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadBucketOutput), args.Error(1)
}

func TestCheck_Success(t *testing.T) {
	stsClient := new(mockSTS)
	s3Client := new(mockS3)

	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(&sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/dev"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}, nil)
	s3Client.On("HeadBucket", mock.Anything, mock.MatchedBy(func(in *s3.HeadBucketInput) bool {
		return aws.ToString(in.Bucket) == "data"
	})).Return(&s3.HeadBucketOutput{BucketRegion: aws.String("eu-central-1")}, nil)

	id, err := New(stsClient, s3Client).Check(context.Background(), "data", "eu-central-1")
	require.NoError(t, err)
	assert.Equal(t, &Identity{
		Account:      "123456789012",
		ARN:          "arn:aws:iam::123456789012:user/dev",
		UserID:       "AIDAEXAMPLE",
		Bucket:       "data",
		BucketRegion: "eu-central-1",
	}, id)
	assert.Equal(t, "eu-central-1", s3Client.region)

	stsClient.AssertExpectations(t)
	s3Client.AssertExpectations(t)
}

func TestCheck_NoRegionOverride(t *testing.T) {
	stsClient := new(mockSTS)
	s3Client := new(mockS3)
	stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(&sts.GetCallerIdentityOutput{}, nil)
	s3Client.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)

	_, err := New(stsClient, s3Client).Check(context.Background(), "data", "")
	require.NoError(t, err)
	assert.Empty(t, s3Client.region)
}

func TestCheck_Failures(t *testing.T) {
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not allowed"}
	expired := &smithy.GenericAPIError{Code: "ExpiredToken", Message: "token expired"}

	tests := []struct {
		name     string
		stsErr   error
		s3Err    error
		contains []string
	}{
		{"sts only", expired, nil, []string{"sts:GetCallerIdentity (ExpiredToken)"}},
		{"s3 only", nil, denied, []string{"s3:HeadBucket (AccessDenied)"}},
		{"both", expired, denied, []string{"sts:GetCallerIdentity (ExpiredToken)", "s3:HeadBucket (AccessDenied)"}},
		{"transport", errors.New("dial tcp: no route"), nil, []string{"sts:GetCallerIdentity: dial tcp: no route"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stsClient := new(mockSTS)
			s3Client := new(mockS3)
			if tt.stsErr != nil {
				stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(nil, tt.stsErr)
			} else {
				stsClient.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(&sts.GetCallerIdentityOutput{}, nil)
			}
			if tt.s3Err != nil {
				s3Client.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, tt.s3Err)
			} else {
				s3Client.On("HeadBucket", mock.Anything, mock.Anything).Return(&s3.HeadBucketOutput{}, nil)
			}

			id, err := New(stsClient, s3Client).Check(context.Background(), "data", "")
			require.Error(t, err)
			assert.Nil(t, id)
			assert.ErrorIs(t, err, ErrCheck)
			for _, s := range tt.contains {
				assert.Contains(t, err.Error(), s)
			}
			if tt.stsErr != nil {
				assert.ErrorIs(t, err, tt.stsErr)
			}
			if tt.s3Err != nil {
				assert.ErrorIs(t, err, tt.s3Err)
			}
		})
	}
}

func TestCheck_EmptyBucket(t *testing.T) {
	_, err := New(new(mockSTS), new(mockS3)).Check(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrCheck)
}

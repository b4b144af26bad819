package credcheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"
)

// ErrCheck is returned when either identity call fails.
var ErrCheck = errors.New("credential check failed")

// STSClient is the subset of the STS API used by Checker.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// S3Client is the subset of the S3 API used by Checker.
type S3Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Identity is the resolved caller and bucket information.
type Identity struct {
	Account      string
	ARN          string
	UserID       string
	Bucket       string
	BucketRegion string
}

// Checker runs the identity and bucket checks.
type Checker struct {
	sts STSClient
	s3  S3Client
}

// New creates a Checker from explicit clients.
func New(stsClient STSClient, s3Client S3Client) *Checker {
	return &Checker{sts: stsClient, s3: s3Client}
}

// NewFromConfig creates a Checker from an AWS config.
func NewFromConfig(cfg aws.Config) *Checker {
	return New(sts.NewFromConfig(cfg), s3.NewFromConfig(cfg))
}

// Check calls GetCallerIdentity and HeadBucket concurrently. A non-empty
// region overrides the S3 client region for HeadBucket. When both calls
// fail the returned error carries both causes.
func (c *Checker) Check(ctx context.Context, bucket, region string) (*Identity, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket name is empty", ErrCheck)
	}

	var (
		id            = &Identity{Bucket: bucket}
		stsErr, s3Err error
		g             errgroup.Group
	)

	g.Go(func() error {
		out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			stsErr = callErr("sts:GetCallerIdentity", err)
			return stsErr
		}
		id.Account = aws.ToString(out.Account)
		id.ARN = aws.ToString(out.Arn)
		id.UserID = aws.ToString(out.UserId)
		return nil
	})

	g.Go(func() error {
		var optFns []func(*s3.Options)
		if region != "" {
			optFns = append(optFns, func(o *s3.Options) { o.Region = region })
		}
		out, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}, optFns...)
		if err != nil {
			s3Err = callErr("s3:HeadBucket", err)
			return s3Err
		}
		id.BucketRegion = aws.ToString(out.BucketRegion)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheck, errors.Join(stsErr, s3Err))
	}
	return id, nil
}

// callErr names the failing call and, for service errors, the error code.
func callErr(call string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s (%s): %w", call, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("%s: %w", call, err)
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-synapse/pkg/graph"
)

// ObjectGetter is the part of *s3.Client the source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Params configures an S3 source. AccessKey and SecretKey are optional;
// without them the default AWS credential chain is used.
type S3Params struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Source reads a snapshot object. Keys ending in ".sz" are snappy-compressed.
type S3Source struct {
	bucket string
	key    string
	client ObjectGetter
}

// NewS3Source builds an S3 client from params.
func NewS3Source(ctx context.Context, params S3Params) (*S3Source, error) {
	if params.Bucket == "" || params.Key == "" {
		return nil, errors.New("source: s3 bucket and key are required")
	}

	opts := []func(*config.LoadOptions) error{}
	if params.Region != "" {
		opts = append(opts, config.WithRegion(params.Region))
	}
	if params.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(params.Endpoint))
	}
	if params.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(params.AccessKey, params.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// MinIO and friends need path-style addressing.
		o.UsePathStyle = params.Endpoint != ""
	})
	return NewS3SourceWithClient(params.Bucket, params.Key, client), nil
}

// NewS3SourceWithClient reuses an existing client.
func NewS3SourceWithClient(bucket, key string, client ObjectGetter) *S3Source {
	return &S3Source{bucket: bucket, key: key, client: client}
}

// Load fetches and decodes the object.
func (s *S3Source) Load(ctx context.Context) (graph.Dataset, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return graph.Dataset{}, fmt.Errorf("failed to get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()
	return Decode(io.Reader(out.Body), IsCompressed(s.key))
}

// Close is a no-op.
func (s *S3Source) Close() error { return nil }

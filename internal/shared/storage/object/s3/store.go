package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Sergey0107/verification-products/internal/shared/storage/object"
)

// DefaultPresignTTL is used when Options.PresignTTL is zero.
const DefaultPresignTTL = 15 * time.Minute

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Options configures a Resolver.
type Options struct {
	Region     string
	Endpoint   string
	Bucket     string
	PresignTTL time.Duration
}

// Resolver builds download URLs for objects in one bucket.
type Resolver struct {
	presign  presigner
	endpoint string
	bucket   string
	ttl      time.Duration
}

// New creates a Resolver that presigns GET requests with the default AWS credential chain.
// A custom Endpoint (MinIO, LocalStack) switches the client to path-style addressing.
func New(ctx context.Context, opts Options) (*Resolver, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	r := NewPublic(endpoint, opts.Bucket, opts.PresignTTL)
	r.presign = s3.NewPresignClient(client)
	return r, nil
}

// NewPublic creates a Resolver that builds plain endpoint/bucket/key URLs without signing.
func NewPublic(endpoint, bucket string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	return &Resolver{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		bucket:   strings.TrimSpace(bucket),
		ttl:      ttl,
	}
}

// FileURL returns ref.StorageURL when set, otherwise a URL for ref.StoragePath in the bucket.
func (r *Resolver) FileURL(ctx context.Context, ref object.FileRef) (string, error) {
	if u := strings.TrimSpace(ref.StorageURL); u != "" {
		return u, nil
	}
	key := strings.TrimLeft(strings.TrimSpace(ref.StoragePath), "/")
	if key == "" {
		return "", fmt.Errorf("%w for file %s", object.ErrMissingPath, ref.FileID)
	}
	if r.bucket == "" {
		return "", object.ErrMissingBucket
	}

	if r.presign == nil {
		return publicURL(r.endpoint, r.bucket, key), nil
	}

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign bucket=%s key=%s: %w", r.bucket, key, err)
	}
	return req.URL, nil
}

func publicURL(endpoint, bucket, key string) string {
	if endpoint == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
	}
	return endpoint + "/" + bucket + "/" + key
}

var _ object.URLResolver = (*Resolver)(nil)

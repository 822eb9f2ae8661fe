package reveal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const defaultPresignExpiry = 15 * time.Minute

// MediaSource resolves the URL of the reveal video.
type MediaSource interface {
	URL(ctx context.Context) (string, error)
}

// StaticMedia serves a fixed URL.
type StaticMedia string

func (m StaticMedia) URL(context.Context) (string, error) {
	if m == "" {
		return "", errors.New("reveal video url is not configured")
	}
	return string(m), nil
}

// S3Options locate the reveal video in an S3-compatible bucket.
type S3Options struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// Expires bounds the lifetime of each presigned URL.
	Expires time.Duration
}

// S3Media hands out short-lived presigned GET URLs for one object.
type S3Media struct {
	bucket  string
	key     string
	expires time.Duration
	presign *s3.PresignClient
}

// NewS3Media builds a presigning client from opts. Static credentials are
// used when AccessKey is set; otherwise the default AWS chain applies.
// A custom Endpoint (MinIO and friends) switches to path-style addressing.
func NewS3Media(ctx context.Context, opts S3Options) (*S3Media, error) {
	if opts.Bucket == "" || opts.Key == "" {
		return nil, errors.New("s3 media: bucket and key are required")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	expires := opts.Expires
	if expires <= 0 {
		expires = defaultPresignExpiry
	}
	return &S3Media{
		bucket:  opts.Bucket,
		key:     opts.Key,
		expires: expires,
		presign: s3.NewPresignClient(client),
	}, nil
}

// URL presigns a GET for the configured object.
func (m *S3Media) URL(ctx context.Context) (string, error) {
	req, err := presignGetObject(m.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key),
	}, s3.WithPresignExpires(m.expires))
	if err != nil {
		return "", fmt.Errorf("presign reveal video: %w", err)
	}
	return req.URL, nil
}

package reveal

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// stubAWSConfig replaces the default config loader with one that only
// applies the given options, so tests never read the environment.
func stubAWSConfig(t *testing.T, check func(awsconfig.LoadOptions)) {
	t.Helper()
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		if check != nil {
			check(lo)
		}
		return aws.Config{Region: lo.Region, Credentials: lo.Credentials}, nil
	}
}

func TestStaticMedia(t *testing.T) {
	got, err := StaticMedia("/static/nilavanti.mp4").URL(context.Background())
	if err != nil || got != "/static/nilavanti.mp4" {
		t.Fatalf("URL() = %q, %v", got, err)
	}
	if _, err := StaticMedia("").URL(context.Background()); err == nil {
		t.Fatal("expected error for empty static url")
	}
}

func TestS3Media_PresignsWithEndpoint(t *testing.T) {
	stubAWSConfig(t, func(lo awsconfig.LoadOptions) {
		if lo.Region != "us-east-1" {
			t.Errorf("region not applied: %q", lo.Region)
		}
		if lo.Credentials == nil {
			t.Error("static credentials not applied")
		}
	})

	m, err := NewS3Media(context.Background(), S3Options{
		Bucket:    "media",
		Key:       "reveal.mp4",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Expires:   time.Minute,
	})
	if err != nil {
		t.Fatalf("NewS3Media: %v", err)
	}

	raw, err := m.URL(context.Background())
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if u.Host != "127.0.0.1:9000" || u.Path != "/media/reveal.mp4" {
		t.Errorf("presigned url = %s; want path-style url on the custom endpoint", raw)
	}
	if u.Query().Get("X-Amz-Signature") == "" || u.Query().Get("X-Amz-Expires") != "60" {
		t.Errorf("presigned url missing signature or expiry: %s", raw)
	}
}

func TestNewS3Media_Errors(t *testing.T) {
	if _, err := NewS3Media(context.Background(), S3Options{Key: "k"}); err == nil {
		t.Error("expected error without bucket")
	}

	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err := NewS3Media(context.Background(), S3Options{Bucket: "b", Key: "k"})
	if err == nil || !strings.Contains(err.Error(), "load-fail") {
		t.Errorf("NewS3Media err = %v; want load-fail", err)
	}
}

func TestS3Media_PresignError(t *testing.T) {
	stubAWSConfig(t, nil)
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })
	presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	}

	m, err := NewS3Media(context.Background(), S3Options{Bucket: "b", Key: "k", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("NewS3Media: %v", err)
	}
	if _, err := m.URL(context.Background()); err == nil || !strings.Contains(err.Error(), "presign-fail") {
		t.Errorf("URL err = %v; want presign-fail", err)
	}
}

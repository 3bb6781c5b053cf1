package deploy

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ifamed/markup-boilerplate/internal/config"
	"github.com/ifamed/markup-boilerplate/internal/foundation/errors"
)

// S3Bucket is a Bucket backed by an S3-compatible service.
type S3Bucket struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

// NewS3Bucket validates cfg and builds the client. No request is made until the
// first upload.
func NewS3Bucket(cfg config.DeployConfig) (*S3Bucket, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.ConfigError("deploy endpoint is required").WithContext("field", "deploy.endpoint").Build()
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, errors.ConfigError("deploy access key and secret key are required").
			WithContext("field", "deploy.access_key").Build()
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.ConfigError("deploy bucket is required").WithContext("field", "deploy.bucket").Build()
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "init s3 client").
			WithContext("endpoint", endpoint).Build()
	}
	return &S3Bucket{client: client, bucket: bucket, region: region}, nil
}

// Name returns the bucket name.
func (s *S3Bucket) Name() string { return s.bucket }

// Ensure creates the bucket on first use when it does not exist.
func (s *S3Bucket) Ensure(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = classify(err, "check bucket")
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			s.initErr = classify(err, "create bucket")
		}
	})
	return s.initErr
}

// Put uploads one object.
func (s *S3Bucket) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return classify(err, "put object")
	}
	return nil
}

// List returns every key under prefix, sorted.
func (s *S3Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, classify(obj.Err, "list objects")
		}
		if obj.Key != "" {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Remove deletes one object.
func (s *S3Bucket) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify(err, "remove object")
	}
	return nil
}

// classify marks credential and permission failures as configuration errors so
// the retry policy gives up on them immediately.
func classify(err error, msg string) error {
	switch minio.ToErrorResponse(err).Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "InvalidBucketName":
		return errors.WrapError(err, errors.CategoryConfig, msg).Fatal().Build()
	}
	return errors.WrapError(err, errors.CategoryNetwork, msg).Retryable().Build()
}

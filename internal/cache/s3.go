package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"archive-viewer/internal/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures NewS3.
type S3Config struct {
	Bucket string
	// Prefix is prepended to every object key, e.g. "covers/".
	Prefix string
	Region string
	// Endpoint selects an S3-compatible service (MinIO, Localstack) and
	// switches to path-style addressing.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Blobs is a BlobStore on an S3 bucket.
type S3Blobs struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 builds a client from cfg and the default credential chain and checks
// that the bucket is reachable. The bucket must already exist.
func NewS3(ctx context.Context, cfg S3Config) (*S3Blobs, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	if cfg.Region != "" {
		configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	logging.Info("Cover blob store opened (s3 bucket %s, prefix %q)", cfg.Bucket, cfg.Prefix)
	return NewS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3WithClient wraps an existing client without contacting S3.
func NewS3WithClient(client *s3.Client, bucket, prefix string) *S3Blobs {
	return &S3Blobs{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Blobs) key(id string) string {
	return s.prefix + id
}

// Upload implements BlobStore.
func (s *S3Blobs) Upload(ctx context.Context, id string, data []byte) (err error) {
	defer func(start time.Time) { observe("s3", "upload", start, err) }(time.Now())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", id, err)
	}
	return nil
}

// Download implements BlobStore.
func (s *S3Blobs) Download(ctx context.Context, id string) (data []byte, err error) {
	defer func(start time.Time) {
		if errors.Is(err, ErrNotFound) {
			observe("s3", "download", start, nil)
			return
		}
		observe("s3", "download", start, err)
	}(time.Now())

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download %s: %w", id, err)
	}
	defer func() {
		if err := out.Body.Close(); err != nil {
			logging.Warn("Failed to close S3 body for %s: %v", id, err)
		}
	}()

	data, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}
	return data, nil
}

// Delete implements BlobStore.
func (s *S3Blobs) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("s3", "delete", start, err) }(time.Now())

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

// Close implements BlobStore. The S3 client holds no resources to release.
func (s *S3Blobs) Close() error {
	return nil
}

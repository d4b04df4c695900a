// Package storage archives the raw Koinor exports in object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	importapp "github.com/notaria/backoffice/internal/application/import"
	infraconfig "github.com/notaria/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure S3ExportArchive implements ExportArchive
var _ importapp.ExportArchive = (*S3ExportArchive)(nil)

// s3API is the subset of the S3 client the archive uses
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3ExportArchive stores every imported export under a content-addressed key.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, R2, etc.)
type S3ExportArchive struct {
	client s3API
	bucket string
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// S3ExportArchiveOption is a functional option for configuring S3ExportArchive
type S3ExportArchiveOption func(*S3ExportArchive)

// WithLogger sets a custom logger for S3ExportArchive
func WithLogger(logger *zap.Logger) S3ExportArchiveOption {
	return func(s *S3ExportArchive) {
		s.logger = logger
	}
}

// WithClock overrides the time source used to date archive keys
func WithClock(now func() time.Time) S3ExportArchiveOption {
	return func(s *S3ExportArchive) {
		s.now = now
	}
}

// NewS3ExportArchive creates an archive from configuration. Without static
// credentials the default AWS credential chain is used.
func NewS3ExportArchive(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3ExportArchiveOption) (*S3ExportArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("storage access key id and secret access key must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3ExportArchive(client, cfg.Bucket, cfg.Prefix, opts...), nil
}

func newS3ExportArchive(client s3API, bucket, prefix string, opts ...S3ExportArchiveOption) *S3ExportArchive {
	archive := &S3ExportArchive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3ExportArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Archive uploads data under <prefix>/<yyyy>/<mm>/<dd>/<digest>/<filename>.
// An object already stored under the key is left untouched.
func (s *S3ExportArchive) Archive(ctx context.Context, digest, filename string, data []byte) (string, error) {
	if digest == "" {
		return "", errors.New("content digest is required")
	}
	key := s.objectKey(digest, filename)

	exists, err := s.objectExists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		s.logger.Debug("Export already archived", zap.String("key", key))
		return key, nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(filename)),
		Metadata: map[string]string{
			"content-digest": digest,
			"original-name":  filename,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	s.logger.Info("Export archived",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("size", len(data)),
	)
	return key, nil
}

func (s *S3ExportArchive) objectExists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	// Some S3-compatible services return this differently
	if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
		return false, nil
	}
	return false, fmt.Errorf("failed to check archived export: %w", err)
}

func (s *S3ExportArchive) objectKey(digest, filename string) string {
	return archiveKey(s.prefix, s.now().UTC(), digest, filename)
}

// GetBucket returns the bucket name
func (s *S3ExportArchive) GetBucket() string {
	return s.bucket
}

// archiveKey builds the object key; filename is reduced to its base name
func archiveKey(prefix string, at time.Time, digest, filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "export"
	}
	parts := []string{at.Format("2006"), at.Format("01"), at.Format("02"), digest, name}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return path.Join(parts...)
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xml":
		return "application/xml"
	}
	return "application/octet-stream"
}

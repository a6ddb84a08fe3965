package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/config"
	"github.com/viewcasthq/viewcast-server/internal/domain/video"
)

// S3Storage handles uploads to S3-compatible object storage.
type S3Storage struct {
	bucket   string
	endpoint string
	region   string
	client   *s3.Client
	log      zerolog.Logger
}

func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &S3Storage{
		bucket:   cfg.S3Bucket,
		endpoint: cfg.S3Endpoint,
		region:   cfg.S3Region,
		client:   client,
		log:      log.With().Str("component", "s3-storage").Logger(),
	}, nil
}

func (s *S3Storage) Save(ctx context.Context, filename, contentType string, body io.Reader, size int64) (*video.StoredObject, error) {
	key := fmt.Sprintf("videos/video-%d%s", time.Now().UnixMilli(), strings.ToLower(filepath.Ext(filename)))

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	s.log.Debug().Str("bucket", s.bucket).Str("key", key).Msg("stored upload in object storage")

	return &video.StoredObject{
		Reference: s.objectURL(key),
		Key:       key,
	}, nil
}

func (s *S3Storage) Remove(ctx context.Context, ref string) error {
	key := s.keyFromRef(ref)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Health performs a HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func (s *S3Storage) IsLocal() bool {
	return false
}

func (s *S3Storage) objectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// keyFromRef accepts either a bare key or a full object URL.
func (s *S3Storage) keyFromRef(ref string) string {
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return ref
	}
	if idx := strings.Index(ref, "/"+s.bucket+"/"); idx >= 0 {
		return ref[idx+len(s.bucket)+2:]
	}
	if idx := strings.Index(ref, ".amazonaws.com/"); idx >= 0 {
		return ref[idx+len(".amazonaws.com/"):]
	}
	return ref
}

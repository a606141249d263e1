package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Config selects the bucket exports are uploaded to. Endpoint is optional
// and enables path-style addressing for S3-compatible stores.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores rendered exports in an S3 bucket.
type S3Uploader struct {
	client objectPutter
	bucket string
	prefix string
	logger zerolog.Logger
}

func NewS3Uploader(cfg S3Config, logger zerolog.Logger) *S3Uploader {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return newS3Uploader(s3.New(opts), cfg, logger)
}

func newS3Uploader(client objectPutter, cfg S3Config, logger zerolog.Logger) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger.With().Str("component", "export-s3").Logger(),
	}
}

// Upload puts body under name and returns the object URI.
func (u *S3Uploader) Upload(ctx context.Context, name string, body []byte) (string, error) {
	key := path.Join(u.prefix, name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("text/csv"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("upload export to s3://%s/%s: %w", u.bucket, key, err)
	}
	uri := fmt.Sprintf("s3://%s/%s", u.bucket, key)
	u.logger.Info().Str("uri", uri).Int("bytes", len(body)).Msg("uploaded export")
	return uri, nil
}

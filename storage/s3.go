package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"paper-atlas/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore ist das Ziel für Exporte und Backups.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// S3Bucket lädt Objekte in einen S3-kompatiblen Bucket (AWS, MinIO, HiDrive).
type S3Bucket struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3Client erstellt einen S3-Client für einen frei konfigurierbaren Endpoint.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3URL,
				SigningRegion:     cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewS3Bucket liefert den konfigurierten Bucket oder nil, wenn S3 nicht eingerichtet ist.
func NewS3Bucket(ctx context.Context, cfg *config.Config) (*S3Bucket, error) {
	if !cfg.S3Enabled() {
		return nil, nil
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &S3Bucket{client: client, bucket: cfg.S3Bucket, endpoint: strings.TrimRight(cfg.S3URL, "/")}, nil
}

// Client gibt den darunterliegenden SDK-Client zurück (z.B. für Listen/Löschen im Backup).
func (b *S3Bucket) Client() *s3.Client { return b.client }

// Bucket gibt den Bucket-Namen zurück.
func (b *S3Bucket) Bucket() string { return b.bucket }

// Upload lädt data unter key hoch und gibt den Link zurück.
func (b *S3Bucket) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s/%s", b.endpoint, b.bucket, key), nil
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kgtext/backend/internal/util"
	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	sourcePrefix = "sources"
	maxTries     = 3
)

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// s3API is the part of *s3.Client the archive uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Archive stores the source text of every generated graph under
// sources/<graph_id>.txt.
type S3Archive struct {
	client s3API
	bucket string
}

func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.Region),
		config.WithBaseEndpoint(cfg.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// NewS3Archive returns nil when no bucket is configured, which disables
// archiving.
func NewS3Archive(ctx context.Context, cfg S3Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		logger.Info("[Storage] No bucket configured, source archive disabled")
		return nil, nil
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &S3Archive{client: client, bucket: cfg.Bucket}, nil
}

func sourceKey(graphID string) string {
	return fmt.Sprintf("%s/%s.txt", sourcePrefix, graphID)
}

func (a *S3Archive) PutSource(ctx context.Context, graphID string, text string) error {
	key := sourceKey(graphID)
	err := util.RetryErrWithContext(ctx, maxTries, func(ctx context.Context) error {
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader([]byte(text)),
			ContentType: aws.String("text/plain; charset=utf-8"),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upload source to S3: %w", err)
	}
	return nil
}

func (a *S3Archive) GetSource(ctx context.Context, graphID string) (string, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(sourceKey(graphID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", common.NewNotFoundError("source", "no archived text for graph "+graphID)
		}
		return "", fmt.Errorf("failed to get source from S3: %w", err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return "", fmt.Errorf("failed to read source contents: %w", err)
	}
	return buf.String(), nil
}

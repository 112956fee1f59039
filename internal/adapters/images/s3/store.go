package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"livestock-registry/internal/ports/images"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store implementa images.Store sobre S3 (o compatible vía Endpoint).
// Devuelve URLs públicas estables; el dominio solo persiste la URL.
type Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

type Config struct {
	Bucket string
	Region string

	// Endpoint opcional para S3-compatible (minio, localstack).
	Endpoint string

	// PublicBaseURL opcional; si está vacío se arma la URL estándar
	// https://<bucket>.s3.<region>.amazonaws.com.
	PublicBaseURL string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
			o.BaseEndpoint = aws.String(ep)
			o.UsePathStyle = true
		}
	})

	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: publicBase(cfg),
	}, nil
}

var _ images.Store = (*Store)(nil)

func (s *Store) Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: key required")
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3: put %s: %w", key, err)
	}

	return s.publicBaseURL + "/" + key, nil
}

func publicBase(cfg Config) string {
	if base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"); base != "" {
		return base
	}
	if ep := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); ep != "" {
		// path-style para endpoints custom
		return ep + "/" + strings.TrimSpace(cfg.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", strings.TrimSpace(cfg.Bucket), strings.TrimSpace(cfg.Region))
}

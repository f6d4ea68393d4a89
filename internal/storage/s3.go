package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vormiaphp/vormiaquery/internal/common"
)

// expiresMetaKey holds the expiry as unix milliseconds in object metadata.
const expiresMetaKey = "vq-expires-at"

// S3API is the part of *s3.Client the store uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3Store keeps one object per key under Prefix in Bucket.
type S3Store struct {
	api    S3API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Client builds an S3 client for an S3-compatible endpoint with static
// credentials.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ParseS3URL reads an S3Config from s3://bucket/prefix?region=r&endpoint=url.
// Credentials come from the default AWS chain.
func ParseS3URL(raw string) (S3Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return S3Config{}, fmt.Errorf("parse s3 url: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return S3Config{}, fmt.Errorf("parse s3 url %q: want s3://bucket/prefix", raw)
	}

	cfg := S3Config{
		Bucket:       u.Host,
		Prefix:       strings.TrimPrefix(u.Path, "/"),
		Region:       u.Query().Get("region"),
		BaseEndpoint: u.Query().Get("endpoint"),
	}
	if cfg.Prefix != "" && !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return cfg, nil
}

func NewS3Store(api S3API, bucket, prefix string) *S3Store {
	return &S3Store{api: api, bucket: bucket, prefix: prefix, now: time.Now}
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	if raw, ok := out.Metadata[expiresMetaKey]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && s.now().UnixMilli() >= ms {
			if err := s.Remove(ctx, key); err != nil {
				return nil, err
			}
			return nil, common.ErrNotFound
		}
	}

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return b, nil
}

func (s *S3Store) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	o := applySetOptions(opts)

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/octet-stream"),
	}
	if exp := o.expiresAt(s.now()); !exp.IsZero() {
		in.Metadata = map[string]string{expiresMetaKey: strconv.FormatInt(exp.UnixMilli(), 10)}
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Remove(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Clear(ctx context.Context, namespace string) error {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(namespacePrefix(namespace))),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil && !isS3NotFound(err) {
				return fmt.Errorf("failed to delete object %s: %w", aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}

func (s *S3Store) Close() error { return nil }

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

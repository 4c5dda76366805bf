// Package s3 stores stage artifacts in an S3 bucket so runs on different
// machines can resume from each other's output.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/fundlink/internal/adapters/driven/storage/artifact"
	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/ports/driven"
)

// requestTimeout bounds each S3 call.
const requestTimeout = 30 * time.Second

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Ensure ArtifactStore implements the interface.
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore keeps artifacts under s3://bucket/prefix/name.
type ArtifactStore struct {
	client ObjectAPI
	bucket string
	prefix string
}

// New loads the default AWS credential chain and creates a store.
// An empty region falls back to AWS_REGION.
func New(ctx context.Context, bucket, prefix, region string) (*ArtifactStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("artifact bucket: %w", domain.ErrNotConfigured)
	}

	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewWithClient(s3.NewFromConfig(awsCfg), bucket, prefix), nil
}

// NewWithClient creates a store over an existing client.
func NewWithClient(client ObjectAPI, bucket, prefix string) *ArtifactStore {
	return &ArtifactStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Put uploads an artifact.
func (s *ArtifactStore) Put(ctx context.Context, name string, data []byte) error {
	key, err := s.key(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

// Get downloads and validates an artifact.
func (s *ArtifactStore) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := s.key(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%s: %w", s.uri(key), domain.ErrArtifactMissing)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	if err := artifact.Validate(name, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Exists checks for an artifact without downloading it.
func (s *ArtifactStore) Exists(ctx context.Context, name string) (bool, error) {
	key, err := s.key(name)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head %s: %w", key, err)
}

// Location returns the s3:// URI of the artifact prefix.
func (s *ArtifactStore) Location() string {
	return s.uri(s.prefix)
}

func (s *ArtifactStore) key(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("artifact name %q: %w", name, domain.ErrInvalidInput)
	}
	if s.prefix == "" {
		return name, nil
	}
	return path.Join(s.prefix, name), nil
}

func (s *ArtifactStore) uri(key string) string {
	if key == "" {
		return "s3://" + s.bucket
	}
	return "s3://" + s.bucket + "/" + key
}

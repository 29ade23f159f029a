// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ledgerfs/ledgerfs/lib/blobstore"
)

// Options configures an S3-backed blob store.
type Options struct {
	// Endpoint overrides the SDK's endpoint resolution. Set for
	// MinIO or any non-AWS S3 implementation; leave empty for AWS.
	Endpoint string

	// Region is the bucket's region. Required (MinIO accepts any
	// value; "us-east-1" is the conventional filler).
	Region string

	// Bucket holds the blobs. It must already exist.
	Bucket string

	// AccessKeyID and SecretAccessKey form a static credential pair.
	// When AccessKeyID is empty the SDK's ambient chain is used
	// instead (environment, shared config, IMDS).
	AccessKeyID     string
	SecretAccessKey string

	// PathStyle forces path-style addressing
	// (http://host/bucket/key). Required for MinIO.
	PathStyle bool
}

var (
	_ blobstore.Store    = (*Store)(nil)
	_ blobstore.PutterAt = (*Store)(nil)
)

// Store is an S3-backed content-addressed blob store.
type Store struct {
	client *awss3.Client
	bucket string
}

// New builds the S3 client from options. No request is made; call
// Ping to check the bucket is reachable.
func New(ctx context.Context, options Options) (*Store, error) {
	if options.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}
	if options.Region == "" {
		return nil, fmt.Errorf("s3 store: region is required")
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(options.Region),
	}
	if options.AccessKeyID != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(options.AccessKeyID, options.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("s3 store: loading SDK config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if options.Endpoint != "" {
			o.BaseEndpoint = aws.String(options.Endpoint)
		}
		o.UsePathStyle = options.PathStyle
	})

	return &Store{client: client, bucket: options.Bucket}, nil
}

// Ping checks the bucket is reachable with the configured
// credentials. Callers use it as a liveness probe before mounting or
// serving.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 store: bucket %s not reachable: %w", s.bucket, err)
	}
	return nil
}

// objectKey shards an address two characters deep so bucket listings
// stay navigable: "aabbcc..." becomes "aa/bbcc...".
func objectKey(address string) string {
	if len(address) < 2 {
		return address
	}
	return address[:2] + "/" + address[2:]
}

// Put implements blobstore.Store. A HeadObject existence check runs
// first; it is cheaper than re-uploading a duplicate chunk.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	address := blobstore.AddressForData(data)

	exists, err := s.Has(ctx, address)
	if err != nil {
		return "", fmt.Errorf("s3 store: checking %s: %w", address, err)
	}
	if exists {
		return address, nil
	}

	if err := s.PutAt(ctx, address, data); err != nil {
		return "", err
	}
	return address, nil
}

// PutAt implements blobstore.PutterAt.
func (s *Store) PutAt(ctx context.Context, address string, data []byte) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(address)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("s3 store: writing %s: %w", address, err)
	}
	return nil
}

// Get implements blobstore.Store.
func (s *Store) Get(ctx context.Context, address string) ([]byte, error) {
	response, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(address)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3 store: address %s: %w", address, blobstore.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 store: reading %s: %w", address, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 store: reading body of %s: %w", address, err)
	}
	return data, nil
}

// Has implements blobstore.Store.
func (s *Store) Has(ctx context.Context, address string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(address)),
	})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return false, nil
	}
	// Some S3 implementations answer HEAD with an unmodeled generic
	// 404.
	if strings.Contains(err.Error(), "404") {
		return false, nil
	}
	return false, fmt.Errorf("s3 store: checking %s: %w", address, err)
}

func (s *Store) String() string {
	return "s3(" + s.bucket + ")"
}

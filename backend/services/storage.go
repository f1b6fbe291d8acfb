package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"cognitory/backend/config"
	"cognitory/backend/oops"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Storage puts files somewhere publicly reachable and returns their URL.
type Storage interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Storage(ctx context.Context, cfg config.StorageConfig) (*S3Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint}, nil
		})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, oops.New(err, "failed to load storage config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
	}

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *S3Storage) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &s.bucket,
			Key:         &key,
			Body:        bytes.NewReader(content),
			ACL:         types.ObjectCannedACLPublicRead,
			ContentType: &contentType,
		})
		return err
	}

	err := upload()
	if err != nil {
		var apiError smithy.APIError
		if !errors.As(err, &apiError) || apiError.ErrorCode() != "NoSuchBucket" {
			return "", oops.New(err, "failed to upload file")
		}
		_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &s.bucket})
		if err != nil {
			return "", oops.New(err, "failed to create bucket")
		}
		if err := upload(); err != nil {
			return "", oops.New(err, "failed to upload file")
		}
	}

	return s.publicURL + "/" + key, nil
}

var reIllegalFilenameChars = regexp.MustCompile(`[^\w\-.]`)

func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}
	return reIllegalFilenameChars.ReplaceAllString(filename, "_")
}

// ObjectKey groups every file of one upload under its correlation id.
func ObjectKey(correlationID, filename string) string {
	return fmt.Sprintf("questions/%s/%s", correlationID, SanitizeFilename(filename))
}

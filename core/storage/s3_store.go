package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the AWS S3 client used by the s3 driver.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	api    S3API
	bucket string
}

// NewS3Store builds an aws-sdk-go-v2 S3 client pointed at the configured
// endpoint with static credentials.
func NewS3Store(ctx context.Context, cfg Config) (Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.EndpointURL())
	})
	return NewS3StoreFromAPI(client, cfg.BucketName), nil
}

// NewS3StoreFromAPI wraps an existing S3 API implementation.
func NewS3StoreFromAPI(api S3API, bucket string) Store {
	return &s3Store{api: api, bucket: bucket}
}

func (s *s3Store) Bucket() string {
	return s.bucket
}

func (s *s3Store) List(ctx context.Context, prefix string, maxKeys int, token string) (Page, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(maxKeys)),
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := s.api.ListObjectsV2(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("list %s/%s: %w", s.bucket, prefix, err)
	}

	page := Page{Objects: make([]ObjectMetadata, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, ObjectMetadata{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         trimETag(aws.ToString(obj.ETag)),
		})
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextToken = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

func (s *s3Store) Head(ctx context.Context, key string) (ObjectMetadata, error) {
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return ObjectMetadata{}, notFound(key)
		}
		return ObjectMetadata{}, fmt.Errorf("head %s: %w", key, err)
	}
	return ObjectMetadata{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         trimETag(aws.ToString(out.ETag)),
		ContentType:  aws.ToString(out.ContentType),
		CacheControl: aws.ToString(out.CacheControl),
	}, nil
}

func (s *s3Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectMetadata, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	applyPutOptions(opts, &input.ContentType, &input.CacheControl, &input.ContentDisposition, &input.Expires)

	out, err := s.api.PutObject(ctx, input)
	if err != nil {
		return ObjectMetadata{}, fmt.Errorf("put %s: %w", key, err)
	}
	return ObjectMetadata{
		Key:          key,
		Size:         size,
		LastModified: time.Now(),
		ETag:         trimETag(aws.ToString(out.ETag)),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}, nil
}

func (s *s3Store) Copy(ctx context.Context, dstKey, srcKey string, opts PutOptions) (ObjectMetadata, error) {
	input := &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(dstKey),
		CopySource:        aws.String(s.bucket + "/" + url.PathEscape(srcKey)),
		MetadataDirective: types.MetadataDirectiveReplace,
	}
	applyPutOptions(opts, &input.ContentType, &input.CacheControl, &input.ContentDisposition, &input.Expires)

	out, err := s.api.CopyObject(ctx, input)
	if err != nil {
		if isS3NotFound(err) {
			return ObjectMetadata{}, fmt.Errorf("copy %s -> %s: %w", srcKey, dstKey, notFound(srcKey))
		}
		return ObjectMetadata{}, fmt.Errorf("copy %s -> %s: %w", srcKey, dstKey, err)
	}

	meta := ObjectMetadata{
		Key:          dstKey,
		LastModified: time.Now(),
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}
	if out.CopyObjectResult != nil {
		meta.ETag = trimETag(aws.ToString(out.CopyObjectResult.ETag))
		if out.CopyObjectResult.LastModified != nil {
			meta.LastModified = *out.CopyObjectResult.LastModified
		}
	}
	return meta, nil
}

func (s *s3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out.Body, nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func applyPutOptions(opts PutOptions, contentType, cacheControl, disposition **string, expires **time.Time) {
	if opts.ContentType != "" {
		*contentType = aws.String(opts.ContentType)
	}
	if opts.CacheControl != "" {
		*cacheControl = aws.String(opts.CacheControl)
	}
	if opts.ContentDisposition != "" {
		*disposition = aws.String(opts.ContentDisposition)
	}
	if !opts.Expires.IsZero() {
		*expires = aws.Time(opts.Expires)
	}
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// Package storage mints presigned S3 URLs so file bytes never transit the API.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectMissing is returned by ObjectSize when the key does not exist
// in the bucket, typically because the client has not finished its upload.
var ErrObjectMissing = errors.New("object missing")

type Options struct {
	Endpoint    string // optional; set for MinIO or other S3-compatible stores
	Region      string
	Bucket      string
	AccessKey   string
	SecretKey   string
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

// S3Presigner implements usecase.Presigner against a real bucket.
type S3Presigner struct {
	client  *s3.PresignClient
	headers *s3.Client
	opts    Options
}

func NewS3Presigner(ctx context.Context, opts Options) (*S3Presigner, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Presigner{client: s3.NewPresignClient(client), headers: client, opts: opts}, nil
}

// ObjectSize reads the stored size of an object without fetching its body.
func (p *S3Presigner) ObjectSize(ctx context.Context, key string) (int64, error) {
	out, err := p.headers.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return 0, ErrObjectMissing
		}
		return 0, fmt.Errorf("head %q: %w", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// PresignUpload returns a URL the caller PUTs the object bytes to.
func (p *S3Presigner) PresignUpload(ctx context.Context, key string) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.opts.UploadTTL))
	if err != nil {
		return "", fmt.Errorf("presign put %q: %w", key, err)
	}
	return req.URL, nil
}

// PresignDownload returns a URL that serves the object as an attachment
// under its original file name.
func (p *S3Presigner) PresignDownload(ctx context.Context, key, fileName string) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(p.opts.Bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", fileName)),
	}, s3.WithPresignExpires(p.opts.DownloadTTL))
	if err != nil {
		return "", fmt.Errorf("presign get %q: %w", key, err)
	}
	return req.URL, nil
}

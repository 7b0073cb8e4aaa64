// Package receipts issues presigned upload URLs for receipt files.
package receipts

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Upload describes where a client should PUT a receipt file
type Upload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presigner issues receipt upload URLs
type Presigner interface {
	PresignUpload(ctx context.Context, userID uint, filename string) (Upload, error)
}

// Options configures the S3 presigner
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string // optional S3-compatible endpoint
	AccessKey string
	SecretKey string
	Expiry    time.Duration
}

// S3Presigner signs PUT requests against an S3 bucket
type S3Presigner struct {
	client *s3.PresignClient
	bucket string
	expiry time.Duration
	now    func() time.Time
}

// NewS3Presigner loads AWS configuration and builds a presign client
func NewS3Presigner(ctx context.Context, opts Options) (*S3Presigner, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
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
	return &S3Presigner{
		client: s3.NewPresignClient(client),
		bucket: opts.Bucket,
		expiry: opts.Expiry,
		now:    time.Now,
	}, nil
}

// PresignUpload returns a presigned PUT URL for a new receipt object
func (p *S3Presigner) PresignUpload(ctx context.Context, userID uint, filename string) (Upload, error) {
	key := ObjectKey(userID, filename, p.now())
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return Upload{}, fmt.Errorf("presign receipt upload: %w", err)
	}
	return Upload{Key: key, UploadURL: req.URL, ExpiresAt: p.now().Add(p.expiry)}, nil
}

// ObjectKey builds receipts/<user>/<yyyy>/<mm>/<uuid><ext>
func ObjectKey(userID uint, filename string, at time.Time) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("receipts/%d/%04d/%02d/%s%s", userID, at.Year(), int(at.Month()), uuid.NewString(), ext)
}

package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"revoice/internal/config"
	"revoice/internal/services"
)

// ObjectAPI is the slice of the S3 surface the client needs. It is satisfied
// by *s3.Client and by test stubs.
type ObjectAPI interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client stores and retrieves pipeline artifacts in an S3 bucket.
type Client struct {
	api      ObjectAPI
	uploader *manager.Uploader
	bucket   string
}

// New builds a storage client for the configured bucket, resolving AWS
// credentials from the standard environment/shared-config chain.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "aws config", "load credential chain", err)
	}
	return NewWithAPI(s3.NewFromConfig(awsCfg), cfg.S3.Bucket), nil
}

// NewWithAPI builds a storage client around an existing API implementation.
func NewWithAPI(api ObjectAPI, bucket string) *Client {
	return &Client{
		api:      api,
		uploader: manager.NewUploader(api),
		bucket:   bucket,
	}
}

// Bucket returns the configured artifact bucket.
func (c *Client) Bucket() string {
	return c.bucket
}

// UploadVideo streams a source video into the bucket and returns its key
// and s3:// URI.
func (c *Client) UploadVideo(ctx context.Context, jobID, filename string, body io.Reader) (key, uri string, err error) {
	key = VideoKey(jobID, filename)
	_, err = c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", "", services.Wrap(services.ErrUpload, "uploading", "put object", key, err)
	}
	return key, URI(c.bucket, key), nil
}

// UploadLocalized streams the finished localized video into the bucket and
// returns its s3:// URI.
func (c *Client) UploadLocalized(ctx context.Context, jobID string, body io.Reader) (string, error) {
	key := LocalizedKey(jobID)
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", services.Wrap(services.ErrPublish, "publishing", "put object", key, err)
	}
	return URI(c.bucket, key), nil
}

// GetObject reads an object from the bucket in full.
func (c *Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

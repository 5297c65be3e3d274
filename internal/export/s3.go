package export

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Config holds the settings for the backup bucket. BaseEndpoint is set when
// talking to an S3-compatible store such as MinIO.
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
}

type S3Uploader struct {
	config S3Config
}

func NewS3Uploader(cfg S3Config) *S3Uploader {
	return &S3Uploader{config: cfg}
}

func (u *S3Uploader) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(u.config.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			u.config.AccessKey,
			u.config.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if u.config.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(u.config.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return client, nil
}

// Upload stores the snapshot under key in the configured bucket.
func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte) error {
	client, err := u.getClient(ctx)
	if err != nil {
		return err
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 uploads certificates to a bucket. Credentials come from the default
// AWS chain (env, shared config, instance role).
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3(ctx context.Context, bucket, region, prefix string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

func (s *S3) Save(ctx context.Context, filename string, content io.Reader) (string, error) {
	ct, err := ContentType(filename)
	if err != nil {
		return "", err
	}
	key := path.Join(s.prefix, objectKey(filename, time.Now().UTC()))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(ct),
		Metadata:    map[string]string{"original-filename": path.Base(filename)},
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

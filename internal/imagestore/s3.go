package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Store keeps images in an S3 bucket. Objects are public-read so the
// stored URL can be handed straight to clients.
type S3Store struct {
	bucket string
	region string
	api    *s3.S3
}

// NewS3 builds an S3-backed store. Static credentials are optional; when
// empty the SDK falls back to its default chain.
func NewS3(bucket, region, accessKey, secretKey string) (*S3Store, error) {
	cfg := aws.NewConfig().WithRegion(region)
	if accessKey != "" && secretKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(accessKey, secretKey, ""))
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("s3: session failed: %w", err)
	}
	return &S3Store{bucket: bucket, region: region, api: s3.New(sess)}, nil
}

// Put uploads data under key, overwriting any previous object.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s failed: %w", key, err)
	}
	return s.URL(key), nil
}

// Get downloads the object stored under key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if ok := awsErrAs(err, &aerr); ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3: get %s failed: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: read %s failed: %w", key, err)
	}
	return data, nil
}

// URL returns the virtual-hosted public URL for key.
func (s *S3Store) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func awsErrAs(err error, target *awserr.Error) bool {
	for err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			*target = aerr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

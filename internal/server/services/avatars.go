package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/proloapp/sparkle/internal/common"
	sc "github.com/proloapp/sparkle/internal/server/config"
)

// Object keys look like "<user id>-<millis>.<ext>". Anything else is
// rejected before it reaches the bucket.
var avatarKeyRx = regexp.MustCompile(`^[A-Za-z0-9-]+-\d+\.[A-Za-z0-9]+$`)

// s3API is the subset of the S3 client the service uses; tests provide a
// stub.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AvatarService stores avatar images in an S3-compatible bucket and hands
// out their public URLs.
type AvatarService struct {
	config *sc.Config

	newClient func(ctx context.Context) (s3API, error)
}

func NewAvatarService(config *sc.Config) *AvatarService {
	svc := &AvatarService{config: config}
	svc.newClient = svc.s3Client
	return svc
}

func (s *AvatarService) s3Client(ctx context.Context) (s3API, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// ValidateKey reports whether key is a well-formed avatar object key owned
// by userID.
func (s *AvatarService) ValidateKey(key, userID string) error {
	if !avatarKeyRx.MatchString(key) {
		return fmt.Errorf("%w: malformed object key", common.ErrorInternal)
	}
	if !strings.HasPrefix(key, userID+"-") {
		return common.ErrorUnauthorized
	}
	return nil
}

// Upload stores the image under key.
func (s *AvatarService) Upload(ctx context.Context, key string, content []byte, contentType string) error {
	client, err := s.newClient(ctx)
	if err != nil {
		return common.ErrorUnavailable
	}

	bucket := s.config.S3Bucket
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return common.ErrorUnavailable
	}
	return nil
}

// PublicURL returns the public address of the object. The bucket is served
// read-only, so no presigning is needed for GETs.
func (s *AvatarService) PublicURL(key string) string {
	base := strings.TrimSuffix(s.config.S3BaseEndpoint, "/")
	return fmt.Sprintf("%s/%s/%s", base, s.config.S3Bucket, key)
}

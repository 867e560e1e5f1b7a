package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/lumina_api/internal/config"
	"github.com/GTDGit/lumina_api/internal/utils"
)

// Image types accepted for product photos.
var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// UploadedImage is a sniffed, size-checked product photo.
type UploadedImage struct {
	Data        []byte
	ContentType string
	Ext         string
}

// DetectImage validates data as a product photo no larger than maxBytes.
// The declared file name is ignored; the type is sniffed from content.
func DetectImage(data []byte, maxBytes int64) (*UploadedImage, error) {
	if len(data) == 0 {
		return nil, utils.NewValidationError("image", "image is required")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, utils.NewValidationError("image", fmt.Sprintf("image must not exceed %d MB", maxBytes/(1024*1024)))
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImageTypes...) {
		return nil, utils.NewValidationError("image", fmt.Sprintf("unsupported image type %s", mt.String()))
	}
	return &UploadedImage{Data: data, ContentType: mt.String(), Ext: mt.Extension()}, nil
}

// ImageStore persists product photos and returns the URL they are served at.
type ImageStore interface {
	Save(ctx context.Context, img *UploadedImage) (string, error)
}

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ImageStore uploads photos to an S3 bucket.
type S3ImageStore struct {
	client ObjectPutter
	bucket string
	region string
	prefix string
	now    func() time.Time
}

// NewS3ImageStore creates an S3ImageStore using client.
func NewS3ImageStore(client ObjectPutter, cfg *config.S3Config) *S3ImageStore {
	return &S3ImageStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}
}

// Save uploads img under prefix/yyyy/mm/ and returns its public URL.
func (s *S3ImageStore) Save(ctx context.Context, img *UploadedImage) (string, error) {
	name, err := utils.GenerateFileName(img.Ext)
	if err != nil {
		return "", err
	}
	key := path.Join(s.prefix, s.now().UTC().Format("2006/01"), name)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(img.ContentType),
		ContentLength: aws.Int64(int64(len(img.Data))),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload to S3")
		return "", utils.NewExternalServiceError("s3", err)
	}

	log.Info().Str("key", key).Msg("Successfully uploaded to S3")
	return s.ObjectURL(key), nil
}

// ObjectURL returns the URL for an S3 object.
func (s *S3ImageStore) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// LocalImageStore writes photos to a directory served under URLPrefix.
type LocalImageStore struct {
	dir       string
	urlPrefix string
}

// LocalURLPrefix is the path local uploads are served from.
const LocalURLPrefix = "/uploads"

// NewLocalImageStore creates a LocalImageStore rooted at dir.
func NewLocalImageStore(dir string) *LocalImageStore {
	return &LocalImageStore{dir: dir, urlPrefix: LocalURLPrefix}
}

// Save writes img to disk and returns its site-relative URL.
func (s *LocalImageStore) Save(_ context.Context, img *UploadedImage) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name, err := utils.GenerateFileName(img.Ext)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), img.Data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return s.urlPrefix + "/" + name, nil
}

// NewImageStore picks S3 when a bucket is configured and local disk otherwise.
func NewImageStore(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	if cfg.S3.Bucket == "" {
		log.Info().Str("dir", cfg.Upload.Dir).Msg("S3 bucket not configured - storing uploads on local disk")
		return NewLocalImageStore(cfg.Upload.Dir), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3ImageStore(s3.NewFromConfig(awsCfg), &cfg.S3), nil
}

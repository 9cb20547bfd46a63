package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxFileSize caps uploads at 10MB.
const MaxFileSize = 10 * 1024 * 1024

// AllowedContentTypes maps accepted MIME types to their stored extension.
var AllowedContentTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

// ObjectStore uploads ordinary (non-sensitive) files and returns their
// public URL.
type ObjectStore interface {
	Upload(ctx context.Context, userID uint, fileName, contentType string, content []byte) (publicURL string, key string, err error)
}

// Store is the process-wide object store. Tests swap in a fake.
var Store ObjectStore = &r2Store{}

// r2Store talks to Cloudflare R2 through its S3-compatible API.
type r2Store struct {
	once   sync.Once
	client *s3.Client
	err    error
}

func (r *r2Store) api() (*s3.Client, error) {
	r.once.Do(func() {
		endpoint := os.Getenv("R2_ENDPOINT")
		accessKey := os.Getenv("R2_ACCESS_KEY_ID")
		secretKey := os.Getenv("R2_SECRET_ACCESS_KEY")

		if endpoint == "" || accessKey == "" || secretKey == "" {
			r.err = fmt.Errorf("R2 credentials are not configured")
			return
		}

		cfg, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion("auto"),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		)
		if err != nil {
			r.err = fmt.Errorf("load R2 config: %w", err)
			return
		}

		r.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	})

	return r.client, r.err
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]`)

// ObjectKey builds the bucket key: uploads/{userID}/{uuid}-{name}.{ext}.
// The uuid keeps concurrent uploads of the same file name from colliding.
func ObjectKey(userID uint, fileName, contentType string) string {
	extension, ok := AllowedContentTypes[contentType]
	if !ok {
		extension = "bin"
	}

	sanitized := unsafeKeyChars.ReplaceAllString(fileName, "_")
	sanitized = strings.TrimSuffix(sanitized, "."+extension)

	return fmt.Sprintf("uploads/%d/%s-%s.%s", userID, uuid.NewString(), sanitized, extension)
}

func (r *r2Store) Upload(ctx context.Context, userID uint, fileName, contentType string, content []byte) (string, string, error) {
	client, err := r.api()
	if err != nil {
		return "", "", err
	}

	bucket := os.Getenv("R2_BUCKET_NAME")
	if bucket == "" {
		bucket = "polarad-uploads"
	}

	key := ObjectKey(userID, fileName, contentType)

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("put object %s: %w", key, err)
	}

	publicURL := strings.TrimSuffix(os.Getenv("R2_PUBLIC_URL"), "/") + "/" + key

	return publicURL, key, nil
}

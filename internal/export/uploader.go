package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// presignTTL bounds how long an exported file link stays valid.
const presignTTL = 7 * 24 * time.Hour

// Uploader stores exported files in an object-storage bucket and hands back
// presigned links.
type Uploader struct {
	client *minio.Client
	bucket string
}

// NewUploader connects to the object store and ensures the bucket exists.
func NewUploader(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Uploader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object storage: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Uploader{client: client, bucket: bucket}, nil
}

// Upload stores the result under a unique object name and returns a
// presigned download URL.
func (u *Uploader) Upload(ctx context.Context, result *Result) (string, error) {
	objectName := uuid.NewString() + "/" + result.Filename
	_, err := u.client.PutObject(ctx, u.bucket, objectName,
		bytes.NewReader(result.Data), int64(len(result.Data)),
		minio.PutObjectOptions{ContentType: result.MimeType})
	if err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}

	link, err := u.client.PresignedGetObject(ctx, u.bucket, objectName, presignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign export link: %w", err)
	}
	return link.String(), nil
}

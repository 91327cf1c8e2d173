// Package storage provides S3-compatible object storage over MinIO.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedURLTTL is the lifetime of generated download links.
const PresignedURLTTL = 15 * time.Minute

var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

// MinIOService stores and serves objects from MinIO.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
}

// NewMinIOService creates a MinIO-backed storage service.
func NewMinIOService(cfg config.StorageConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{client: client, maxFileSize: cfg.GetMinIOMaxFileSize()}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// Upload stores reader under folder with a collision-free name and returns the object key.
func (s *MinIOService) Upload(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	if err := ValidateUpload(contentType, size, s.maxFileSize); err != nil {
		return "", err
	}

	key := ObjectKey(folder, fileName)
	if _, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", apperr.Collaborator("document upload failed", err)
	}
	return key, nil
}

// DownloadURL returns a presigned GET link for key.
func (s *MinIOService) DownloadURL(ctx context.Context, bucket, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, PresignedURLTTL, nil)
	if err != nil {
		return "", apperr.Collaborator("presign download failed", err)
	}
	return u.String(), nil
}

// ValidateUpload rejects unsupported content types and oversize files.
func ValidateUpload(contentType string, size, maxSize int64) error {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if _, ok := allowedContentTypes[ct]; !ok {
		return apperr.Validationf("unsupported content type %q", contentType)
	}
	if size <= 0 {
		return apperr.Validation("file is empty")
	}
	if maxSize > 0 && size > maxSize {
		return apperr.Validationf("file exceeds maximum size of %d bytes", maxSize)
	}
	return nil
}

// ObjectKey builds "<folder>/<base>_<8 hex><ext>".
func ObjectKey(folder, fileName string) string {
	clean := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := path.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return path.Join(folder, fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext))
}

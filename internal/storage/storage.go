// Package storage keeps the vaccine certificates uploaded with membership
// applications, either on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/dogrun-backend/internal/config"
)

// ErrUnsupportedType is returned for files that are neither images nor PDFs.
var ErrUnsupportedType = errors.New("unsupported certificate file type")

// allowedExt maps accepted extensions to their content type.
var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Store saves an uploaded certificate and returns the key recorded on the
// application.
type Store interface {
	Save(ctx context.Context, filename string, content io.Reader) (string, error)
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.LocalPath)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires STORAGE_S3_BUCKET")
		}
		return NewS3(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// ContentType returns the content type for filename or ErrUnsupportedType.
func ContentType(filename string) (string, error) {
	ct, ok := allowedExt[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return ct, nil
}

// objectKey builds year/month/uuid.ext; the client's file name is never
// used as a path.
func objectKey(filename string, now time.Time) string {
	return fmt.Sprintf("%d/%02d/%s%s", now.Year(), now.Month(), uuid.NewString(),
		strings.ToLower(filepath.Ext(filename)))
}

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Local writes certificates below a base directory.
type Local struct {
	base string
}

// NewLocal creates base if needed.
func NewLocal(base string) (*Local, error) {
	if base == "" {
		base = "uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{base: base}, nil
}

func (l *Local) Save(_ context.Context, filename string, content io.Reader) (string, error) {
	if _, err := ContentType(filename); err != nil {
		return "", err
	}
	key := objectKey(filename, time.Now().UTC())
	path := filepath.Join(l.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return key, nil
}

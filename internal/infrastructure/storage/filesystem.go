package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	config "github.com/kayendev-lutech/ecommerce/configs"
	"github.com/kayendev-lutech/ecommerce/internal/core/ports"
)

// FilesystemStore keeps images in a local directory served under baseURL.
type FilesystemStore struct {
	dir     string
	baseURL string
	logger  *logrus.Logger
}

func NewFilesystemStore(cfg *config.StorageConfig, logger *logrus.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FilesystemStore{dir: cfg.Dir, baseURL: strings.TrimRight(cfg.BaseURL, "/"), logger: logger}, nil
}

// Save writes data under a fresh name keeping the extension of name.
func (s *FilesystemStore) Save(_ context.Context, name string, data []byte) (string, error) {
	file := uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(name)))
	target := filepath.Join(s.dir, file)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	url := s.baseURL + "/" + file
	s.logger.WithFields(logrus.Fields{"url": url, "bytes": len(data)}).Debug("image stored")
	return url, nil
}

// Delete removes an image previously returned by Save. URLs outside baseURL
// are ignored, as are images that no longer exist.
func (s *FilesystemStore) Delete(_ context.Context, url string) error {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	file := path.Base(strings.TrimPrefix(url, prefix))
	if file == "." || file == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, file))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

var _ ports.ImageStore = (*FilesystemStore)(nil)

// Package storage 提供了上传文件的存储后端（本地磁盘或 MinIO）。
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"polyglot-chat/internal/config"
)

// FileStore 定义了上传文件的保存操作，返回文件的存储位置。
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// NewFileStore 根据配置选择存储后端。
func NewFileStore(ctx context.Context, uploadCfg config.UploadConfig, minioCfg config.MinIOConfig) (FileStore, error) {
	switch uploadCfg.Backend {
	case "", "local":
		return NewLocalStore(uploadCfg.Dir)
	case "minio":
		return NewMinIOStore(ctx, minioCfg)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", uploadCfg.Backend)
	}
}

// LocalStore 将上传文件保存到本地目录。
type LocalStore struct {
	dir string
}

// NewLocalStore 创建本地存储，目录不存在时自动创建。
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save 写入临时文件后重命名，避免留下写了一半的文件。
func (s *LocalStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move upload into place: %w", err)
	}
	return path, nil
}

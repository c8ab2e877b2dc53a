package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 将对象保存在本地数据目录下: <baseDir>/<bucket>/<key>
// 适用于开发环境和单机部署，公开 URL 由服务器的 /media/ 路由提供。
type FileStore struct {
	baseDir       string
	bucket        string
	publicBaseURL string
}

// NewFileStore 创建文件存储，并确保 bucket 目录存在
func NewFileStore(baseDir, bucket, publicBaseURL string) (*FileStore, error) {
	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("无法获取存储目录 '%s' 的绝对路径: %w", baseDir, err)
	}
	//nolint:gosec // G301: media directory is served publicly
	if err := os.MkdirAll(filepath.Join(absDir, bucket), 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &FileStore{
		baseDir:       absDir,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Root is the directory served under /media/.
func (s *FileStore) Root() string {
	return filepath.Join(s.baseDir, s.bucket)
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	root := s.Root()
	if _, err := os.Stat(root); err != nil {
		return newError(CodeBucketNotFound, err, "Bucket not found: %s", s.bucket)
	}

	path := filepath.Join(root, filepath.FromSlash(key))
	if !strings.HasPrefix(filepath.Clean(path), root+string(filepath.Separator)) {
		return fmt.Errorf("invalid object key %q", key)
	}
	//nolint:gosec // G301
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	//nolint:gosec // G302: objects are public
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return newError(CodeDuplicate, err, "The resource already exists (duplicate): %s", key)
		}
		return fmt.Errorf("open object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write object: %w", err)
	}
	return f.Close()
}

func (s *FileStore) PublicURL(key string) string {
	return s.publicBaseURL + "/media/" + (&url.URL{Path: key}).EscapedPath()
}

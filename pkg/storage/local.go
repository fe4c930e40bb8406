package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"sitemap-crawler/pkg/utils"
)

// LocalStorage is the local filesystem storage backend.
type LocalStorage struct {
	baseDir string
	log     *logrus.Entry
}

// NewLocalStorage creates a LocalStorage rooted at baseDir, creating the
// directory if needed.
func NewLocalStorage(baseDir string, log *logrus.Entry) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create base dir '%s': %v", utils.ErrFilesystem, baseDir, err)
	}
	log.WithField("base_dir", baseDir).Info("local_storage_initialized")
	return &LocalStorage{baseDir: baseDir, log: log}, nil
}

// BaseDir returns the storage root directory.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// Write stores content at the relative path.
func (s *LocalStorage) Write(path string, content []byte) error {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("%w: create dir for '%s': %v", utils.ErrFilesystem, path, err)
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return fmt.Errorf("%w: write '%s': %v", utils.ErrFilesystem, path, err)
	}
	s.log.WithFields(logrus.Fields{
		"path":       fullPath,
		"size_bytes": len(content),
	}).Debug("file_written")
	return nil
}

// Exists reports whether the relative path is present.
func (s *LocalStorage) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(s.baseDir, filepath.FromSlash(path)))
	return err == nil
}

// Read returns the content at the relative path.
func (s *LocalStorage) Read(path string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.baseDir, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file not found: %s", utils.ErrFilesystem, path)
		}
		return nil, fmt.Errorf("%w: read '%s': %v", utils.ErrFilesystem, path, err)
	}
	return content, nil
}

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists rendered images onto the local filesystem. Each job's
// latest image is written to a stable name so display devices can poll a
// fixed URL.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath, creating the
// directory if needed.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	return s.basePath
}

// Save writes the image bytes for a job, overwriting any previous output,
// and returns the absolute file path. Names are restricted to a single path
// segment to prevent directory traversal.
func (s *FileStore) Save(name string, data []byte, ext string) (string, error) {
	fileName, err := fileNameFor(name, ext)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.basePath, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return path, nil
}

// URLFor returns the server-relative URL at which the job's latest image is
// exposed.
func (s *FileStore) URLFor(name, ext string) string {
	fileName, err := fileNameFor(name, ext)
	if err != nil {
		return ""
	}
	return "/" + fileName
}

func fileNameFor(name, ext string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("storage: name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("storage: invalid name %q", name)
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return "", errors.New("storage: extension is required")
	}
	return name + "." + ext, nil
}

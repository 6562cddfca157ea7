package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"face-insight-backend/internal/domain"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// FileStore persists uploaded images under root/<batch>/ and hands back
// absolute paths for the job manifest.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{root: abs}, nil
}

// ValidName reports whether the filename carries an allowed image extension.
func ValidName(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Save writes one uploaded file into the batch directory and returns its
// absolute path. The filename is flattened to its base to keep uploads from
// escaping the batch directory.
func (s *FileStore) Save(batchID, filename string, r io.Reader) (string, error) {
	if !ValidName(filename) {
		return "", domain.ErrUnsupportedImage
	}
	dir := filepath.Join(s.root, batchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create batch dir: %w", err)
	}

	dst := filepath.Join(dir, filepath.Base(filename))
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return dst, nil
}

// RemoveBatch deletes a batch directory, used to clean up failed uploads.
func (s *FileStore) RemoveBatch(batchID string) error {
	return os.RemoveAll(filepath.Join(s.root, batchID))
}

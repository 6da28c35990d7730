package blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// MaxUploadSize is the ceiling for a single stored payload.
const MaxUploadSize = 10 << 20 // 10 MiB

var (
	ErrTooLarge        = errors.New("payload exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported content type")
)

// only images are accepted
var extByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Store persists opaque bytes and returns a URL they can be fetched from.
type Store interface {
	Store(data []byte, contentType string) (string, error)
}

// DiskStore writes blobs to a local directory served under baseURL.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &DiskStore{dir: dir, baseURL: baseURL}, nil
}

func (s *DiskStore) Store(data []byte, contentType string) (string, error) {
	if len(data) > MaxUploadSize {
		return "", ErrTooLarge
	}

	ext, ok := extByContentType[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := fmt.Sprintf("%s.%s", uuid.NewString(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

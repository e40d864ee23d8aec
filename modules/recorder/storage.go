package recorder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage hands out file paths for session output.
type Storage interface {
	// TempPath returns a fresh, unused path with the given extension
	// (".mp4", ".m4a"). The file is not created.
	TempPath(prefix, ext string) (string, error)
}

// DirStorage places files in a directory, named prefix-<uuid>ext.
type DirStorage struct {
	Dir string
}

// NewDirStorage creates dir if needed. An empty dir selects the system temp directory.
func NewDirStorage(dir string) (*DirStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "scene-record")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create output dir: %w", err)
	}
	return &DirStorage{Dir: dir}, nil
}

// TempPath implements Storage.
func (s *DirStorage) TempPath(prefix, ext string) (string, error) {
	return filepath.Join(s.Dir, prefix+"-"+uuid.NewString()+ext), nil
}

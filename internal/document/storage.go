package document

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirStorage persists documents under a local directory. The original
// deployment also knows a cloud bucket backend; both satisfy Storage.
type DirStorage struct {
	Root string
}

func NewDirStorage(root string) *DirStorage {
	return &DirStorage{Root: root}
}

func (d *DirStorage) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	path := filepath.Join(d.Root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: %w", err)
	}
	return path, nil
}

package persistence

import (
	"os"
	"path/filepath"
)

func writeFile(dir, name string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644)
}

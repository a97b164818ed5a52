package git

import (
	"fmt"
	"os"
)

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/smelter-dev/smelter/internal/codegen/nickel"
)

// WriteFiles writes rendered files under root, creating directories as
// needed. File paths are slash-separated and relative to root.
func WriteFiles(root string, files []nickel.File) error {
	for _, file := range files {
		target := filepath.Join(root, filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(target, []byte(file.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}
	return nil
}

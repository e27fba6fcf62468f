package crypto

import (
	"fmt"
	"os"
)

func transformFile(sourcePath, destPath string, fn func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	out, err := fn(data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(destPath, out, 0600); err != nil {
		return fmt.Errorf("failed to write dest file: %w", err)
	}

	return nil
}

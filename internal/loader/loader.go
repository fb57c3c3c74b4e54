// Package loader reads reel source files off disk for the CLI's file mode.
package loader

import (
	"fmt"
	"os"
)

// Load reads path and returns its contents as a string, wrapping any
// filesystem error the way the teacher's run command reports a missing or
// unreadable source file.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

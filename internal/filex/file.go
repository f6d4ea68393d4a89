// Package filex holds filesystem helpers for the CLI's local state.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// StateDirName is the per-project directory the CLI keeps its store in.
const StateDirName = ".vq"

// EnsureSubdir creates name under root (the working directory when root is
// empty) with owner-only permissions and returns its absolute path.
func EnsureSubdir(root, name string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}

	dir, err := filepath.Abs(filepath.Join(root, name))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// StatePath returns the path of file inside the state directory under root,
// creating the directory if needed.
func StatePath(root, file string) (string, error) {
	dir, err := EnsureSubdir(root, StateDirName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// EnsureParent creates the parent directory of path.
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

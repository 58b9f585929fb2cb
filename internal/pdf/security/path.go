// Package security keeps tool requests inside the configured exam folder.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideFolder is returned for paths that escape the exam folder.
var ErrOutsideFolder = errors.New("path is outside the exam folder")

// FolderGuard confines document paths to one exam folder. Symlinks are
// followed before the check, so a link inside the folder pointing elsewhere
// is rejected.
type FolderGuard struct {
	root string
}

// NewFolderGuard creates a guard for root. The folder need not exist yet.
func NewFolderGuard(root string) (*FolderGuard, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("exam folder cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exam folder: %w", err)
	}
	return &FolderGuard{root: abs}, nil
}

// Root returns the absolute exam folder.
func (g *FolderGuard) Root() string {
	return g.root
}

// Check returns an error unless path lies inside the exam folder.
func (g *FolderGuard) Check(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	inside, err := g.Contains(path)
	if err != nil {
		return err
	}
	if !inside {
		return fmt.Errorf("%w: %s", ErrOutsideFolder, path)
	}
	return nil
}

// Contains reports whether path, after resolving symlinks, is the exam
// folder or lies below it.
func (g *FolderGuard) Contains(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	root := realPath(g.root)
	target := realPath(abs)
	return within(target, root), nil
}

// CheckDirectory is Check plus a test that an existing path is a directory.
func (g *FolderGuard) CheckDirectory(dir string) error {
	if err := g.Check(dir); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	return nil
}

// Resolve strips NUL bytes, anchors relative paths at the exam folder and
// checks the result.
func (g *FolderGuard) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	path = filepath.Clean(path)
	if err := g.Check(path); err != nil {
		return "", err
	}
	return path, nil
}

// realPath resolves symlinks in the longest existing prefix of path and
// re-appends the missing tail.
func realPath(path string) string {
	path = filepath.Clean(path)
	var tail []string
	for {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved
		}
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		tail = append(tail, filepath.Base(path))
		path = parent
	}
	return filepath.Join(append([]string{path}, reverse(tail)...)...)
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

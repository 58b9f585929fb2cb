package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
	"github.com/a3tai/mcp-exam-reader/internal/exam/reconcile"
)

// Store kinds.
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

// FileStore writes artifacts as <dir>/<subject>/combined_<key>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns where the artifact of fs is written.
func (s *FileStore) Path(fs exam.FileSet) string {
	return filepath.Join(s.dir, safeName(fs.Subject), fmt.Sprintf("combined_%s.json", safeName(fs.Key)))
}

// Save writes to a temporary file, reloads and validates it, and only then
// renames it into place. A failed check leaves no artifact behind.
func (s *FileStore) Save(ctx context.Context, fs exam.FileSet, out *exam.CombinedOutput) (string, error) {
	data, err := reconcile.RoundTrip(out)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := s.Path(fs)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("failed to create subject directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".combined-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	reloaded, err := os.ReadFile(tmpName)
	if err != nil {
		return "", fmt.Errorf("failed to reload artifact: %w", err)
	}
	if err := reconcile.CheckReloaded(reloaded); err != nil {
		return "", err
	}

	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("failed to commit artifact: %w", err)
	}
	committed = true
	log.Printf("[Store] wrote %s", target)
	return target, nil
}

// safeName keeps subject and key usable as single path elements.
func safeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

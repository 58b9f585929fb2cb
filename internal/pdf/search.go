package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
	"github.com/a3tai/mcp-exam-reader/internal/pdf/security"
)

// Role of a document inside a FileSet.
const (
	RoleQuestion     = "question"
	RoleAnswer       = "answer"
	RoleModification = "modification"
)

// exportPreference ranks extensions for answer and modification slots:
// ready-made text beats a PDF that still needs conversion.
var exportPreference = map[string]int{
	KindMarkdown: 0,
	KindText:     1,
	KindSheet:    2,
	KindPDF:      3,
}

// Search handles exam document discovery and FileSet recognition
type Search struct {
	maxFileSize int64
	validator   *Validator
}

// NewSearch creates a new search handler with the specified constraints
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		maxFileSize: maxFileSize,
		validator:   NewValidator(maxFileSize),
	}
}

// SetKey returns the grouping key of a file name: everything before the
// first underscore, or the name without extension when there is none.
func SetKey(name string) string {
	if i := strings.Index(name, "_"); i >= 0 {
		return name[:i]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// RoleOf classifies a file name. "ans" marks an answer key and "mod" an
// errata document; anything else is a question paper.
func RoleOf(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "ans"):
		return RoleAnswer
	case strings.Contains(lower, "mod"):
		return RoleModification
	default:
		return RoleQuestion
	}
}

// RecognizeFileSets groups the documents directly inside a folder into
// FileSets. Question papers must be PDFs; answer and errata slots prefer
// text exports over PDFs.
func (s *Search) RecognizeFileSets(req ExamRecognizeSetsRequest) (*ExamRecognizeSetsResult, error) {
	if req.Directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	absDirectory, err := filepath.Abs(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	guard, err := security.NewFolderGuard(absDirectory)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDirectory)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", req.Directory)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = filepath.Base(absDirectory)
	}

	result := &ExamRecognizeSetsResult{
		Directory: absDirectory,
		Subject:   subject,
		Sets:      []exam.FileSet{},
	}

	sets := map[string]*exam.FileSet{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(absDirectory, name)

		if !IsSupported(name) {
			continue
		}
		if err := guard.Check(path); err != nil {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		key := SetKey(name)
		fs, ok := sets[key]
		if !ok {
			fs = &exam.FileSet{Key: key, Subject: subject}
			sets[key] = fs
		}
		if !assign(fs, RoleOf(name), path) {
			result.Skipped = append(result.Skipped, name)
		}
	}

	keys := make([]string, 0, len(sets))
	for k := range sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		result.Sets = append(result.Sets, *sets[k])
	}
	return result, nil
}

// assign places path into the FileSet slot for role. It returns false when
// the file loses to the slot's current occupant.
func assign(fs *exam.FileSet, role, path string) bool {
	switch role {
	case RoleQuestion:
		if Kind(path) != KindPDF {
			return false
		}
		if current, ok := fs.Question.Get(); ok && current < path {
			return false
		}
		fs.Question = exam.Some(path)
	case RoleAnswer:
		if !prefer(fs.Answer, path) {
			return false
		}
		fs.Answer = exam.Some(path)
	case RoleModification:
		if !prefer(fs.Modification, path) {
			return false
		}
		fs.Modification = exam.Some(path)
	}
	return true
}

func prefer(slot exam.Path, candidate string) bool {
	current, ok := slot.Get()
	if !ok {
		return true
	}
	a, b := exportPreference[Kind(candidate)], exportPreference[Kind(current)]
	if a != b {
		return a < b
	}
	return candidate < current
}

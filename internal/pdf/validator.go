package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document kinds accepted for exam FileSets.
const (
	KindPDF      = ".pdf"
	KindMarkdown = ".md"
	KindText     = ".txt"
	KindSheet    = ".xlsx"
)

// SupportedExtensions lists the file extensions a FileSet member may have.
var SupportedExtensions = []string{KindPDF, KindMarkdown, KindText, KindSheet}

// Validator handles exam document validation
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile reports whether a file is usable as a FileSet member. Problems
// are reported in the result, not as an error.
func (v *Validator) ValidateFile(req ExamValidateFileRequest) (*ExamValidateFileResult, error) {
	result := &ExamValidateFileResult{
		Path:  req.Path,
		Kind:  Kind(req.Path),
		Valid: false,
	}

	var err error
	if result.Kind == KindPDF {
		err = v.validatePDFFile(req.Path)
	} else {
		err = v.validateExport(req.Path)
	}
	if err != nil {
		result.Message = err.Error()
		return result, nil //nolint:nilerr // Return result with validation error, not a processing error
	}

	result.Valid = true
	return result, nil
}

// Kind returns the lower-case extension of path.
func Kind(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsSupported reports whether path has a FileSet-member extension.
func IsSupported(path string) bool {
	kind := Kind(path)
	for _, ext := range SupportedExtensions {
		if kind == ext {
			return true
		}
	}
	return false
}

func (v *Validator) statFile(filePath string) (os.FileInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return nil, err
	}
	return fileInfo, nil
}

// validatePDFFile checks the file and that it opens as a PDF.
func (v *Validator) validatePDFFile(filePath string) error {
	if _, err := v.statFile(filePath); err != nil {
		return err
	}
	if Kind(filePath) != KindPDF {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	f, _, err := pdf.Open(filePath)
	if err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	defer f.Close()

	return nil
}

func (v *Validator) validateExport(filePath string) error {
	_, err := v.statFile(filePath)
	return err
}

// ValidateFileInfo performs basic validation on file info without opening the file
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !IsSupported(filePath) {
		return fmt.Errorf("unsupported file type %q (supported: %s)",
			Kind(filePath), strings.Join(SupportedExtensions, ", "))
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	return path
}

func TestValidator_ValidateFile(t *testing.T) {
	tempDir := t.TempDir()
	validator := NewValidator(64)

	answerKey := writeFile(t, tempDir, "2023_ans.md", "| 1 | A |\n")
	empty := writeFile(t, tempDir, "2023_mod.txt", "")
	large := writeFile(t, tempDir, "2024_ans.txt", strings.Repeat("A ", 100))
	unsupported := writeFile(t, tempDir, "notes.docx", "hello")
	brokenPDF := writeFile(t, tempDir, "2023_exam.pdf", "not a pdf")

	tests := []struct {
		name          string
		path          string
		expectValid   bool
		expectKind    string
		expectMessage string
	}{
		{"empty path", "", false, "", "path cannot be empty"},
		{"non-existent file", filepath.Join(tempDir, "missing.md"), false, KindMarkdown, "does not exist"},
		{"directory", tempDir, false, "", "directory"},
		{"markdown answer key", answerKey, true, KindMarkdown, ""},
		{"empty export", empty, false, KindText, "empty"},
		{"too large", large, false, KindText, "too large"},
		{"unsupported extension", unsupported, false, ".docx", "unsupported"},
		{"unreadable pdf", brokenPDF, false, KindPDF, "invalid PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateFile(ExamValidateFileRequest{Path: tt.path})
			if err != nil {
				t.Fatalf("ValidateFile returned a processing error: %v", err)
			}
			if result.Valid != tt.expectValid {
				t.Errorf("Expected valid=%v, got %v (%s)", tt.expectValid, result.Valid, result.Message)
			}
			if result.Kind != tt.expectKind {
				t.Errorf("Expected kind %q, got %q", tt.expectKind, result.Kind)
			}
			if tt.expectMessage != "" && !strings.Contains(result.Message, tt.expectMessage) {
				t.Errorf("Expected message containing %q, got %q", tt.expectMessage, result.Message)
			}
		})
	}
}

func TestKindAndIsSupported(t *testing.T) {
	tests := []struct {
		path      string
		kind      string
		supported bool
	}{
		{"exam.PDF", KindPDF, true},
		{"2023_ans.md", KindMarkdown, true},
		{"2023_mod.TXT", KindText, true},
		{"key.xlsx", KindSheet, true},
		{"key.xls", ".xls", false},
		{"README", "", false},
	}

	for _, tt := range tests {
		if got := Kind(tt.path); got != tt.kind {
			t.Errorf("Kind(%q) = %q, want %q", tt.path, got, tt.kind)
		}
		if got := IsSupported(tt.path); got != tt.supported {
			t.Errorf("IsSupported(%q) = %v, want %v", tt.path, got, tt.supported)
		}
	}
}

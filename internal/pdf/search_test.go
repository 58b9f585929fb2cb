package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

func TestSetKey(t *testing.T) {
	tests := map[string]string{
		"2023_exam.pdf":       "2023",
		"2023_ans.md":         "2023",
		"2023_mod_final.pdf":  "2023",
		"midterm.pdf":         "midterm",
		"_ans.pdf":            "",
		"spring-2024_ans.pdf": "spring-2024",
	}
	for name, want := range tests {
		assert.Equal(t, want, SetKey(name), name)
	}
}

func TestRoleOf(t *testing.T) {
	tests := map[string]string{
		"2023_exam.pdf":    RoleQuestion,
		"2023_ANS.pdf":     RoleAnswer,
		"2023_answers.md":  RoleAnswer,
		"2023_mod.pdf":     RoleModification,
		"2023_errata.pdf":  RoleQuestion,
		"2023_modans.xlsx": RoleAnswer,
	}
	for name, want := range tests {
		assert.Equal(t, want, RoleOf(name), name)
	}
}

func TestSearch_RecognizeFileSets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "physics")
	require.NoError(t, os.Mkdir(dir, 0o755))

	writeFile(t, dir, "2023_exam.pdf", "%PDF-1.4 question paper")
	writeFile(t, dir, "2023_ans.pdf", "%PDF-1.4 answer key")
	writeFile(t, dir, "2023_ans.md", "| 1 | A |")
	writeFile(t, dir, "2023_mod.txt", "1. B")
	writeFile(t, dir, "2024_exam.pdf", "%PDF-1.4 question paper")
	writeFile(t, dir, "2024_exam.md", "exported question paper")
	writeFile(t, dir, "notes.docx", "ignored")
	writeFile(t, dir, "2025_exam.pdf", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "2022_archive"), 0o755))

	search := NewSearch(1024 * 1024)
	result, err := search.RecognizeFileSets(ExamRecognizeSetsRequest{Directory: dir})
	require.NoError(t, err)

	assert.Equal(t, "physics", result.Subject)
	require.Len(t, result.Sets, 2)

	first := result.Sets[0]
	assert.Equal(t, "2023", first.Key)
	assert.Equal(t, "physics", first.Subject)
	assert.Equal(t, exam.Some(filepath.Join(dir, "2023_exam.pdf")), first.Question)
	assert.Equal(t, exam.Some(filepath.Join(dir, "2023_ans.md")), first.Answer, "text export beats PDF")
	assert.Equal(t, exam.Some(filepath.Join(dir, "2023_mod.txt")), first.Modification)

	second := result.Sets[1]
	assert.Equal(t, "2024", second.Key)
	assert.True(t, second.Question.IsSet())
	assert.False(t, second.Answer.IsSet())
	assert.False(t, second.Modification.IsSet())

	assert.ElementsMatch(t, []string{"2023_ans.pdf", "2024_exam.md", "2025_exam.pdf"}, result.Skipped)
}

func TestSearch_RecognizeFileSets_SubjectOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "2023_exam.pdf", "%PDF-1.4")

	result, err := NewSearch(1024).RecognizeFileSets(ExamRecognizeSetsRequest{Directory: dir, Subject: " chemistry "})
	require.NoError(t, err)
	assert.Equal(t, "chemistry", result.Subject)
	require.Len(t, result.Sets, 1)
	assert.Equal(t, "chemistry/2023", result.Sets[0].Name())
}

func TestSearch_RecognizeFileSets_Errors(t *testing.T) {
	search := NewSearch(1024)

	_, err := search.RecognizeFileSets(ExamRecognizeSetsRequest{})
	assert.Error(t, err)

	_, err = search.RecognizeFileSets(ExamRecognizeSetsRequest{Directory: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "does not exist")
}

func TestSearch_RecognizeSkipsEscapingLinks(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "2023_ans.md")
	require.NoError(t, os.WriteFile(outside, []byte("| 1 | A |"), 0o600))
	if err := os.Symlink(outside, filepath.Join(dir, "2023_ans.md")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	result, err := NewSearch(1024).RecognizeFileSets(ExamRecognizeSetsRequest{Directory: dir})
	require.NoError(t, err)
	assert.Empty(t, result.Sets)
	assert.Equal(t, []string{"2023_ans.md"}, result.Skipped)
}

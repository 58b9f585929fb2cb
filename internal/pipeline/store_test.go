package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
	"github.com/a3tai/mcp-exam-reader/internal/exam/reconcile"
)

func validArtifact() *exam.CombinedOutput {
	q := exam.NewQuestion(1)
	q.Question = "Symbol for iron"
	q.Options["A"] = "Fe"
	q.Options["B"] = "Ir"
	q.Answer = "A"
	q.Images = append(q.Images, exam.ImageRef{MIMEType: exam.MIMEPNG, Data: []byte{0x89, 'P', 'N', 'G'}})
	return exam.NewCombinedOutput("chemistry", "2023", []*exam.Question{q})
}

func TestFileStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	fs := exam.FileSet{Key: "2023", Subject: "chemistry"}
	location, err := store.Save(context.Background(), fs, validArtifact())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "chemistry", "combined_2023.json"), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	require.NoError(t, reconcile.ValidateJSON(data))
	assert.Contains(t, string(data), "data:image/png;base64,")

	entries, err := os.ReadDir(filepath.Dir(location))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_RejectsInvalidArtifact(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	out := validArtifact()
	out.Subjects["chemistry"]["2023"][0].Answer = "E"

	fs := exam.FileSet{Key: "2023", Subject: "chemistry"}
	_, err = store.Save(context.Background(), fs, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exam.ErrSchemaViolation))
	assert.NoFileExists(t, store.Path(fs))
}

func TestFileStore_Cancelled(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs := exam.FileSet{Key: "2023", Subject: "chemistry"}
	_, err = store.Save(ctx, fs, validArtifact())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoFileExists(t, store.Path(fs))
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"chemistry":  "chemistry",
		"a/b":        "a_b",
		`c:\d`:       "c__d",
		"..":         "_",
		"  ":         "_",
		"2023 final": "2023 final",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeName(in), in)
	}
}

func TestConnectMongoStore_RequiresSettings(t *testing.T) {
	_, err := ConnectMongoStore(context.Background(), "", "exams")
	assert.ErrorContains(t, err, "URI")

	_, err = ConnectMongoStore(context.Background(), "mongodb://localhost:27017", "")
	assert.ErrorContains(t, err, "database")
}

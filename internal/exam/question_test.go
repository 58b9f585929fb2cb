package exam

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortLines(t *testing.T) {
	lines := []Line{
		{X: 50, Y: 20, Text: "c"},
		{X: 10, Y: 10, Text: "a"},
		{X: 10, Y: 20, Text: "b"},
	}
	SortLines(lines)
	assert.Equal(t, "a", lines[0].Text)
	assert.Equal(t, "b", lines[1].Text)
	assert.Equal(t, "c", lines[2].Text)
}

func TestQuestion_Append(t *testing.T) {
	q := NewQuestion(4)
	assert.Equal(t, "4", q.Key())
	q.AppendText("first")
	q.AppendText("second")
	assert.Equal(t, "first\nsecond", q.Question)

	q.AppendOption("A", "one")
	q.AppendOption("A", "more")
	assert.Equal(t, "one\nmore", q.Options["A"])
}

func TestQuestionRange_ContainsBoundaries(t *testing.T) {
	r := QuestionRange{YStart: 10, YEnd: 20}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(20.01))
	assert.Equal(t, 15.0, Rect{Y0: 10, Y1: 20}.CenterY())
}

func TestPath_Optional(t *testing.T) {
	var zero Path
	assert.False(t, zero.IsSet())
	assert.Equal(t, "<none>", zero.String())

	p := Some("/exams/a.pdf")
	v, ok := p.Get()
	assert.True(t, ok)
	assert.Equal(t, "/exams/a.pdf", v)

	fs := FileSet{Key: "2023", Subject: "math", Question: Some("q.pdf"), Answer: None()}
	data, err := json.Marshal(fs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"2023","subject":"math","question":"q.pdf","answer":null,"modification":null}`, string(data))

	var back FileSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, fs, back)
	assert.Equal(t, "math/2023", back.Name())
}

func TestCombinedOutput_QuestionCount(t *testing.T) {
	out := NewCombinedOutput("math", "2023", []*Question{NewQuestion(1), NewQuestion(2)})
	out.Subjects["math"]["2024"] = []*Question{NewQuestion(1)}
	assert.Equal(t, 3, out.QuestionCount())
}

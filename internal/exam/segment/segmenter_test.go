package segment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

type fakeDocument struct {
	pages []Page
	errs  map[int]error
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) Page(n int) (Page, error) {
	if err := d.errs[n]; err != nil {
		return Page{}, err
	}
	return d.pages[n-1], nil
}

// page builds a page from texts laid out top to bottom, 20 units apart.
func page(texts ...string) Page {
	p := Page{Bottom: 800}
	for i, s := range texts {
		p.Lines = append(p.Lines, exam.Line{X: 40, Y: float64(50 + 20*i), Text: s})
	}
	return p
}

func segment(t *testing.T, pages ...Page) *Result {
	t.Helper()
	res, err := NewSegmenter(false).Segment(context.Background(), &fakeDocument{pages: pages})
	require.NoError(t, err)
	return res
}

func ids(qs []*exam.Question) []int {
	out := make([]int, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func TestSegment_SequentialAcrossPages(t *testing.T) {
	res := segment(t,
		page("1. First question", "A. one", "B. two", "2", "Second question", "A. three"),
		page("3. Third", "C. four", "4. Fourth"),
		page("5", "Fifth body"),
	)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(res.Questions))
	assert.Equal(t, "First question", res.Questions[0].Question)
	assert.Equal(t, map[string]string{"A": "one", "B": "two"}, res.Questions[0].Options)
	assert.Equal(t, "Second question", res.Questions[1].Question)
	assert.Equal(t, "Fifth body", res.Questions[4].Question)
	assert.Equal(t, 3, res.Pages)
}

func TestSegment_BodyWrapsOntoNextPage(t *testing.T) {
	res := segment(t,
		page("1. A long question that", "keeps going"),
		page("onto the next page", "A. yes", "B. no", "2. Next"),
	)
	require.Len(t, res.Questions, 2)
	q := res.Questions[0]
	assert.Equal(t, "A long question that\nkeeps going\nonto the next page", q.Question)
	assert.Equal(t, map[string]string{"A": "yes", "B": "no"}, q.Options)
	assert.Equal(t, "Next", res.Questions[1].Question)
}

func TestSegment_OptionContinuesAcrossPage(t *testing.T) {
	res := segment(t,
		page("1. Stem", "A. first", "B. an option that"),
		page("wraps here", "2. Next"),
	)
	require.Len(t, res.Questions, 2)
	assert.Equal(t, "an option that\nwraps here", res.Questions[0].Options["B"])
	assert.Equal(t, "Stem", res.Questions[0].Question)
}

func TestSegment_LetterEquivalentOptions(t *testing.T) {
	res := segment(t, page(
		"1. Pick one",
		"\ue18c alpha",
		"Ｂ beta",
		"C|gamma",
		"D．delta",
		"more delta",
	))
	require.Len(t, res.Questions, 1)
	assert.Equal(t, map[string]string{
		"A": "alpha",
		"B": "beta",
		"C": "gamma",
		"D": "delta\nmore delta",
	}, res.Questions[0].Options)
}

func TestSegment_NonMatchingNumbersAreText(t *testing.T) {
	res := segment(t, page(
		"1. How many legs does a spider have?",
		"8",
		"2",
		"5. Not the next number",
	))
	require.Len(t, res.Questions, 2)
	assert.Equal(t, "How many legs does a spider have?\n8", res.Questions[0].Question)
	assert.Equal(t, "5. Not the next number", res.Questions[1].Question)
}

func TestSegment_FullWidthDigits(t *testing.T) {
	res := segment(t, page("１．全角题目", "A. 是", "２", "第二题"))
	assert.Equal(t, []int{1, 2}, ids(res.Questions))
	assert.Equal(t, "全角题目", res.Questions[0].Question)
	assert.Equal(t, "第二题", res.Questions[1].Question)
}

func TestSegment_LinesBeforeFirstMarkerDropped(t *testing.T) {
	res := segment(t, page("Mathematics Final", "Name: ____", "1. Real start"))
	require.Len(t, res.Questions, 1)
	assert.Equal(t, "Real start", res.Questions[0].Question)
	require.NotEmpty(t, res.Warnings)
	assert.True(t, errors.Is(res.Warnings[0], exam.ErrMalformedLayout))
}

func TestSegment_UnsortedInputIsOrdered(t *testing.T) {
	p := Page{Bottom: 800, Lines: []exam.Line{
		{X: 40, Y: 90, Text: "A. late"},
		{X: 40, Y: 50, Text: "1. Stem"},
		{X: 200, Y: 70, Text: "right"},
		{X: 40, Y: 70, Text: "left"},
		{X: 40, Y: 60, Text: "   "},
	}}
	res := segment(t, p)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, "Stem\nleft\nright", res.Questions[0].Question)
	assert.Equal(t, "late", res.Questions[0].Options["A"])
}

func TestSegment_UnreadablePageIsWarning(t *testing.T) {
	doc := &fakeDocument{
		pages: []Page{page("1. One"), {}, page("2. Two")},
		errs:  map[int]error{2: errors.New("broken content stream")},
	}
	res, err := NewSegmenter(true).Segment(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(res.Questions))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 2, res.Warnings[0].Page)
	assert.Contains(t, res.Warnings[0].Error(), "broken content stream")
}

func TestSegment_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSegmenter(false).Segment(ctx, &fakeDocument{pages: []Page{page("1. x")}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSegment_NilDocument(t *testing.T) {
	_, err := NewSegmenter(false).Segment(context.Background(), nil)
	assert.True(t, errors.Is(err, exam.ErrMissingInput))
}

func TestProcessPage_Ranges(t *testing.T) {
	state := NewState()
	state, first := ProcessPage(state, Page{Number: 1, Bottom: 800, Lines: []exam.Line{
		{Y: 100, Text: "1. One"},
		{Y: 300, Text: "2. Two"},
	}})
	require.Len(t, first.Ranges, 2)
	assert.Equal(t, 100.0, first.Ranges[0].YStart)
	assert.Equal(t, 300.0, first.Ranges[0].YEnd)
	assert.Equal(t, 300.0, first.Ranges[1].YStart)
	assert.Equal(t, 800.0, first.Ranges[1].YEnd)
	assert.Equal(t, 3, state.NextID)
	assert.Equal(t, 2, state.Last.ID)

	state, second := ProcessPage(state, Page{Number: 2, Bottom: 700, Lines: []exam.Line{
		{Y: 40, Text: "continued"},
		{Y: 200, Text: "3. Three"},
	}})
	require.Len(t, second.Ranges, 2)
	assert.Same(t, first.Questions[1], second.Ranges[0].Question)
	assert.Equal(t, 0.0, second.Ranges[0].YStart)
	assert.Equal(t, 200.0, second.Ranges[0].YEnd)
	assert.Equal(t, 700.0, second.Ranges[1].YEnd)
	assert.Equal(t, "Two\ncontinued", first.Questions[1].Question)
	assert.Equal(t, 4, state.NextID)

	// A page with no markers at all belongs entirely to the carried question.
	_, third := ProcessPage(state, Page{Number: 3, Bottom: 600, Lines: []exam.Line{{Y: 10, Text: "tail"}}})
	require.Len(t, third.Ranges, 1)
	assert.Equal(t, 600.0, third.Ranges[0].YEnd)
	assert.Empty(t, third.Questions)
	assert.True(t, strings.HasSuffix(second.Questions[0].Question, "tail"))
}

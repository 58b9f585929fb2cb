// Package segment rebuilds numbered exam questions from positioned page text.
package segment

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// Page is one page of positioned content in top-down coordinates.
type Page struct {
	Number int
	Lines  []exam.Line
	Bottom float64
	Images []exam.PageImage
}

// Document supplies pages in order. Page numbers are 1-based.
type Document interface {
	PageCount() int
	Page(n int) (Page, error)
}

// State is the running segmentation state threaded from one page to the next.
type State struct {
	NextID     int
	Last       *exam.Question
	LastOption string
}

// NewState returns the state before the first page.
func NewState() State {
	return State{NextID: 1}
}

// PageResult is what one page step produced.
type PageResult struct {
	// Questions opened on this page, in order.
	Questions []*exam.Question
	// Ranges covers the carried question (if any) followed by the page's own questions.
	Ranges   []exam.QuestionRange
	Warnings []*exam.Error
}

// open tracks the question currently being filled on a page.
type open struct {
	q      *exam.Question
	yStart float64
}

// ProcessPage runs the carry-over and main phases for one page.
func ProcessPage(state State, page Page) (State, PageResult) {
	var res PageResult
	lines := make([]exam.Line, 0, len(page.Lines))
	for _, l := range page.Lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		lines = append(lines, exam.Line{X: l.X, Y: l.Y, Text: text})
	}
	exam.SortLines(lines)

	idx := 0
	if state.Last != nil {
		for idx < len(lines) && !isNextMarker(lines[idx].Text, state.NextID) {
			appendLine(state.Last, &state.LastOption, lines[idx].Text)
			idx++
		}
		if idx > 0 {
			end := page.Bottom
			if idx < len(lines) {
				end = lines[idx].Y
			}
			res.Ranges = append(res.Ranges, exam.QuestionRange{Question: state.Last, YStart: 0, YEnd: end})
		}
	}

	var cur *open
	flush := func(yEnd float64) {
		if cur == nil {
			return
		}
		res.Ranges = append(res.Ranges, exam.QuestionRange{Question: cur.q, YStart: cur.yStart, YEnd: yEnd})
		res.Questions = append(res.Questions, cur.q)
		state.Last = cur.q
		cur = nil
	}

	dropped := 0
	for _, l := range lines[idx:] {
		if n, ok := exam.ParseBareInteger(l.Text); ok {
			if n == state.NextID {
				flush(l.Y)
				cur = &open{q: exam.NewQuestion(n), yStart: l.Y}
				state.NextID++
				state.LastOption = ""
				continue
			}
			if n > state.NextID && n < state.NextID+10 && cur != nil {
				res.Warnings = append(res.Warnings, layoutWarning(page.Number,
					"question number %d found while expecting %d, kept as text", n, state.NextID))
			}
		} else if id, rest, ok := exam.ParseQuestionMarker(l.Text); ok && id == state.NextID {
			flush(l.Y)
			q := exam.NewQuestion(id)
			q.Question = rest
			cur = &open{q: q, yStart: l.Y}
			state.NextID++
			state.LastOption = ""
			continue
		}

		if cur == nil {
			dropped++
			continue
		}
		appendLine(cur.q, &state.LastOption, l.Text)
	}
	flush(page.Bottom)

	if dropped > 0 {
		res.Warnings = append(res.Warnings, layoutWarning(page.Number,
			"%d line(s) before the first question marker were dropped", dropped))
	}
	return state, res
}

// appendLine applies one non-marker line to q: option markers set an option,
// other text continues the last option or the body.
func appendLine(q *exam.Question, lastOption *string, text string) {
	if letter, rest, ok := exam.ParseOptionMarker(text); ok {
		q.Options[letter] = rest
		*lastOption = letter
		return
	}
	if *lastOption != "" {
		q.AppendOption(*lastOption, text)
		return
	}
	q.AppendText(text)
}

func isNextMarker(text string, next int) bool {
	if n, ok := exam.ParseBareInteger(text); ok {
		return n == next
	}
	id, _, ok := exam.ParseQuestionMarker(text)
	return ok && id == next
}

func layoutWarning(page int, format string, args ...interface{}) *exam.Error {
	e := exam.NewError(exam.ErrorTypeMalformedLayout, format, args...)
	e.Page = page
	return e
}

// Result is a segmented document.
type Result struct {
	Questions []*exam.Question `json:"questions"`
	Pages     int              `json:"pages"`
	Images    int              `json:"images"`
	Dropped   int              `json:"dropped_images"`
	Warnings  []*exam.Error    `json:"warnings,omitempty"`
}

// Segmenter turns a Document into questions with their images attached.
type Segmenter struct {
	Debug bool
}

// NewSegmenter creates a segmenter.
func NewSegmenter(debug bool) *Segmenter {
	return &Segmenter{Debug: debug}
}

// Segment processes pages in order. Unreadable pages become MalformedLayout
// warnings; only cancellation aborts.
func (s *Segmenter) Segment(ctx context.Context, doc Document) (*Result, error) {
	if doc == nil {
		return nil, exam.NewError(exam.ErrorTypeMissingInput, "no document to segment")
	}

	res := &Result{Questions: []*exam.Question{}, Pages: doc.PageCount()}
	state := NewState()

	for n := 1; n <= res.Pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("segmentation cancelled at page %d: %w", n, err)
		}

		page, err := doc.Page(n)
		if err != nil {
			w := layoutWarning(n, "page skipped").Wrap(err)
			res.Warnings = append(res.Warnings, w)
			if s.Debug {
				log.Printf("[Segment] %v", w)
			}
			continue
		}
		if page.Number == 0 {
			page.Number = n
		}

		var pr PageResult
		state, pr = ProcessPage(state, page)
		res.Questions = append(res.Questions, pr.Questions...)
		res.Warnings = append(res.Warnings, pr.Warnings...)

		assigned := AssignImages(pr.Ranges, page.Images)
		res.Images += assigned
		res.Dropped += len(page.Images) - assigned

		if s.Debug {
			log.Printf("[Segment] page %d: %d lines, %d new questions, %d/%d images placed",
				n, len(page.Lines), len(pr.Questions), assigned, len(page.Images))
		}
	}

	return res, nil
}

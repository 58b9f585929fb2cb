package exam

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Line is a positioned text fragment on one page. Coordinates are top-down:
// Y grows towards the bottom edge of the page.
type Line struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

// SortLines orders lines by (Y, X), the reading order the segmenter expects.
func SortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Y != lines[j].Y {
			return lines[i].Y < lines[j].Y
		}
		return lines[i].X < lines[j].X
	})
}

// Rect is a placement rectangle in top-down page coordinates.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() float64 {
	return (r.Y0 + r.Y1) / 2
}

// PageImage is an embedded image as delivered by the page provider.
type PageImage struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
	Rect     Rect   `json:"rect"`
}

// Question is one exam item.
type Question struct {
	ID           int               `json:"id"`
	Question     string            `json:"question"`
	Options      map[string]string `json:"options"`
	Answer       string            `json:"answer"`
	Images       []ImageRef        `json:"images"`
	Modification string            `json:"modification,omitempty"`
}

// NewQuestion returns an empty question with the given id.
func NewQuestion(id int) *Question {
	return &Question{
		ID:      id,
		Options: make(map[string]string),
		Images:  []ImageRef{},
	}
}

// Key returns the id in the string form used by answer and modification maps.
func (q *Question) Key() string {
	return strconv.Itoa(q.ID)
}

// AppendText appends a line to the question body, newline-joined.
func (q *Question) AppendText(text string) {
	if q.Question == "" {
		q.Question = text
		return
	}
	q.Question += "\n" + text
}

// AppendOption appends a line to an existing option value, newline-joined.
func (q *Question) AppendOption(letter, text string) {
	if q.Options == nil {
		q.Options = make(map[string]string)
	}
	if q.Options[letter] == "" {
		q.Options[letter] = text
		return
	}
	q.Options[letter] += "\n" + text
}

// QuestionRange is the vertical span one question owns on one page.
type QuestionRange struct {
	Question *Question
	YStart   float64
	YEnd     float64
}

// Contains reports whether y lies inside the range, boundaries included.
func (r QuestionRange) Contains(y float64) bool {
	return r.YStart <= y && y <= r.YEnd
}

// AnswerMap maps question ids to answer letters.
type AnswerMap map[string]string

// ModificationMap maps question ids to corrected values from an errata document.
type ModificationMap map[string]string

// Path is an optional document path. The zero value is absent.
type Path struct {
	value string
	set   bool
}

// Some returns a present path.
func Some(path string) Path {
	return Path{value: path, set: true}
}

// None returns an absent path.
func None() Path {
	return Path{}
}

// Get returns the path and whether it is present.
func (p Path) Get() (string, bool) {
	return p.value, p.set
}

// IsSet reports whether the path is present.
func (p Path) IsSet() bool {
	return p.set
}

// String returns the path or "<none>".
func (p Path) String() string {
	if !p.set {
		return "<none>"
	}
	return p.value
}

// MarshalJSON renders an absent path as null.
func (p Path) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte("null"), nil
	}
	return json.Marshal(p.value)
}

// UnmarshalJSON accepts null or a string.
func (p *Path) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = None()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = Some(s)
	return nil
}

// FileSet is the question/answer/modification document triple for one exam.
type FileSet struct {
	Key          string `json:"key"`
	Subject      string `json:"subject"`
	Question     Path   `json:"question"`
	Answer       Path   `json:"answer"`
	Modification Path   `json:"modification"`
}

// Name identifies the set in logs and errors.
func (fs FileSet) Name() string {
	if fs.Subject == "" {
		return fs.Key
	}
	return fs.Subject + "/" + fs.Key
}

// CombinedOutput groups questions by subject and source.
type CombinedOutput struct {
	Subjects map[string]map[string][]*Question `json:"subjects"`
}

// NewCombinedOutput wraps one question list as subject -> source -> questions.
func NewCombinedOutput(subject, source string, questions []*Question) *CombinedOutput {
	return &CombinedOutput{
		Subjects: map[string]map[string][]*Question{
			subject: {source: questions},
		},
	}
}

// QuestionCount returns the number of questions across all subjects and sources.
func (o *CombinedOutput) QuestionCount() int {
	n := 0
	for _, sources := range o.Subjects {
		for _, qs := range sources {
			n += len(qs)
		}
	}
	return n
}

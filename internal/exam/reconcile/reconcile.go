// Package reconcile resolves answers for segmented questions and validates the
// combined artifact before it is persisted.
package reconcile

import (
	"sort"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// Source names which mapping resolved the answers.
type Source string

const (
	SourceAnswers       Source = "answers"
	SourceModifications Source = "modifications"
	SourceMerged        Source = "merged"
)

// Coverage describes how a mapping lines up with a question list.
type Coverage struct {
	Missing     []string `json:"missing,omitempty"`
	OutOfDomain []string `json:"out_of_domain,omitempty"`
	Unexpected  []string `json:"unexpected,omitempty"`
}

// Complete reports whether the mapping resolves every question to a letter
// and nothing else.
func (c Coverage) Complete() bool {
	return len(c.Missing) == 0 && len(c.OutOfDomain) == 0 && len(c.Unexpected) == 0
}

// IDs lists every problematic id.
func (c Coverage) IDs() []string {
	ids := make([]string, 0, len(c.Missing)+len(c.OutOfDomain)+len(c.Unexpected))
	ids = append(ids, c.Missing...)
	ids = append(ids, c.OutOfDomain...)
	ids = append(ids, c.Unexpected...)
	return ids
}

func (c Coverage) String() string {
	var parts []string
	if len(c.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(c.Missing, ","))
	}
	if len(c.OutOfDomain) > 0 {
		parts = append(parts, "not A-D "+strings.Join(c.OutOfDomain, ","))
	}
	if len(c.Unexpected) > 0 {
		parts = append(parts, "unknown "+strings.Join(c.Unexpected, ","))
	}
	return strings.Join(parts, "; ")
}

// Check compares a mapping against the question list. A mapping is valid
// when it has exactly one entry per question and every value is A-D.
func Check(questions []*exam.Question, m map[string]string) Coverage {
	var c Coverage
	want := make(map[string]bool, len(questions))
	for _, q := range questions {
		key := q.Key()
		want[key] = true
		v, ok := m[key]
		if !ok {
			c.Missing = append(c.Missing, key)
			continue
		}
		if !exam.IsLetter(v) {
			c.OutOfDomain = append(c.OutOfDomain, key)
		}
	}
	for key := range m {
		if !want[key] {
			c.Unexpected = append(c.Unexpected, key)
		}
	}
	sortIDs(c.Missing)
	sortIDs(c.OutOfDomain)
	sortIDs(c.Unexpected)
	return c
}

// Resolve picks the mapping that answers every question: the answer key when
// it is complete, else the errata when complete, else both merged with the
// errata taking precedence.
func Resolve(questions []*exam.Question, answers exam.AnswerMap, mods exam.ModificationMap) (map[string]string, Source, error) {
	if len(questions) == 0 {
		return nil, "", exam.NewError(exam.ErrorTypeMissingInput, "no questions to reconcile")
	}
	if len(answers) == 0 && len(mods) == 0 {
		return nil, "", exam.NewError(exam.ErrorTypeExtractionEmpty, "no analyzable source")
	}

	if Check(questions, answers).Complete() {
		return answers, SourceAnswers, nil
	}
	if Check(questions, mods).Complete() {
		return mods, SourceModifications, nil
	}

	merged := make(map[string]string, len(answers)+len(mods))
	for k, v := range answers {
		merged[k] = v
	}
	for k, v := range mods {
		merged[k] = v
	}
	coverage := Check(questions, merged)
	if !coverage.Complete() {
		return nil, "", exam.NewError(exam.ErrorTypeValidationFailed,
			"answers cannot be resolved for %d question(s)", len(questions)).
			WithContext(coverage.String()).
			WithIDs(coverage.IDs())
	}
	return merged, SourceMerged, nil
}

// Reconcile resolves answers, records errata text, and returns the combined
// output for one source. Questions are only mutated once resolution succeeds.
func Reconcile(subject, source string, questions []*exam.Question, answers exam.AnswerMap, mods exam.ModificationMap) (*exam.CombinedOutput, error) {
	resolved, _, err := Resolve(questions, answers, mods)
	if err != nil {
		return nil, err
	}
	return Apply(subject, source, questions, resolved, mods)
}

// Apply writes an already resolved mapping into the questions, records errata
// text from mods, and validates the combined output.
func Apply(subject, source string, questions []*exam.Question, resolved map[string]string, mods exam.ModificationMap) (*exam.CombinedOutput, error) {
	if coverage := Check(questions, resolved); !coverage.Complete() {
		return nil, exam.NewError(exam.ErrorTypeValidationFailed, "resolved answers do not cover the questions").
			WithContext(coverage.String()).
			WithIDs(coverage.IDs())
	}

	for _, q := range questions {
		q.Answer = resolved[q.Key()]
		if v, ok := mods[q.Key()]; ok {
			q.Modification = v
		}
		for i := range q.Images {
			q.Images[i].Normalize()
		}
	}

	out := exam.NewCombinedOutput(subject, source, questions)
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
}

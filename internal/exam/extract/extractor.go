package extract

import (
	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// Result is a mapping together with the strategy that produced it.
type Result struct {
	Values   map[string]string `json:"values"`
	Strategy string            `json:"strategy,omitempty"`
}

// Extractor runs an ordered strategy policy per role. The first strategy
// yielding entries wins.
type Extractor struct {
	answers       []Strategy
	modifications []Strategy
}

// NewExtractor builds an extractor from strategy names. Empty policies fall
// back to the defaults.
func NewExtractor(answerPolicy, modificationPolicy []string) (*Extractor, error) {
	if len(answerPolicy) == 0 {
		answerPolicy = DefaultAnswerPolicy
	}
	if len(modificationPolicy) == 0 {
		modificationPolicy = DefaultModificationPolicy
	}

	answers, err := resolve(answerPolicy)
	if err != nil {
		return nil, err
	}
	mods, err := resolve(modificationPolicy)
	if err != nil {
		return nil, err
	}
	return &Extractor{answers: answers, modifications: mods}, nil
}

// DefaultExtractor returns an extractor using the default policies.
func DefaultExtractor() *Extractor {
	e, err := NewExtractor(nil, nil)
	if err != nil {
		panic(err)
	}
	return e
}

func resolve(names []string) ([]Strategy, error) {
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}

// Policy returns the strategy names configured for role.
func (e *Extractor) Policy(role Role) []string {
	var names []string
	for _, s := range e.policy(role) {
		names = append(names, s.Name())
	}
	return names
}

func (e *Extractor) policy(role Role) []Strategy {
	if role == RoleModifications {
		return e.modifications
	}
	return e.answers
}

// Extract runs the policy for role. When no strategy finds anything the
// result holds an empty map and the error is ExtractionEmpty.
func (e *Extractor) Extract(text string, role Role) (Result, error) {
	for _, s := range e.policy(role) {
		values := s.Extract(text, role)
		if len(values) > 0 {
			return Result{Values: values, Strategy: s.Name()}, nil
		}
	}
	return Result{Values: map[string]string{}},
		exam.NewError(exam.ErrorTypeExtractionEmpty, "no %s found", role)
}

// Answers extracts an id to letter mapping.
func (e *Extractor) Answers(text string) (exam.AnswerMap, error) {
	res, err := e.Extract(text, RoleAnswers)
	return exam.AnswerMap(res.Values), err
}

// Modifications extracts an id to corrected value mapping.
func (e *Extractor) Modifications(text string) (exam.ModificationMap, error) {
	res, err := e.Extract(text, RoleModifications)
	return exam.ModificationMap(res.Values), err
}

// ExtractAnswers runs the default answer policy.
func ExtractAnswers(text string) (exam.AnswerMap, error) {
	return DefaultExtractor().Answers(text)
}

// ExtractModifications runs the default modification policy.
func ExtractModifications(text string) (exam.ModificationMap, error) {
	return DefaultExtractor().Modifications(text)
}

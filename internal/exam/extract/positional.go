package extract

import (
	"strconv"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// PositionalStrategy numbers every letter-equivalent glyph in reading order
// from 1. It is the last resort for answer keys printed as a bare sequence.
type PositionalStrategy struct{}

func (PositionalStrategy) Name() string { return StrategyPositional }

func (PositionalStrategy) Extract(text string, _ Role) map[string]string {
	m := map[string]string{}
	for _, glyph := range exam.LetterGlyphPattern.FindAllString(text, -1) {
		letter, ok := exam.NormalizeLetter(glyph)
		if !ok {
			continue
		}
		m[strconv.Itoa(len(m)+1)] = letter
	}
	return m
}

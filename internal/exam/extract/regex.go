package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

const glyphClass = `[A-DＡ-Ｄ\x{E18C}-\x{E18F}]`

var (
	// "12. B", "12、B", "12:B", "12 - B", "12 B".
	answerPair = regexp.MustCompile(`([0-9０-９]+)\s*[.．、:：-]?\s*(` + glyphClass + `)`)
	// "12. B" anywhere in the text.
	inlinePair = regexp.MustCompile(`([0-9０-９]{1,3})\s*[.．]\s*(` + glyphClass + `)`)
	// "12 # corrected text" on its own line.
	hashLine = regexp.MustCompile(`^([0-9０-９]+)\s*[#＃]\s*(.+)$`)
)

// LineRegexStrategy reads key lines: lines that open with an "<id> <letter>"
// pair, tolerating the usual separators. Every pair on such a line counts, so
// "1.A 2.B 3.C" rows from native PDF text are read whole.
type LineRegexStrategy struct{}

func (LineRegexStrategy) Name() string { return StrategyLineRegex }

func (LineRegexStrategy) Extract(text string, _ Role) map[string]string {
	m := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		pairs := answerPair.FindAllStringSubmatchIndex(line, -1)
		if len(pairs) == 0 || pairs[0][0] != 0 || !endsWord(line, pairs[0][5]) {
			continue
		}
		for _, sub := range pairs {
			if startsInsideNumber(line, sub[2]) || !endsWord(line, sub[5]) {
				continue
			}
			putFirst(m, line[sub[2]:sub[3]], line[sub[4]:sub[5]])
		}
	}
	return m
}

// PlainRegexStrategy finds inline "<id>. <letter>" pairs anywhere in the text
// and, for modifications, "<id> # <free text>" lines.
type PlainRegexStrategy struct{}

func (PlainRegexStrategy) Name() string { return StrategyPlainRegex }

func (PlainRegexStrategy) Extract(text string, role Role) map[string]string {
	m := map[string]string{}
	for _, sub := range inlinePair.FindAllStringSubmatchIndex(text, -1) {
		if startsInsideNumber(text, sub[2]) || !endsWord(text, sub[5]) {
			continue
		}
		putFirst(m, text[sub[2]:sub[3]], text[sub[4]:sub[5]])
	}
	if role != RoleModifications {
		return m
	}
	for _, line := range strings.Split(text, "\n") {
		sub := hashLine.FindStringSubmatch(strings.TrimSpace(line))
		if sub == nil {
			continue
		}
		putFirst(m, sub[1], sub[2])
	}
	return m
}

func putFirst(m map[string]string, rawID, rawValue string) {
	id, ok := exam.LeadingID(rawID)
	if !ok {
		return
	}
	if _, dup := m[id]; dup {
		return
	}
	if v := exam.NormalizeValue(rawValue); v != "" {
		m[id] = v
	}
}

// endsWord reports whether the glyph ending at i is not followed by another
// Latin letter, so "1. Apple" is not read as answer A.
func endsWord(s string, i int) bool {
	r, size := utf8.DecodeRuneInString(s[i:])
	return size == 0 || !isLatinLetter(r)
}

func isLatinLetter(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case r >= 'Ａ' && r <= 'Ｚ', r >= 'ａ' && r <= 'ｚ':
		return true
	}
	return false
}

func startsInsideNumber(s string, i int) bool {
	r, size := utf8.DecodeLastRuneInString(s[:i])
	if size == 0 {
		return false
	}
	return unicode.IsDigit(r)
}

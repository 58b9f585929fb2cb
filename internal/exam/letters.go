package exam

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Letters is the canonical option alphabet.
var Letters = []string{"A", "B", "C", "D"}

// optionGlyphs maps the private-use glyphs some exam fonts use for option
// markers, and the full-width letters, onto canonical letters.
var optionGlyphs = map[rune]string{
	'\ue18c': "A",
	'\ue18d': "B",
	'\ue18e': "C",
	'\ue18f': "D",
	'Ａ':      "A",
	'Ｂ':      "B",
	'Ｃ':      "C",
	'Ｄ':      "D",
}

// LetterGlyphPattern matches any single letter-equivalent glyph.
var LetterGlyphPattern = regexp.MustCompile(`[A-DＡ-Ｄ\x{E18C}-\x{E18F}]`)

var questionStart = regexp.MustCompile(`^([0-9０-９]{1,3})[.．]\s*(.*)$`)

// FoldWidth maps full-width digits, letters and punctuation onto their ASCII forms.
func FoldWidth(s string) string {
	return width.Fold.String(s)
}

// IsLetter reports whether s is one of A, B, C or D.
func IsLetter(s string) bool {
	switch s {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

// GlyphLetter returns the canonical letter for a single glyph.
func GlyphLetter(r rune) (string, bool) {
	if letter, ok := optionGlyphs[r]; ok {
		return letter, true
	}
	if r >= 'A' && r <= 'D' {
		return string(r), true
	}
	return "", false
}

// NormalizeLetter folds s to a canonical letter when it is exactly one
// letter-equivalent glyph, ignoring surrounding space.
func NormalizeLetter(s string) (string, bool) {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return "", false
	}
	return GlyphLetter(r)
}

// NormalizeValue returns the canonical letter for single-glyph values and the
// trimmed text otherwise. Free-text errata keep their original characters.
func NormalizeValue(s string) string {
	if letter, ok := NormalizeLetter(s); ok {
		return letter
	}
	return strings.TrimSpace(s)
}

// ParseOptionMarker reports whether line opens an option. It returns the
// canonical letter and the text after the marker.
func ParseOptionMarker(line string) (letter, rest string, ok bool) {
	r, size := utf8.DecodeRuneInString(line)
	if size == 0 {
		return "", "", false
	}
	if letter, ok := optionGlyphs[r]; ok {
		return letter, strings.TrimSpace(line[size:]), true
	}
	if r < 'A' || r > 'D' {
		return "", "", false
	}
	sep, sepSize := utf8.DecodeRuneInString(line[size:])
	if sepSize == 0 || !isOptionSeparator(sep) {
		return "", "", false
	}
	return string(r), strings.TrimSpace(line[size+sepSize:]), true
}

func isOptionSeparator(r rune) bool {
	return r == '.' || r == '．' || r == '|' || unicode.IsSpace(r)
}

// ParseQuestionMarker matches "<id>. <rest>" with ASCII or full-width digits
// and dot. rest keeps the original characters.
func ParseQuestionMarker(line string) (id int, rest string, ok bool) {
	m := questionStart.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	id, err := strconv.Atoi(FoldWidth(m[1]))
	if err != nil {
		return 0, "", false
	}
	return id, strings.TrimSpace(m[2]), true
}

// ParseBareInteger matches a line made only of digits.
func ParseBareInteger(line string) (int, bool) {
	folded := FoldWidth(line)
	if folded == "" || len(folded) > 9 {
		return 0, false
	}
	for _, r := range folded {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(folded)
	if err != nil {
		return 0, false
	}
	return n, true
}

var firstInteger = regexp.MustCompile(`[0-9]+`)

// LeadingID extracts the first integer in s, after width folding, as an id key.
func LeadingID(s string) (string, bool) {
	m := firstInteger.FindString(FoldWidth(s))
	if m == "" {
		return "", false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}

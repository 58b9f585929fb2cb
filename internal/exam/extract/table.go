package extract

import (
	"regexp"
	"strings"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

var separatorCell = regexp.MustCompile(`^:?-{3,}:?$`)

// TableStrategy reads markdown pipe tables. Each maximal run of table lines
// yields one mapping and the run with the most entries wins; on a tie the
// earlier run is kept.
type TableStrategy struct{}

func (TableStrategy) Name() string { return StrategyTable }

func (TableStrategy) Extract(text string, role Role) map[string]string {
	best := map[string]string{}
	for _, run := range tableRuns(text) {
		m := mapRun(run, role)
		if len(m) > len(best) {
			best = m
		}
	}
	return best
}

// tableRuns splits text into maximal runs of rows, each row already split
// into trimmed cells.
func tableRuns(text string) [][][]string {
	var runs [][][]string
	var cur [][]string
	inRun := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			if inRun {
				runs = append(runs, cur)
				cur, inRun = nil, false
			}
			continue
		}
		inRun = true
		cells := splitCells(line)
		if len(cells) < 2 || isSeparatorRow(cells) {
			continue
		}
		cur = append(cur, cells)
	}
	if inRun {
		runs = append(runs, cur)
	}
	return runs
}

func splitCells(line string) []string {
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	seen := false
	for _, c := range cells {
		if c == "" {
			continue
		}
		if !separatorCell.MatchString(c) {
			return false
		}
		seen = true
	}
	return seen
}

// mapRun maps one table. Rows whose id cell carries no integer are skipped.
// The first row may be a header that happens to hold a digit ("Q1-Q3"). For
// answers it is dropped unless its value is a letter. For modifications, where
// any text is a value, a later row with the same id replaces it. Otherwise the
// first value seen for an id is kept.
func mapRun(rows [][]string, role Role) map[string]string {
	m := map[string]string{}
	headerID := ""
	for i, cells := range rows {
		id, ok := exam.LeadingID(cells[0])
		if !ok {
			continue
		}
		value := rowValue(cells, role)
		if value == "" {
			continue
		}
		if i == 0 {
			if role == RoleAnswers {
				if !exam.IsLetter(value) {
					continue
				}
			} else {
				headerID = id
			}
		} else if _, dup := m[id]; dup {
			if id != headerID {
				continue
			}
			headerID = ""
		}
		m[id] = value
	}
	return m
}

func rowValue(cells []string, role Role) string {
	if role == RoleAnswers {
		return exam.NormalizeValue(cells[1])
	}
	for i := len(cells) - 1; i >= 1; i-- {
		if v := exam.NormalizeValue(cells[i]); v != "" {
			return v
		}
	}
	return ""
}

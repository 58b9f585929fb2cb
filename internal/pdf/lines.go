package pdf

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// Glyph grouping tolerances, as fractions of the font size.
const (
	rowTolerance  = 0.3
	spaceGap      = 0.2
	fragmentGap   = 1.5
	defaultGlyphH = 10.0
)

// glyph is one positioned text run in user space.
type glyph struct {
	X, Y, W, Size float64
	S             string
}

func glyphsFromContent(texts []pdf.Text) []glyph {
	out := make([]glyph, 0, len(texts))
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = defaultGlyphH
		}
		out = append(out, glyph{X: t.X, Y: t.Y, W: t.W, Size: size, S: t.S})
	}
	return out
}

// assembleLines groups glyphs into visual lines. Glyphs whose baselines are
// within a fraction of the font size share a row; a wide horizontal gap
// splits a row into separate fragments, so a question number printed apart
// from its stem stays a line of its own. Y is the top of the line in
// top-down coordinates.
func assembleLines(glyphs []glyph, box BoundingBox) []exam.Line {
	if len(glyphs) == 0 {
		return nil
	}

	sorted := make([]glyph, len(glyphs))
	copy(sorted, glyphs)
	// Top of page first: larger user-space Y first.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var rows [][]glyph
	for _, g := range sorted {
		n := len(rows)
		if n > 0 {
			ref := rows[n-1][0]
			tol := rowTolerance * math.Max(ref.Size, g.Size)
			if math.Abs(ref.Y-g.Y) <= tol {
				rows[n-1] = append(rows[n-1], g)
				continue
			}
		}
		rows = append(rows, []glyph{g})
	}

	var lines []exam.Line
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		lines = append(lines, splitRow(row, box)...)
	}
	exam.SortLines(lines)
	return lines
}

func splitRow(row []glyph, box BoundingBox) []exam.Line {
	top := row[0].Y + row[0].Size
	for _, g := range row[1:] {
		top = math.Max(top, g.Y+g.Size)
	}
	y := box.ToTop(top)

	var out []exam.Line
	var b strings.Builder
	startX := row[0].X
	prevEnd := row[0].X

	emit := func() {
		text := strings.TrimSpace(b.String())
		if text != "" {
			out = append(out, exam.Line{X: startX, Y: y, Text: text})
		}
		b.Reset()
	}

	for i, g := range row {
		if i > 0 {
			gap := g.X - prevEnd
			switch {
			case gap > fragmentGap*g.Size:
				emit()
				startX = g.X
			case gap > spaceGap*g.Size:
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		end := g.X + g.W
		if g.W <= 0 {
			end = g.X + g.Size*0.5*float64(len([]rune(g.S)))
		}
		prevEnd = math.Max(prevEnd, end)
	}
	emit()
	return out
}

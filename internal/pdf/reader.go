package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// Reader exports PDF text in reading order. Rows holding several separated
// fragments are rendered as pipe table rows so tabular answer keys survive
// the export.
type Reader struct {
	validator   *Validator
	maxTextSize int
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		validator:   NewValidator(maxFileSize),
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// ReadText extracts row-ordered text from every page.
func (r *Reader) ReadText(path string) (string, error) {
	if err := r.validator.validatePDFFile(path); err != nil {
		return "", err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		text, err := pageText(pdfReader, pageNum)
		if err != nil {
			// Continue with other pages even if one fails
			continue
		}
		if builder.Len()+len(text) > r.maxTextSize {
			break
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func pageText(reader *pdf.Reader, pageNum int) (text string, err error) {
	defer recoverPanic("read_text", pageNum, &err)

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", ErrInvalidPage
	}
	box, _ := pageMediaBox(page)
	return renderRows(assembleLines(glyphsFromContent(page.Content().Text), box)), nil
}

// renderRows joins lines sharing a Y into one output row.
func renderRows(lines []exam.Line) string {
	var b strings.Builder
	for i := 0; i < len(lines); {
		j := i + 1
		for j < len(lines) && lines[j].Y == lines[i].Y {
			j++
		}
		if j-i == 1 {
			b.WriteString(lines[i].Text)
		} else {
			b.WriteString("|")
			for _, l := range lines[i:j] {
				b.WriteString(" ")
				b.WriteString(l.Text)
				b.WriteString(" |")
			}
		}
		b.WriteString("\n")
		i = j
	}
	return b.String()
}

package pdf

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// renderWorkbook renders every non-empty sheet as a markdown pipe table,
// sheets separated by a blank line so each is its own table run.
func renderWorkbook(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var content strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		if content.Len() > 0 {
			content.WriteString("\n")
		}
		for _, row := range rows {
			if isBlankRow(row) {
				continue
			}
			content.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
	}

	if content.Len() == 0 {
		return "", fmt.Errorf("no data found in XLSX")
	}
	return content.String(), nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

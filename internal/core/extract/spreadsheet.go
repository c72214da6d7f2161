package extract

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractSpreadsheet walks the worksheets of an xlsx file in file order,
// emitting a header line per sheet and one tab-joined line per non-empty row.
func extractSpreadsheet(data []byte) string {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		log.Printf("spreadsheet extraction failed: %v", err)
		return ""
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		b.WriteString(fmt.Sprintf("-- sheet: %s --\n", sheet))

		rows, err := f.GetRows(sheet)
		if err != nil {
			log.Printf("spreadsheet sheet %q unreadable: %v", sheet, err)
			continue
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if cell = strings.TrimSpace(cell); cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) == 0 {
				continue
			}
			b.WriteString(strings.Join(cells, "\t"))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

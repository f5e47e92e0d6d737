package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetReader renders every worksheet of an .xlsx file as text, one line per
// row, with the first row used as header.
type SheetReader struct {
	maxRows int
}

func NewSheetReader(maxRows int) *SheetReader {
	if maxRows <= 0 {
		maxRows = 200
	}
	return &SheetReader{maxRows: maxRows}
}

func (r *SheetReader) ReadText(_ context.Context, localPath string) (string, error) {
	f, err := excelize.OpenFile(localPath)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		b.WriteString("Sheet: ")
		b.WriteString(sheet)
		b.WriteString("\nHeader: ")
		b.WriteString(strings.Join(rows[0], "\t"))
		b.WriteByte('\n')
		for i := 1; i < len(rows) && i <= r.maxRows; i++ {
			b.WriteString("Row ")
			b.WriteString(strconv.Itoa(i + 1))
			b.WriteString(": ")
			b.WriteString(strings.Join(rows[i], "\t"))
			b.WriteByte('\n')
		}
		if len(rows)-1 > r.maxRows {
			fmt.Fprintf(&b, "(%d more rows)\n", len(rows)-1-r.maxRows)
		}
	}
	return b.String(), nil
}

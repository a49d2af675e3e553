package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Table is a positional CSV document. Every record is padded or truncated to
// the column count.
type Table struct {
	Columns []string
	Records [][]string
}

// CSVExporter renders tables into CSV bytes.
type CSVExporter struct {
	comma rune
}

// NewCSVExporter builds a comma separated exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{comma: ','}
}

// Render encodes the table. Cells that a spreadsheet would evaluate as a
// formula are prefixed with a single quote.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	writer.Comma = e.comma
	if err := writer.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("write csv columns: %w", err)
	}
	record := make([]string, len(table.Columns))
	for n, row := range table.Records {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = neutralizeFormula(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record %d: %w", n, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func neutralizeFormula(cell string) string {
	if cell == "" || !strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return cell
	}
	return "'" + cell
}

package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/younsl/lamstat/internal/models"
)

// TimestampLayout is how time cells are written: RFC3339, milliseconds, UTC
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// numericCell matches a number optionally followed by a unit, e.g. "3.2 ms"
var numericCell = regexp.MustCompile(`^\s*(-?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)(?:[eE][-+]?[0-9]+)?)\s*(?:ms|s|B|KB|MB|GB|%)?\s*$`)

// Table is an ordered set of rows with a fixed column layout
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Assemble lays out rows as a table. Rows are stable-sorted by time, columns
// keep first-seen order and columns empty in every row are dropped. Numeric
// text columns are coerced to float64. An empty input returns ErrNoData.
func Assemble(rows []models.Row) (*Table, error) {
	if len(rows) == 0 {
		return nil, models.ErrNoData
	}

	sorted := make([]models.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].When().Before(sorted[j].When())
	})

	var columns []string
	index := make(map[string]int)
	cells := make([]map[string]interface{}, 0, len(sorted))
	for _, row := range sorted {
		values := make(map[string]interface{})
		for _, c := range row.Cells() {
			if _, ok := index[c.Column]; !ok {
				index[c.Column] = len(columns)
				columns = append(columns, c.Column)
			}
			values[c.Column] = c.Value
		}
		cells = append(cells, values)
	}

	// Keep only columns observed in at least one row
	var kept []string
	for _, col := range columns {
		for _, values := range cells {
			if values[col] != nil {
				kept = append(kept, col)
				break
			}
		}
	}

	t := &Table{Columns: kept}
	for _, values := range cells {
		r := make([]interface{}, len(kept))
		for i, col := range kept {
			r[i] = values[col]
		}
		t.Rows = append(t.Rows, r)
	}

	CoerceNumeric(t)
	return t, nil
}

// CoerceNumeric converts each column whose non-empty cells all parse as
// numbers into float64. A single failing cell leaves its column unchanged.
func CoerceNumeric(t *Table) {
	for col := range t.Columns {
		converted, ok := coerceColumn(t.Rows, col)
		if !ok {
			continue
		}
		for i := range t.Rows {
			t.Rows[i][col] = converted[i]
		}
	}
}

func coerceColumn(rows [][]interface{}, col int) ([]interface{}, bool) {
	converted := make([]interface{}, len(rows))
	sawString := false

	for i, row := range rows {
		switch v := row[col].(type) {
		case nil:
		case float64:
			converted[i] = v
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			f, ok := parseNumeric(v)
			if !ok {
				return nil, false
			}
			converted[i] = f
			sawString = true
		default:
			return nil, false
		}
	}

	return converted, sawString
}

func parseNumeric(s string) (float64, bool) {
	m := numericCell.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// WriteCSV writes a header line followed by every row
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	record := make([]string, len(t.Columns))
	for n, row := range t.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing row %d: %w", n+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case time.Time:
		return value.UTC().Format(TimestampLayout)
	default:
		return fmt.Sprint(value)
	}
}

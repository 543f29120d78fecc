package sheet

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pm-tracker-backend/internal/parse"
)

// ErrNoSheet is returned for a workbook without any worksheet.
var ErrNoSheet = errors.New("workbook has no sheets")

// Row is one data row of an uploaded sheet. Number is its 1-based position
// below the header row. Fields holds non-empty cells keyed by canonical
// field name.
type Row struct {
	Number int
	Fields map[string]string
}

// Get returns the value of a field, or "" when the cell was empty or absent.
func (r Row) Get(field string) string {
	return r.Fields[field]
}

// columnSource records where a field may be read from. A label column wins
// over a field-name column whenever its cell is non-empty.
type columnSource struct {
	label int
	field int
}

// ReadRows parses the first worksheet of an xlsx workbook. The first row is
// the header; unknown header columns are ignored and fully blank rows are
// skipped.
func ReadRows(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoSheet
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return []Row{}, nil
	}

	sources := mapHeader(rows[0])
	result := make([]Row, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		fields := make(map[string]string, len(sources))
		for field, src := range sources {
			idx := src.label
			v := cellAt(rows[i], idx)
			if v == "" {
				idx = src.field
				v = cellAt(rows[i], idx)
			}
			if v == "" {
				continue
			}
			if field == parse.FieldTglSelesaiPM {
				numeric, err := isNumericCell(f, sheetName, idx, i)
				if err != nil {
					return nil, err
				}
				if numeric {
					v = parse.Date(v)
				}
			}
			fields[field] = v
		}
		if len(fields) == 0 {
			continue
		}
		result = append(result, Row{Number: i, Fields: fields})
	}
	return result, nil
}

// isNumericCell reports whether the cell at the zero-based column and row
// holds a number or date rather than text. Numeric cells usually carry no
// explicit type.
func isNumericCell(f *excelize.File, sheetName string, col, row int) (bool, error) {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return false, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	typ, err := f.GetCellType(sheetName, cell)
	if err != nil {
		return false, fmt.Errorf("failed to read type of %s: %w", cell, err)
	}
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		return true, nil
	default:
		return false, nil
	}
}

func mapHeader(header []string) map[string]columnSource {
	sources := make(map[string]columnSource)
	for idx, raw := range header {
		field, human, ok := parse.Header(raw)
		if !ok {
			continue
		}
		src, seen := sources[field]
		if !seen {
			src = columnSource{label: -1, field: -1}
		}
		if human && src.label < 0 {
			src.label = idx
		} else if !human && src.field < 0 {
			src.field = idx
		}
		sources[field] = src
	}
	return sources
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return parse.Value(row[idx])
}

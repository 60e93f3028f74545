package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zalepa/roadwatch/records"
)

// Table is one loaded dataset family.
type Table struct {
	Name    Name
	Columns []string
	Records []records.Record
}

// Family returns the descriptor of the table's family.
func (t *Table) Family() Family { return Describe(t.Name) }

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasColumn reports whether the header carried col.
func (t *Table) HasColumn(col string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// HasAny reports whether the header carried at least one of cols.
func (t *Table) HasAny(cols ...string) bool {
	for _, c := range cols {
		if t.HasColumn(c) {
			return true
		}
	}
	return false
}

// ReadCSV parses a headed CSV stream into a Table. Cells are typed with
// records.AutoType; short rows leave their trailing columns absent.
func ReadCSV(r io.Reader, name Name) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Name: name, Columns: cols}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", name, line, err)
		}
		rec := make(records.Record, len(cols))
		for i, col := range cols {
			if col == "" || i >= len(row) {
				continue
			}
			if v := records.AutoType(row[i]); v != nil {
				rec[col] = v
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

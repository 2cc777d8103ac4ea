package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Dataset is an in-memory table of raw string cells. An empty cell is a missing value.
// Datasets are treated as read-only once constructed; derive new ones via Head, Subset or Clone.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// New builds a dataset, padding short rows so every row has len(columns) cells.
func New(name string, columns []string, rows [][]string) *Dataset {
	ncol := len(columns)
	for i, r := range rows {
		if len(r) < ncol {
			tmp := make([]string, ncol)
			copy(tmp, r)
			rows[i] = tmp
		}
	}
	return &Dataset{Name: name, Columns: columns, Rows: rows}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	if d == nil {
		return 0
	}
	return len(d.Columns)
}

// ColumnIndex finds a column by exact name.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, c := range d.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Head returns the first n rows. Row slices are shared with d.
func (d *Dataset) Head(n int) *Dataset {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	if n < 0 {
		n = 0
	}
	return &Dataset{Name: d.Name, Columns: d.Columns, Rows: d.Rows[:n:n]}
}

// Subset returns the rows at the given indices, in index order. Row slices are shared with d.
func (d *Dataset) Subset(idx []int) *Dataset {
	rows := make([][]string, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, d.Rows[i])
	}
	return &Dataset{Name: d.Name, Columns: d.Columns, Rows: rows}
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	cols := make([]string, len(d.Columns))
	copy(cols, d.Columns)
	rows := make([][]string, len(d.Rows))
	for i, r := range d.Rows {
		cp := make([]string, len(r))
		copy(cp, r)
		rows[i] = cp
	}
	return &Dataset{Name: d.Name, Columns: cols, Rows: rows}
}

// Equal reports whether both datasets have the same columns and cells in the same order.
func (d *Dataset) Equal(o *Dataset) bool {
	if d.Width() != o.Width() || d.Len() != o.Len() {
		return false
	}
	for i := range d.Columns {
		if d.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range d.Rows {
		if len(d.Rows[i]) != len(o.Rows[i]) {
			return false
		}
		for j := range d.Rows[i] {
			if d.Rows[i][j] != o.Rows[i][j] {
				return false
			}
		}
	}
	return true
}

// WriteCSV serializes the dataset as comma-delimited text with a header row and no index column.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range d.Rows {
		// A lone empty field would otherwise be written as a blank line, which readers skip.
		if len(r) == 1 && r[0] == "" {
			cw.Flush()
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
			continue
		}
		if err := cw.Write(r); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

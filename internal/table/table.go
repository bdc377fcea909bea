// Package table implements the tabular artifact format shared by the
// AST pipeline stages: space-delimited ASCII tables of named float columns,
// written atomically so an interrupted run never leaves a partial artifact
// that a later run would mistake for a complete one.
package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ast-pipeline/pkg/utils"
)

// Table is an in-memory tabular artifact: named columns over float rows.
type Table struct {
	Columns []string
	Rows    [][]float64
}

// New creates an empty table with the given column names.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// AppendRow adds one row; its width must match the column count.
func (t *Table) AppendRow(row ...float64) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row width %d does not match %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]float64(nil), row...))
	return nil
}

// ColIndex returns the index of a column by case-insensitive name, or -1.
func (t *Table) ColIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Col returns one column's values by case-insensitive name.
func (t *Table) Col(name string) ([]float64, error) {
	i := t.ColIndex(name)
	if i < 0 {
		return nil, fmt.Errorf("no column %q in table", name)
	}
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Read loads a table from disk. Files ending in .csv are parsed as CSV;
// everything else is whitespace-delimited with '#' comment lines skipped.
// The first content line is the header.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	defer f.Close()

	var lines [][]string
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		r := csv.NewReader(f)
		r.LazyQuotes = true
		recs, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV table %s: %w", path, err)
		}
		lines = recs
	} else {
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 1024*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lines = append(lines, strings.Fields(line))
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read table %s: %w", path, err)
		}
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("table %s is empty", path)
	}

	tbl := &Table{Columns: make([]string, len(lines[0]))}
	for i, h := range lines[0] {
		tbl.Columns[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
	}
	for _, rec := range lines[1:] {
		if len(rec) != len(tbl.Columns) {
			return nil, fmt.Errorf("table %s: row width %d does not match header width %d",
				path, len(rec), len(tbl.Columns))
		}
		row := make([]float64, len(rec))
		for i, cell := range rec {
			row[i] = utils.ParseFloat(cell)
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// WriteAtomic persists the table as space-delimited ASCII. The file is
// staged next to its final path and renamed into place, so readers only
// ever observe a fully written artifact.
func WriteAtomic(path string, t *Table) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to stage table %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = writeTo(tmp, t); err != nil {
		return fmt.Errorf("failed to write table %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close table %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish table %s: %w", path, err)
	}
	return nil
}

func writeTo(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(t.Columns, " ") + "\n"); err != nil {
		return err
	}
	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			cells[i] = utils.FormatFloat(v)
		}
		if _, err := bw.WriteString(strings.Join(cells, " ") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

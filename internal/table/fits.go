package table

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"
)

// WriteFITSAtomic persists the table as a FITS binary table, staged and
// renamed into place like the ASCII artifacts. Used for the AST parameter
// artifact, which survey tooling expects in FITS form.
func WriteFITSAtomic(path string, t *Table) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to stage FITS table %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = writeFITS(tmp, t); err != nil {
		return fmt.Errorf("failed to write FITS table %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close FITS table %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish FITS table %s: %w", path, err)
	}
	return nil
}

func writeFITS(f *os.File, t *Table) error {
	fits, err := fitsio.Create(f)
	if err != nil {
		return err
	}
	defer fits.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err := fits.Write(phdu); err != nil {
		return err
	}

	cols := make([]fitsio.Column, len(t.Columns))
	for i, name := range t.Columns {
		cols[i] = fitsio.Column{Name: name, Format: "D"}
	}
	tbl, err := fitsio.NewTable("AST_PARAMS", cols, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer tbl.Close()

	// Rows are written positionally, one pointer per column.
	cells := make([]float64, len(t.Columns))
	ptrs := make([]interface{}, len(t.Columns))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	for _, vals := range t.Rows {
		copy(cells, vals)
		if err := tbl.Write(ptrs...); err != nil {
			return err
		}
	}
	return fits.Write(tbl)
}

// ReadFITS loads a FITS binary table back into memory.
func ReadFITS(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS table %s: %w", path, err)
	}
	defer f.Close()

	fits, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FITS table %s: %w", path, err)
	}
	defer fits.Close()

	var tbl *fitsio.Table
	for i := 0; i < len(fits.HDUs()); i++ {
		if t, ok := fits.HDU(i).(*fitsio.Table); ok {
			tbl = t
			break
		}
	}
	if tbl == nil {
		return nil, fmt.Errorf("FITS file %s has no table HDU", path)
	}

	out := &Table{}
	for _, col := range tbl.Cols() {
		out.Columns = append(out.Columns, col.Name)
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("failed to read FITS rows from %s: %w", path, err)
	}
	defer rows.Close()

	for rows.Next() {
		cells := make(map[string]interface{}, len(out.Columns))
		if err := rows.Scan(&cells); err != nil {
			return nil, fmt.Errorf("failed to scan FITS row from %s: %w", path, err)
		}
		row := make([]float64, len(out.Columns))
		for i, name := range out.Columns {
			if v, ok := cells[name].(float64); ok {
				row[i] = v
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate FITS rows from %s: %w", path, err)
	}
	return out, nil
}

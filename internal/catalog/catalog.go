// Package catalog loads the observed source catalog and resolves the
// survey's filter-name aliases between rate and vega magnitude conventions.
package catalog

import (
	"fmt"
	"math"
	"strings"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/table"
)

// Catalog is the observed source catalog: one row per detected source,
// per-filter magnitude columns under survey-specific naming.
type Catalog struct {
	Path    string
	Filters []string

	tbl *table.Table
}

// Load reads the catalog table and checks that every configured filter
// resolves to a column.
func Load(path string, filters []string) (*Catalog, error) {
	tbl, err := table.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: observation catalog: %v", model.ErrData, err)
	}
	if tbl.NumRows() == 0 {
		return nil, fmt.Errorf("%w: observation catalog %s has no sources", model.ErrData, path)
	}

	cat := &Catalog{Path: path, Filters: filters, tbl: tbl}
	for _, f := range filters {
		if _, err := cat.ResolveAlias(f); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// NumSources returns the number of catalog rows.
func (c *Catalog) NumSources() int { return c.tbl.NumRows() }

// ResolveAlias maps a canonical filter name (e.g. HST_WFC3_F275W) to the
// catalog column carrying its measurement. Survey catalogs name columns by
// the short filter token plus a convention suffix (F275W_RATE, F275W_VEGA)
// or by the bare token.
func (c *Catalog) ResolveAlias(filter string) (string, error) {
	token := filter
	if i := strings.LastIndex(filter, "_"); i >= 0 {
		token = filter[i+1:]
	}
	for _, cand := range []string{token + "_rate", token + "_vega", token} {
		if i := c.tbl.ColIndex(cand); i >= 0 {
			return c.tbl.Columns[i], nil
		}
	}
	return "", fmt.Errorf("%w: filter %q has no column in catalog %s", model.ErrConfig, filter, c.Path)
}

// VegaColumn resolves a filter to its vega-magnitude column, translating
// rate-convention column names to the vega convention case-insensitively.
func (c *Catalog) VegaColumn(filter string) (string, error) {
	col, err := c.ResolveAlias(filter)
	if err != nil {
		return "", err
	}
	col = strings.ReplaceAll(col, "rate", "vega")
	col = strings.ReplaceAll(col, "RATE", "VEGA")
	col = strings.ReplaceAll(col, "Rate", "Vega")
	if i := c.tbl.ColIndex(col); i >= 0 {
		return c.tbl.Columns[i], nil
	}
	return "", fmt.Errorf("%w: filter %q has no vega magnitude column in catalog %s",
		model.ErrConfig, filter, c.Path)
}

// Column returns the raw values of a catalog column.
func (c *Catalog) Column(name string) ([]float64, error) {
	vals, err := c.tbl.Col(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrData, err)
	}
	return vals, nil
}

// ValidMags returns a column's magnitudes with sentinel (>= 99.0) and
// non-numeric entries removed.
func (c *Catalog) ValidMags(col string) ([]float64, error) {
	vals, err := c.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && v < model.InvalidMag {
			out = append(out, v)
		}
	}
	return out, nil
}

// Positions returns the X/Y pixel coordinates of every source.
func (c *Catalog) Positions() (xs, ys []float64, err error) {
	xs, err = c.tbl.Col("X")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: catalog %s has no X column", model.ErrData, c.Path)
	}
	ys, err = c.tbl.Col("Y")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: catalog %s has no Y column", model.ErrData, c.Path)
	}
	return xs, ys, nil
}

// DetectedInAll reports, per source, whether it has a valid vega magnitude
// in every configured filter. Used to restrict map-based position draws to
// the region covered by all filters.
func (c *Catalog) DetectedInAll() ([]bool, error) {
	out := make([]bool, c.NumSources())
	for i := range out {
		out[i] = true
	}
	for _, f := range c.Filters {
		col, err := c.VegaColumn(f)
		if err != nil {
			return nil, err
		}
		vals, err := c.Column(col)
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			if math.IsNaN(v) || v >= model.InvalidMag {
				out[i] = false
			}
		}
	}
	return out, nil
}

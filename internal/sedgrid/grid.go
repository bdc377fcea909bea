// Package sedgrid loads the pre-computed synthetic SED grid consumed by the
// selection samplers. A grid is a table with one flux column per filter and
// any number of model parameter columns (age, mass, extinction, ...).
package sedgrid

import (
	"fmt"
	"path/filepath"
	"strings"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/table"
)

// Grid holds the synthetic SED grid in memory.
type Grid struct {
	Path    string
	Filters []string

	tbl        *table.Table
	fluxIdx    []int // column index per filter
	paramNames []string
	paramIdx   []int
}

// Open loads a grid and validates that every configured filter has a flux
// column. FITS binary tables and delimited text are supported; HDF5 grids
// must be converted before use.
func Open(path string, filters []string) (*Grid, error) {
	var (
		tbl *table.Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hd5", ".hdf5", ".h5":
		return nil, fmt.Errorf("%w: HDF5 grid %s is not readable; convert it to a FITS or ascii grid",
			model.ErrConfig, path)
	case ".fits":
		tbl, err = table.ReadFITS(path)
	default:
		tbl, err = table.Read(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: SED grid: %v", model.ErrData, err)
	}
	if tbl.NumRows() == 0 {
		return nil, fmt.Errorf("%w: SED grid %s holds no models", model.ErrData, path)
	}

	g := &Grid{Path: path, Filters: filters, tbl: tbl}
	used := make(map[int]bool)
	for _, f := range filters {
		i := tbl.ColIndex(f)
		if i < 0 {
			// Grids may name flux columns by the short filter token.
			token := f
			if j := strings.LastIndex(f, "_"); j >= 0 {
				token = f[j+1:]
			}
			i = tbl.ColIndex(token)
		}
		if i < 0 {
			return nil, fmt.Errorf("%w: SED grid %s has no flux column for filter %q",
				model.ErrData, path, f)
		}
		g.fluxIdx = append(g.fluxIdx, i)
		used[i] = true
	}
	for i, name := range tbl.Columns {
		if !used[i] {
			g.paramNames = append(g.paramNames, name)
			g.paramIdx = append(g.paramIdx, i)
		}
	}
	return g, nil
}

// NumModels returns the number of models on the grid.
func (g *Grid) NumModels() int { return g.tbl.NumRows() }

// Flux returns model i's flux in filter f (index into the configured list).
func (g *Grid) Flux(i, f int) float64 {
	return g.tbl.Rows[i][g.fluxIdx[f]]
}

// Fluxes returns model i's flux vector in configured filter order.
func (g *Grid) Fluxes(i int) []float64 {
	out := make([]float64, len(g.fluxIdx))
	for f, idx := range g.fluxIdx {
		out[f] = g.tbl.Rows[i][idx]
	}
	return out
}

// ParamNames lists the grid's non-flux parameter columns.
func (g *Grid) ParamNames() []string { return g.paramNames }

// Params returns model i's parameter values in ParamNames order.
func (g *Grid) Params(i int) []float64 {
	out := make([]float64, len(g.paramIdx))
	for p, idx := range g.paramIdx {
		out[p] = g.tbl.Rows[i][idx]
	}
	return out
}

// AgeColumn returns the per-model age values used for age-binned selection.
// Grids conventionally name the column logA; plain "age" is accepted too.
// ok is false when the grid carries no age information.
func (g *Grid) AgeColumn() (vals []float64, ok bool) {
	for _, name := range []string{"logA", "age"} {
		if i := g.tbl.ColIndex(name); i >= 0 {
			vals = make([]float64, g.NumModels())
			for r, row := range g.tbl.Rows {
				vals[r] = row[i]
			}
			return vals, true
		}
	}
	return nil, false
}

// Package sampler implements the SED-selection and position-assignment
// strategies invoked by the pipeline orchestrators. Samplers are pure with
// respect to the filesystem: they return in-memory tables and leave
// persistence to the orchestrator that owns the artifact.
package sampler

import (
	"fmt"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/sedgrid"
	"ast-pipeline/internal/table"
	"ast-pipeline/pkg/utils"
)

// Selection is the outcome of one SED-selection strategy: the chosen SED
// fluxes, the model parameters behind them (row for row), and, for the
// stratified strategy only, the flux-bin boundary record.
type Selection struct {
	SEDs     *table.Table
	Params   *table.Table
	FluxBins *table.Table
}

// cutFluxes converts per-filter magnitude cuts to linear flux thresholds.
func cutFluxes(magCuts []float64) []float64 {
	out := make([]float64, len(magCuts))
	for i, m := range magCuts {
		out[i] = utils.MagToFlux(m)
	}
	return out
}

// eligibleModels returns the grid indices of models whose flux exceeds the
// cut in at least minAbove filters.
func eligibleModels(g *sedgrid.Grid, cutFlux []float64, minAbove int) ([]int, error) {
	var out []int
	for i := 0; i < g.NumModels(); i++ {
		above := 0
		for f := range cutFlux {
			if g.Flux(i, f) > cutFlux[f] {
				above++
			}
		}
		if above >= minAbove {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no grid model exceeds the magnitude cuts in %d filters",
			model.ErrData, minAbove)
	}
	return out, nil
}

// paramsTable builds the AST parameter rows for the chosen grid indices,
// keyed by model identity in the first column.
func paramsTable(g *sedgrid.Grid, chosen []int) *table.Table {
	cols := append([]string{"model"}, g.ParamNames()...)
	out := table.New(cols...)
	for _, i := range chosen {
		row := append([]float64{float64(i)}, g.Params(i)...)
		out.Rows = append(out.Rows, row)
	}
	return out
}

// sedsTable builds the chosen-SED flux rows for the given grid indices.
func sedsTable(g *sedgrid.Grid, filters []string, chosen []int) *table.Table {
	out := table.New(filters...)
	for _, i := range chosen {
		out.Rows = append(out.Rows, g.Fluxes(i))
	}
	return out
}

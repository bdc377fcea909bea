package sampler

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/sedgrid"
	"ast-pipeline/internal/table"
)

// StratifiedSpec sizes the flux-bin stratified selection.
type StratifiedSpec struct {
	Filters            []string
	MagCuts            []float64
	MinFiltersAboveCut int
	NFluxBins          int
	MinPerBin          int
}

// fluxBinning holds one filter's bin edges in log10 flux space.
type fluxBinning struct {
	lo, hi float64 // log10 flux range; hi > lo when the filter has any flux above cut
	empty  bool
}

// PickModelsToothpickStyle selects grid models so that, in every filter,
// each of the NFluxBins flux bins between the magnitude cut and the grid's
// bright end holds at least MinPerBin chosen models (or as many as the grid
// can supply). Returns the chosen SEDs ordered by model identity, their
// parameters, and the flux-bin boundary record.
func PickModelsToothpickStyle(g *sedgrid.Grid, spec StratifiedSpec, rng *rand.Rand) (*Selection, error) {
	if len(spec.MagCuts) != len(spec.Filters) {
		return nil, fmt.Errorf("%w: %d magnitude cuts for %d filters",
			model.ErrConfig, len(spec.MagCuts), len(spec.Filters))
	}

	cutFlux := cutFluxes(spec.MagCuts)
	elig, err := eligibleModels(g, cutFlux, spec.MinFiltersAboveCut)
	if err != nil {
		return nil, err
	}

	nf := len(spec.Filters)
	nb := spec.NFluxBins
	bins := make([]fluxBinning, nf)
	for f := 0; f < nf; f++ {
		maxFlux := 0.0
		for _, i := range elig {
			if v := g.Flux(i, f); v > cutFlux[f] && v > maxFlux {
				maxFlux = v
			}
		}
		if maxFlux <= cutFlux[f] {
			bins[f] = fluxBinning{empty: true}
			continue
		}
		lo := math.Log10(cutFlux[f])
		hi := math.Log10(maxFlux)
		if hi <= lo {
			hi = lo + 1e-9
		}
		bins[f] = fluxBinning{lo: lo, hi: hi}
	}

	binOf := func(f, m int) int {
		if bins[f].empty {
			return -1
		}
		v := g.Flux(m, f)
		if v <= cutFlux[f] {
			return -1
		}
		b := int(float64(nb) * (math.Log10(v) - bins[f].lo) / (bins[f].hi - bins[f].lo))
		if b >= nb {
			b = nb - 1
		}
		if b < 0 {
			b = 0
		}
		return b
	}

	// Targets are capped by what the grid can actually supply per bin,
	// so sparse grids terminate instead of demanding unreachable counts.
	capacity := make([][]int, nf)
	target := make([][]int, nf)
	for f := range capacity {
		capacity[f] = make([]int, nb)
		target[f] = make([]int, nb)
	}
	for _, m := range elig {
		for f := 0; f < nf; f++ {
			if b := binOf(f, m); b >= 0 {
				capacity[f][b]++
			}
		}
	}
	unmet := 0
	for f := 0; f < nf; f++ {
		for b := 0; b < nb; b++ {
			target[f][b] = spec.MinPerBin
			if capacity[f][b] < spec.MinPerBin {
				target[f][b] = capacity[f][b]
			}
			if target[f][b] > 0 {
				unmet++
			}
		}
	}

	counts := make([][]int, nf)
	for f := range counts {
		counts[f] = make([]int, nb)
	}

	order := append([]int(nil), elig...)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var chosen []int
	for _, m := range order {
		if unmet == 0 {
			break
		}
		contributes := false
		for f := 0; f < nf && !contributes; f++ {
			if b := binOf(f, m); b >= 0 && counts[f][b] < target[f][b] {
				contributes = true
			}
		}
		if !contributes {
			continue
		}
		chosen = append(chosen, m)
		for f := 0; f < nf; f++ {
			if b := binOf(f, m); b >= 0 {
				counts[f][b]++
				if counts[f][b] == target[f][b] {
					unmet--
				}
			}
		}
	}
	sort.Ints(chosen)

	binRecord := table.New("filter", "bin", "flux_min", "flux_max", "count")
	for f := 0; f < nf; f++ {
		if bins[f].empty {
			continue
		}
		width := (bins[f].hi - bins[f].lo) / float64(nb)
		for b := 0; b < nb; b++ {
			binRecord.Rows = append(binRecord.Rows, []float64{
				float64(f),
				float64(b),
				math.Pow(10, bins[f].lo+float64(b)*width),
				math.Pow(10, bins[f].lo+float64(b+1)*width),
				float64(counts[f][b]),
			})
		}
	}

	return &Selection{
		SEDs:     sedsTable(g, spec.Filters, chosen),
		Params:   paramsTable(g, chosen),
		FluxBins: binRecord,
	}, nil
}

package sampler

import (
	"fmt"
	"math/rand"
	"sort"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/sedgrid"
)

// RandomSpec sizes the uniform random selection.
type RandomSpec struct {
	Filters            []string
	MagCuts            []float64
	MinFiltersAboveCut int
	ModelsPerAgeBin    int
	Realizations       int
}

// PickModels draws ModelsPerAgeBin eligible models from every age bin of the
// grid, repeating each chosen model Realizations times. The SED list and the
// parameter table stay row for row in step. Grids without an age column are
// treated as a single age bin.
func PickModels(g *sedgrid.Grid, spec RandomSpec, rng *rand.Rand) (*Selection, error) {
	if len(spec.MagCuts) != len(spec.Filters) {
		return nil, fmt.Errorf("%w: %d magnitude cuts for %d filters",
			model.ErrConfig, len(spec.MagCuts), len(spec.Filters))
	}

	elig, err := eligibleModels(g, cutFluxes(spec.MagCuts), spec.MinFiltersAboveCut)
	if err != nil {
		return nil, err
	}

	groups := map[float64][]int{}
	if ages, ok := g.AgeColumn(); ok {
		for _, m := range elig {
			groups[ages[m]] = append(groups[ages[m]], m)
		}
	} else {
		groups[0] = elig
	}

	ageKeys := make([]float64, 0, len(groups))
	for a := range groups {
		ageKeys = append(ageKeys, a)
	}
	sort.Float64s(ageKeys)

	var chosen []int
	for _, a := range ageKeys {
		members := append([]int(nil), groups[a]...)
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		n := spec.ModelsPerAgeBin
		if n > len(members) {
			n = len(members)
		}
		picked := members[:n]
		sort.Ints(picked)
		chosen = append(chosen, picked...)
	}

	// Expand realizations so downstream stages see one row per injection.
	expanded := make([]int, 0, len(chosen)*spec.Realizations)
	for _, m := range chosen {
		for r := 0; r < spec.Realizations; r++ {
			expanded = append(expanded, m)
		}
	}

	return &Selection{
		SEDs:   sedsTable(g, spec.Filters, expanded),
		Params: paramsTable(g, expanded),
	}, nil
}

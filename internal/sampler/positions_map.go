package sampler

import (
	"fmt"
	"math/rand"
	"sort"

	"ast-pipeline/internal/catalog"
	"ast-pipeline/internal/model"
	"ast-pipeline/internal/table"
)

// MapSpec drives map-based position assignment, for both the source-density
// and the background branch.
type MapSpec struct {
	NBins        int
	Realizations int
	Boundary     *model.Boundary

	// RestrictToFullCoverage keeps only tiles containing at least one
	// catalog source detected in every filter. Set for the source-density
	// branch; the background map defines coverage on its own terms.
	RestrictToFullCoverage bool
}

type tile struct {
	xMin, xMax, yMin, yMax, value float64
}

// PickPositionsFromMap replicates the chosen SEDs across NBins spatial bins
// derived from the map's value distribution and draws one position per
// realization inside a random tile of the bin. Every output row carries the
// SED fluxes, a coordinate, and the bin identifier that produced it.
func PickPositionsFromMap(obs *catalog.Catalog, seds *table.Table, mapTable *table.Table, spec MapSpec, rng *rand.Rand) (*table.Table, error) {
	tiles, err := parseTiles(mapTable)
	if err != nil {
		return nil, err
	}

	if spec.RestrictToFullCoverage {
		tiles, err = coveredTiles(obs, tiles)
		if err != nil {
			return nil, err
		}
	}

	if spec.Boundary != nil {
		kept := tiles[:0]
		for _, t := range tiles {
			if t.xMax > spec.Boundary.XMin && t.xMin < spec.Boundary.XMax &&
				t.yMax > spec.Boundary.YMin && t.yMin < spec.Boundary.YMax {
				kept = append(kept, t)
			}
		}
		tiles = kept
	}

	if len(tiles) < spec.NBins {
		return nil, fmt.Errorf("%w: %d usable map tiles cannot fill %d spatial bins",
			model.ErrConfig, len(tiles), spec.NBins)
	}

	// Quantile grouping: tiles sorted by map value, split into NBins
	// contiguous, equally populated groups.
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].value < tiles[j].value })
	groups := make([][]tile, spec.NBins)
	for b := 0; b < spec.NBins; b++ {
		lo := b * len(tiles) / spec.NBins
		hi := (b + 1) * len(tiles) / spec.NBins
		groups[b] = tiles[lo:hi]
	}

	out := table.New(append(append([]string{}, seds.Columns...), "X", "Y", "BIN")...)
	for b, group := range groups {
		for _, sed := range seds.Rows {
			for r := 0; r < spec.Realizations; r++ {
				t := group[rng.Intn(len(group))]
				x, y := drawInTile(t, spec.Boundary, rng)
				row := append(append([]float64{}, sed...), x, y, float64(b))
				out.Rows = append(out.Rows, row)
			}
		}
	}
	return out, nil
}

func parseTiles(mapTable *table.Table) ([]tile, error) {
	cols := make(map[string][]float64, 5)
	for _, name := range []string{"x_min", "x_max", "y_min", "y_max", "value"} {
		vals, err := mapTable.Col(name)
		if err != nil {
			return nil, fmt.Errorf("%w: spatial map: %v", model.ErrData, err)
		}
		cols[name] = vals
	}
	tiles := make([]tile, mapTable.NumRows())
	for i := range tiles {
		tiles[i] = tile{
			xMin:  cols["x_min"][i],
			xMax:  cols["x_max"][i],
			yMin:  cols["y_min"][i],
			yMax:  cols["y_max"][i],
			value: cols["value"][i],
		}
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w: spatial map holds no tiles", model.ErrData)
	}
	return tiles, nil
}

func coveredTiles(obs *catalog.Catalog, tiles []tile) ([]tile, error) {
	detected, err := obs.DetectedInAll()
	if err != nil {
		return nil, err
	}
	xs, ys, err := obs.Positions()
	if err != nil {
		return nil, err
	}

	kept := tiles[:0]
	for _, t := range tiles {
		for i := range xs {
			if detected[i] && xs[i] >= t.xMin && xs[i] < t.xMax && ys[i] >= t.yMin && ys[i] < t.yMax {
				kept = append(kept, t)
				break
			}
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no map tile is covered by all filters", model.ErrData)
	}
	return kept, nil
}

// drawInTile samples a uniform position inside the tile, clipped to the
// coordinate boundary when one is configured.
func drawInTile(t tile, b *model.Boundary, rng *rand.Rand) (float64, float64) {
	xMin, xMax, yMin, yMax := t.xMin, t.xMax, t.yMin, t.yMax
	if b != nil {
		if b.XMin > xMin {
			xMin = b.XMin
		}
		if b.XMax < xMax {
			xMax = b.XMax
		}
		if b.YMin > yMin {
			yMin = b.YMin
		}
		if b.YMax < yMax {
			yMax = b.YMax
		}
	}
	return xMin + rng.Float64()*(xMax-xMin), yMin + rng.Float64()*(yMax-yMin)
}

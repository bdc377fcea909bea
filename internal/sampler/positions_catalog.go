package sampler

import (
	"fmt"
	"math/rand"

	"ast-pipeline/internal/catalog"
	"ast-pipeline/internal/model"
	"ast-pipeline/internal/table"
)

// CatalogSpec drives position assignment from the catalog's own spatial
// distribution (no auxiliary map).
type CatalogSpec struct {
	// PixelScale is the standard deviation, in pixels, of the jitter
	// applied around the anchor source.
	PixelScale   float64
	Realizations int

	// Bounds is the reference image extent positions are clamped to.
	Bounds model.Boundary
}

// PickPositionsFromCatalog places each SED realization near a randomly drawn
// catalog source, so artificial stars follow the observed spatial
// distribution. Rows carry fluxes and a coordinate; no bin identifier.
func PickPositionsFromCatalog(obs *catalog.Catalog, seds *table.Table, spec CatalogSpec, rng *rand.Rand) (*table.Table, error) {
	if spec.PixelScale <= 0 {
		return nil, fmt.Errorf("%w: pixel distribution scale must be > 0", model.ErrConfig)
	}
	xs, ys, err := obs.Positions()
	if err != nil {
		return nil, err
	}

	clamp := func(v, lo, hi float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	out := table.New(append(append([]string{}, seds.Columns...), "X", "Y")...)
	for _, sed := range seds.Rows {
		for r := 0; r < spec.Realizations; r++ {
			j := rng.Intn(len(xs))
			x := clamp(xs[j]+rng.NormFloat64()*spec.PixelScale, spec.Bounds.XMin, spec.Bounds.XMax)
			y := clamp(ys[j]+rng.NormFloat64()*spec.PixelScale, spec.Bounds.YMin, spec.Bounds.YMax)
			out.Rows = append(out.Rows, append(append([]float64{}, sed...), x, y))
		}
	}
	return out, nil
}

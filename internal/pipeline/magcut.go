package pipeline

import (
	"fmt"

	"ast-pipeline/internal/catalog"
	"ast-pipeline/internal/model"
	"ast-pipeline/pkg/utils"
)

// ResolveMagCuts produces exactly one faint-end magnitude limit per filter.
//
// A single configured value is an offset: each filter's cut is the 90th
// percentile of the catalog's valid magnitudes plus that offset. A vector
// with one value per filter passes through unchanged. Any other length is a
// configuration error.
func ResolveMagCuts(cfg model.RunConfig, obs *catalog.Catalog) ([]float64, error) {
	limits := cfg.AST.MagLimits

	switch {
	case len(limits) == 1:
		offset := limits[0]
		cuts := make([]float64, len(cfg.Filters))
		for i, filter := range cfg.Filters {
			col, err := obs.VegaColumn(filter)
			if err != nil {
				return nil, err
			}
			mags, err := obs.ValidMags(col)
			if err != nil {
				return nil, err
			}
			if len(mags) == 0 {
				return nil, fmt.Errorf("%w: filter %q has no valid detections for percentile cut derivation",
					model.ErrData, filter)
			}
			cuts[i] = utils.Percentile(mags, 90) + offset
		}
		return cuts, nil

	case len(limits) == len(cfg.Filters):
		return append([]float64(nil), limits...), nil

	default:
		return nil, fmt.Errorf("%w: %d magnitude limits for %d filters",
			model.ErrConfig, len(limits), len(cfg.Filters))
	}
}

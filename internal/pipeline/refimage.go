package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ast-pipeline/internal/catalog"
	"ast-pipeline/internal/model"

	"github.com/astrogo/fitsio"
)

// referenceBounds resolves the coordinate frame for catalog-based position
// assignment: the pixel extent of the reference image when one is
// configured, otherwise the extent of the catalog's own sources.
func referenceBounds(refImage string, obs *catalog.Catalog) (model.Boundary, error) {
	if refImage == "" {
		return catalogExtent(obs)
	}
	if !strings.EqualFold(filepath.Ext(refImage), ".fits") {
		return model.Boundary{}, fmt.Errorf("%w: reference image %s must be a FITS image",
			model.ErrConfig, refImage)
	}

	f, err := os.Open(refImage)
	if err != nil {
		return model.Boundary{}, fmt.Errorf("%w: reference image: %v", model.ErrConfig, err)
	}
	defer f.Close()

	fits, err := fitsio.Open(f)
	if err != nil {
		return model.Boundary{}, fmt.Errorf("%w: reference image %s: %v", model.ErrConfig, refImage, err)
	}
	defer fits.Close()

	for i := 0; i < len(fits.HDUs()); i++ {
		axes := fits.HDU(i).Header().Axes()
		if len(axes) >= 2 && axes[0] > 0 && axes[1] > 0 {
			return model.Boundary{
				XMin: 0, XMax: float64(axes[0]),
				YMin: 0, YMax: float64(axes[1]),
			}, nil
		}
	}
	return model.Boundary{}, fmt.Errorf("%w: reference image %s has no image extent",
		model.ErrConfig, refImage)
}

func catalogExtent(obs *catalog.Catalog) (model.Boundary, error) {
	xs, ys, err := obs.Positions()
	if err != nil {
		return model.Boundary{}, err
	}
	b := model.Boundary{XMin: xs[0], XMax: xs[0], YMin: ys[0], YMax: ys[0]}
	for i := range xs {
		if xs[i] < b.XMin {
			b.XMin = xs[i]
		}
		if xs[i] > b.XMax {
			b.XMax = xs[i]
		}
		if ys[i] < b.YMin {
			b.YMin = ys[i]
		}
		if ys[i] > b.YMax {
			b.YMax = ys[i]
		}
	}
	return b, nil
}

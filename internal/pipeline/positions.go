package pipeline

import (
	"fmt"

	"ast-pipeline/internal/catalog"
	"ast-pipeline/internal/model"
	"ast-pipeline/internal/sampler"
	"ast-pipeline/internal/table"

	"go.uber.org/zap"
)

// assignPositions is the position assignment orchestrator. Strategy choice
// is priority ordered: a configured source-density map wins over a
// background map, which wins over the catalog's own spatial distribution.
// The branches are not cross-validated; contradictory configuration simply
// takes the first match.
func (p *Pipeline) assignPositions(obs *catalog.Catalog, seds *table.Table) (*table.Table, error) {
	ast := p.cfg.AST

	var (
		manifest *table.Table
		err      error
		branch   string
	)
	switch {
	case ast.SourceDensityMap != "":
		branch = "source-density map"
		var tiles *table.Table
		tiles, err = readMap(ast.SourceDensityMap)
		if err == nil {
			manifest, err = p.pickFromMap(obs, seds, tiles, sampler.MapSpec{
				NBins:                  ast.NRegionBins,
				Realizations:           ast.RealizationsPerModel,
				Boundary:               ast.CoordBoundary,
				RestrictToFullCoverage: true,
			}, p.rng)
		}

	case ast.BackgroundMap != "":
		branch = "background map"
		var tiles *table.Table
		tiles, err = readMap(ast.BackgroundMap)
		if err == nil {
			manifest, err = p.pickFromMap(obs, seds, tiles, sampler.MapSpec{
				NBins:        ast.NRegionBins,
				Realizations: ast.RealizationsPerModel,
				Boundary:     ast.CoordBoundary,
			}, p.rng)
		}

	default:
		branch = "catalog distribution"
		var bounds model.Boundary
		bounds, err = referenceBounds(ast.ReferenceImage, obs)
		if err == nil {
			manifest, err = p.pickFromCatalog(obs, seds, sampler.CatalogSpec{
				PixelScale:   ast.PixelDistribution,
				Realizations: ast.RealizationsPerModel,
				Bounds:       bounds,
			}, p.rng)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := table.WriteAtomic(p.paths.InputAST(), manifest); err != nil {
		return nil, err
	}
	p.log.Info("input AST manifest persisted",
		zap.String("strategy", branch),
		zap.String("path", p.paths.InputAST()),
		zap.Int("stars", manifest.NumRows()))
	return manifest, nil
}

func readMap(path string) (*table.Table, error) {
	tiles, err := table.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: spatial map: %v", model.ErrData, err)
	}
	return tiles, nil
}

package pipeline

import (
	"fmt"
	"os"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/sampler"
	"ast-pipeline/internal/sedgrid"
	"ast-pipeline/internal/table"

	"go.uber.org/zap"
)

// selectSEDs is the SED selection orchestrator. If the project's SED-list
// artifact already exists it is loaded and no sampler runs; otherwise exactly
// one of the two strategies is dispatched and its results persisted. The SED
// list is renamed into place last, so it only exists once the parameter
// artifact (and flux-bin record) it belongs with are complete.
func (p *Pipeline) selectSEDs(cuts []float64) (*table.Table, error) {
	sedsPath := p.paths.InputASTSEDs()

	if _, err := os.Stat(sedsPath); err == nil {
		seds, err := table.Read(sedsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrCacheInconsistent, err)
		}
		if err := checkCachedSEDs(seds, p.cfg.Filters); err != nil {
			return nil, err
		}
		p.log.Info("reusing cached SED selection",
			zap.String("path", sedsPath),
			zap.Int("models", seds.NumRows()))
		return seds, nil
	}

	gridPath := p.cfg.SEDGrid
	if gridPath == "" {
		gridPath = p.paths.SEDGrid()
	}
	grid, err := sedgrid.Open(gridPath, p.cfg.Filters)
	if err != nil {
		return nil, err
	}
	p.log.Info("selecting SEDs for ASTs",
		zap.String("grid", gridPath),
		zap.Int("gridModels", grid.NumModels()),
		zap.String("method", p.cfg.AST.SelectionMethod))

	var sel *sampler.Selection
	switch p.cfg.AST.SelectionMethod {
	case model.MethodStratified:
		sel, err = p.pickStratified(grid, sampler.StratifiedSpec{
			Filters:            p.cfg.Filters,
			MagCuts:            cuts,
			MinFiltersAboveCut: p.cfg.AST.BandsAboveMagLimit,
			NFluxBins:          p.cfg.AST.NFluxBins,
			MinPerBin:          p.cfg.AST.MinPerFluxBin,
		}, p.rng)
	case model.MethodRandom:
		sel, err = p.pickRandom(grid, sampler.RandomSpec{
			Filters:            p.cfg.Filters,
			MagCuts:            cuts,
			MinFiltersAboveCut: p.cfg.AST.BandsAboveMagLimit,
			ModelsPerAgeBin:    p.cfg.AST.ModelsPerAgeBin,
			Realizations:       p.cfg.AST.RealizationsPerModel,
		}, p.rng)
	default:
		return nil, fmt.Errorf("%w: unknown selection method %q", model.ErrConfig, p.cfg.AST.SelectionMethod)
	}
	if err != nil {
		return nil, err
	}

	if sel.FluxBins != nil {
		if err := table.WriteAtomic(p.paths.FluxBins(), sel.FluxBins); err != nil {
			return nil, err
		}
	}
	if err := table.WriteFITSAtomic(p.paths.ASTParams(), sel.Params); err != nil {
		return nil, err
	}
	if err := table.WriteAtomic(sedsPath, sel.SEDs); err != nil {
		return nil, err
	}

	p.log.Info("SED selection persisted",
		zap.String("path", sedsPath),
		zap.Int("models", sel.SEDs.NumRows()))
	return sel.SEDs, nil
}

// checkCachedSEDs guards against a stale cache produced under a different
// filter configuration. Existence alone is not proof of validity.
func checkCachedSEDs(seds *table.Table, filters []string) error {
	if len(seds.Columns) != len(filters) {
		return fmt.Errorf("%w: cached SED list has %d flux columns, run is configured for %d filters",
			model.ErrCacheInconsistent, len(seds.Columns), len(filters))
	}
	for i, f := range filters {
		if seds.ColIndex(f) != i {
			return fmt.Errorf("%w: cached SED list columns %v do not match configured filters %v",
				model.ErrCacheInconsistent, seds.Columns, filters)
		}
	}
	return nil
}

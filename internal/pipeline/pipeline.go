// Package pipeline orchestrates the three stages that produce an AST input
// manifest: magnitude cut resolution, SED selection, and position
// assignment. Stages run strictly in order; interrupted runs resume from the
// artifacts the previous run completed.
package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"ast-pipeline/internal/catalog"
	"ast-pipeline/internal/model"
	"ast-pipeline/internal/sampler"
	"ast-pipeline/internal/sedgrid"
	"ast-pipeline/internal/table"
	"ast-pipeline/pkg/utils"

	"go.uber.org/zap"
)

// Stage names reported to the tracker.
const (
	StageMagCuts   = "magcuts"
	StageSelection = "sed_selection"
	StagePositions = "positions"
)

// Pipeline executes one AST input run for a single project namespace.
// Configuration is immutable for the pipeline's lifetime.
type Pipeline struct {
	cfg     model.RunConfig
	log     *zap.Logger
	tracker Tracker
	paths   utils.ProjectPaths
	rng     *rand.Rand

	// Sampling strategies, swappable in tests.
	pickStratified  func(*sedgrid.Grid, sampler.StratifiedSpec, *rand.Rand) (*sampler.Selection, error)
	pickRandom      func(*sedgrid.Grid, sampler.RandomSpec, *rand.Rand) (*sampler.Selection, error)
	pickFromMap     func(*catalog.Catalog, *table.Table, *table.Table, sampler.MapSpec, *rand.Rand) (*table.Table, error)
	pickFromCatalog func(*catalog.Catalog, *table.Table, sampler.CatalogSpec, *rand.Rand) (*table.Table, error)
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithTracker reports run and stage lifecycle events to t.
func WithTracker(t Tracker) Option {
	return func(p *Pipeline) { p.tracker = t }
}

// New builds a pipeline for one configuration. The configuration is captured
// by value; later mutation by the caller does not affect the run.
func New(cfg model.RunConfig, log *zap.Logger, opts ...Option) *Pipeline {
	seed := cfg.AST.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p := &Pipeline{
		cfg:     cfg,
		log:     log.With(zap.String("project", cfg.Project)),
		tracker: NopTracker{},
		paths:   utils.NewProjectPaths(cfg.OutputDir, cfg.Project),
		rng:     rand.New(rand.NewSource(seed)),

		pickStratified:  sampler.PickModelsToothpickStyle,
		pickRandom:      sampler.PickModels,
		pickFromMap:     sampler.PickPositionsFromMap,
		pickFromCatalog: sampler.PickPositionsFromCatalog,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Paths exposes the run's artifact locations.
func (p *Pipeline) Paths() utils.ProjectPaths { return p.paths }

// Run executes the pipeline: cut resolution, SED selection, and, when
// enabled, position assignment. A run-level lock keyed by the project
// identifier serializes concurrent invocations on the same namespace.
func (p *Pipeline) Run(ctx context.Context, runID string) (err error) {
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	if err := p.paths.EnsureDir(); err != nil {
		return err
	}

	unlock, err := acquireLock(p.paths.LockFile())
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	log := p.log.With(zap.String("run", runID))
	log.Info("starting AST input pipeline")
	p.tracker.RunStatus(runID, "running")
	defer func() {
		if err != nil {
			p.tracker.RunStatus(runID, "failed")
			log.Error("pipeline failed", zap.Error(err))
		}
	}()

	obs, err := catalog.Load(p.cfg.ObsFile, p.cfg.Filters)
	if err != nil {
		return err
	}
	log.Info("observation catalog loaded", zap.Int("sources", obs.NumSources()))

	// Stage 1: magnitude cuts.
	if err = ctx.Err(); err != nil {
		return err
	}
	p.tracker.StageStarted(runID, StageMagCuts)
	cuts, err := ResolveMagCuts(p.cfg, obs)
	if err != nil {
		p.tracker.StageFailed(runID, StageMagCuts, err)
		return err
	}
	p.tracker.StageCompleted(runID, StageMagCuts, len(cuts))
	log.Info("magnitude cuts resolved", zap.Float64s("cuts", cuts))

	// Stage 2: SED selection.
	if err = ctx.Err(); err != nil {
		return err
	}
	p.tracker.StageStarted(runID, StageSelection)
	seds, err := p.selectSEDs(cuts)
	if err != nil {
		p.tracker.StageFailed(runID, StageSelection, err)
		return err
	}
	p.tracker.StageCompleted(runID, StageSelection, seds.NumRows())

	// Stage 3: position assignment.
	if p.cfg.AST.WithPositions {
		if err = ctx.Err(); err != nil {
			return err
		}
		p.tracker.StageStarted(runID, StagePositions)
		manifest, perr := p.assignPositions(obs, seds)
		if perr != nil {
			p.tracker.StageFailed(runID, StagePositions, perr)
			err = perr
			return err
		}
		p.tracker.StageCompleted(runID, StagePositions, manifest.NumRows())
	} else {
		log.Info("position assignment disabled, manifest not written")
	}

	p.tracker.RunStatus(runID, "completed")
	log.Info("pipeline completed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// acquireLock takes the project's run lock. Two simultaneous runs racing on
// the cache-check/file-write pair would corrupt the cached artifacts, so the
// second run is refused outright.
func acquireLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("project lock %s is held by another run; remove it if that run is dead", path)
		}
		return nil, fmt.Errorf("failed to take project lock %s: %w", path, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(path) }, nil
}

package pipeline

import (
	"math/rand"
	"os"
	"testing"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/sampler"
	"ast-pipeline/internal/sedgrid"
	"ast-pipeline/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fakeSelection(filters []string) *sampler.Selection {
	seds := table.New(filters...)
	seds.AppendRow(1e-9, 2e-9)
	seds.AppendRow(3e-9, 4e-9)
	params := table.New("model", "logA")
	params.AppendRow(0, 6.0)
	params.AppendRow(1, 7.0)
	return &sampler.Selection{SEDs: seds, Params: params}
}

func TestSelectSEDs_CacheHitSkipsSampling(t *testing.T) {
	cfg := testRunConfig(t)
	p := New(cfg, zap.NewNop())
	require.NoError(t, p.Paths().EnsureDir())

	cached := table.New("F1", "F2")
	cached.AppendRow(1e-9, 2e-9)
	cached.AppendRow(3e-9, 4e-9)
	cached.AppendRow(5e-9, 6e-9)
	require.NoError(t, table.WriteAtomic(p.Paths().InputASTSEDs(), cached))

	p.pickStratified = func(*sedgrid.Grid, sampler.StratifiedSpec, *rand.Rand) (*sampler.Selection, error) {
		t.Fatal("stratified sampler ran despite an existing SED list")
		return nil, nil
	}
	p.pickRandom = func(*sedgrid.Grid, sampler.RandomSpec, *rand.Rand) (*sampler.Selection, error) {
		t.Fatal("random sampler ran despite an existing SED list")
		return nil, nil
	}

	seds, err := p.selectSEDs([]float64{25, 25})
	require.NoError(t, err)
	assert.Equal(t, 3, seds.NumRows())
	assert.Equal(t, []string{"F1", "F2"}, seds.Columns)
}

func TestSelectSEDs_StaleCacheWrongColumns(t *testing.T) {
	cfg := testRunConfig(t)
	p := New(cfg, zap.NewNop())
	require.NoError(t, p.Paths().EnsureDir())

	// A leftover from a run configured with three filters.
	stale := table.New("F1", "F2", "F3")
	stale.AppendRow(1e-9, 2e-9, 3e-9)
	require.NoError(t, table.WriteAtomic(p.Paths().InputASTSEDs(), stale))

	_, err := p.selectSEDs([]float64{25, 25})
	assert.ErrorIs(t, err, model.ErrCacheInconsistent)
}

func TestSelectSEDs_CorruptCache(t *testing.T) {
	cfg := testRunConfig(t)
	p := New(cfg, zap.NewNop())
	require.NoError(t, p.Paths().EnsureDir())
	require.NoError(t, os.WriteFile(p.Paths().InputASTSEDs(),
		[]byte("F1 F2\n1e-9 not-a-row extra\n"), 0644))

	_, err := p.selectSEDs([]float64{25, 25})
	assert.ErrorIs(t, err, model.ErrCacheInconsistent)
}

func TestSelectSEDs_DispatchesExactlyOneSampler(t *testing.T) {
	for _, method := range []string{model.MethodStratified, model.MethodRandom} {
		t.Run(method, func(t *testing.T) {
			cfg := testRunConfig(t)
			cfg.AST.SelectionMethod = method
			cfg.AST.ModelsPerAgeBin = 1
			p := New(cfg, zap.NewNop())
			require.NoError(t, p.Paths().EnsureDir())

			var stratCalls, randCalls int
			p.pickStratified = func(_ *sedgrid.Grid, spec sampler.StratifiedSpec, _ *rand.Rand) (*sampler.Selection, error) {
				stratCalls++
				assert.Equal(t, []float64{25, 25}, spec.MagCuts)
				return fakeSelection(cfg.Filters), nil
			}
			p.pickRandom = func(_ *sedgrid.Grid, spec sampler.RandomSpec, _ *rand.Rand) (*sampler.Selection, error) {
				randCalls++
				assert.Equal(t, []float64{25, 25}, spec.MagCuts)
				return fakeSelection(cfg.Filters), nil
			}

			_, err := p.selectSEDs([]float64{25, 25})
			require.NoError(t, err)
			if method == model.MethodStratified {
				assert.Equal(t, 1, stratCalls)
				assert.Zero(t, randCalls)
			} else {
				assert.Equal(t, 1, randCalls)
				assert.Zero(t, stratCalls)
			}
		})
	}
}

func TestSelectSEDs_UnknownMethod(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.AST.SelectionMethod = "thorough"
	p := New(cfg, zap.NewNop())
	require.NoError(t, p.Paths().EnsureDir())

	_, err := p.selectSEDs([]float64{25, 25})
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestSelectSEDs_MissingGrid(t *testing.T) {
	cfg := testRunConfig(t)
	cfg.SEDGrid = cfg.SEDGrid + ".missing"
	p := New(cfg, zap.NewNop())
	require.NoError(t, p.Paths().EnsureDir())

	_, err := p.selectSEDs([]float64{25, 25})
	assert.ErrorIs(t, err, model.ErrData)

	// Nothing was persisted: the next run must not mistake a failed
	// selection for a cached one.
	_, serr := os.Stat(p.Paths().InputASTSEDs())
	assert.True(t, os.IsNotExist(serr))
	_, perr := os.Stat(p.Paths().ASTParams())
	assert.True(t, os.IsNotExist(perr))
}

func TestSelectSEDs_SamplerFailureLeavesNoArtifacts(t *testing.T) {
	cfg := testRunConfig(t)
	p := New(cfg, zap.NewNop())
	require.NoError(t, p.Paths().EnsureDir())

	p.pickStratified = func(*sedgrid.Grid, sampler.StratifiedSpec, *rand.Rand) (*sampler.Selection, error) {
		return nil, model.ErrData
	}

	_, err := p.selectSEDs([]float64{25, 25})
	require.ErrorIs(t, err, model.ErrData)

	for _, path := range []string{p.Paths().InputASTSEDs(), p.Paths().ASTParams(), p.Paths().FluxBins()} {
		_, serr := os.Stat(path)
		assert.True(t, os.IsNotExist(serr), "unexpected artifact %s", path)
	}
}

func TestSelectSEDs_FluxBinsOnlyWhenProvided(t *testing.T) {
	cfg := testRunConfig(t)
	p := New(cfg, zap.NewNop())
	require.NoError(t, p.Paths().EnsureDir())

	sel := fakeSelection(cfg.Filters)
	bins := table.New("filter", "bin", "flux_min", "flux_max", "count")
	bins.AppendRow(0, 0, 1e-10, 1e-9, 2)
	sel.FluxBins = bins
	p.pickStratified = func(*sedgrid.Grid, sampler.StratifiedSpec, *rand.Rand) (*sampler.Selection, error) {
		return sel, nil
	}

	_, err := p.selectSEDs([]float64{25, 25})
	require.NoError(t, err)

	got, err := table.Read(p.Paths().FluxBins())
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumRows())
}

package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() RunConfig {
	return RunConfig{
		Project:   "testproj",
		OutputDir: "/tmp/out",
		Filters:   []string{"HST_WFC3_F275W", "HST_WFC3_F336W"},
		ObsFile:   "/tmp/obs.txt",
		AST: ASTConfig{
			MagLimits:            []float64{1.0},
			RealizationsPerModel: 20,
			BandsAboveMagLimit:   2,
			SelectionMethod:      MethodStratified,
			NFluxBins:            40,
			MinPerFluxBin:        50,
		},
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "run.yaml", `
project: phat
outputDir: ./out
filters: [HST_WFC3_F275W, HST_WFC3_F336W]
obsFile: ./obs.fits
ast:
  magLimits: [1.0]
  bandsAboveMagLimit: 2
  selectionMethod: stratified
  nFluxBins: 40
  minPerFluxBin: 50
  withPositions: true
  sourceDensityMap: ./sourceden_map.txt
  nRegionBins: 5
  seed: 12
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "phat", cfg.Project)
	assert.Equal(t, []string{"HST_WFC3_F275W", "HST_WFC3_F336W"}, cfg.Filters)
	assert.Equal(t, []float64{1.0}, cfg.AST.MagLimits)
	assert.Equal(t, 1, cfg.AST.RealizationsPerModel, "realizations defaults to 1")
	assert.Equal(t, "./sourceden_map.txt", cfg.AST.SourceDensityMap)
	assert.Equal(t, int64(12), cfg.AST.Seed)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "run.json", `{
  "project": "phat",
  "outputDir": "./out",
  "filters": ["HST_WFC3_F275W"],
  "obsFile": "./obs.txt",
  "ast": {
    "magLimits": [27.5],
    "realizationsPerModel": 5,
    "bandsAboveMagLimit": 1,
    "selectionMethod": "random",
    "modelsPerAgeBin": 70,
    "coordBoundary": {"xMin": 0, "xMax": 100, "yMin": 0, "yMax": 50}
  }
}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, MethodRandom, cfg.AST.SelectionMethod)
	assert.Equal(t, 5, cfg.AST.RealizationsPerModel)
	require.NotNil(t, cfg.AST.CoordBoundary)
	assert.Equal(t, 100.0, cfg.AST.CoordBoundary.XMax)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "project: [unclosed")
	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*RunConfig)
		wantErr string
	}{
		{"valid stratified", func(c *RunConfig) {}, ""},
		{"valid random", func(c *RunConfig) {
			c.AST.SelectionMethod = MethodRandom
			c.AST.ModelsPerAgeBin = 70
		}, ""},
		{"valid per-filter cuts", func(c *RunConfig) {
			c.AST.MagLimits = []float64{27.5, 28.0}
		}, ""},
		{"missing project", func(c *RunConfig) { c.Project = "" }, "project"},
		{"no filters", func(c *RunConfig) { c.Filters = nil }, "filter"},
		{"missing catalog", func(c *RunConfig) { c.ObsFile = "" }, "catalog"},
		{"no cuts", func(c *RunConfig) { c.AST.MagLimits = nil }, "magLimits"},
		{"cut count mismatch", func(c *RunConfig) {
			c.AST.MagLimits = []float64{27.5, 28.0, 28.5}
		}, "magLimits"},
		{"zero realizations", func(c *RunConfig) {
			c.AST.RealizationsPerModel = 0
		}, "realizationsPerModel"},
		{"bands out of range", func(c *RunConfig) {
			c.AST.BandsAboveMagLimit = 3
		}, "bandsAboveMagLimit"},
		{"stratified without bins", func(c *RunConfig) {
			c.AST.NFluxBins = 0
		}, "nFluxBins"},
		{"random without per-age count", func(c *RunConfig) {
			c.AST.SelectionMethod = MethodRandom
		}, "modelsPerAgeBin"},
		{"no method", func(c *RunConfig) {
			c.AST.SelectionMethod = ""
		}, "selection method"},
		{"unknown method", func(c *RunConfig) {
			c.AST.SelectionMethod = "exhaustive"
		}, "selection method"},
		{"map without region bins", func(c *RunConfig) {
			c.AST.WithPositions = true
			c.AST.SourceDensityMap = "./map.txt"
		}, "nRegionBins"},
		{"catalog positions without pixel scale", func(c *RunConfig) {
			c.AST.WithPositions = true
		}, "pixelDistribution"},
		{"inverted boundary", func(c *RunConfig) {
			c.AST.CoordBoundary = &Boundary{XMin: 10, XMax: 5, YMin: 0, YMax: 1}
		}, "coordBoundary"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrConfig)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Selection methods for the SED selection stage.
const (
	MethodStratified = "stratified"
	MethodRandom     = "random"
)

// Sentinel magnitude marking an invalid or undetected catalog entry.
const InvalidMag = 99.0

// Boundary is an optional rectangular coordinate constraint applied when
// drawing artificial-star positions.
type Boundary struct {
	XMin float64 `json:"xMin" yaml:"xMin"`
	XMax float64 `json:"xMax" yaml:"xMax"`
	YMin float64 `json:"yMin" yaml:"yMin"`
	YMax float64 `json:"yMax" yaml:"yMax"`
}

// ASTConfig holds the artificial-star-test parameters of a run.
type ASTConfig struct {
	// MagLimits is either one offset applied to the per-filter 90th
	// percentile of the catalog, or one explicit cut per filter.
	MagLimits []float64 `json:"magLimits" yaml:"magLimits"`

	RealizationsPerModel int `json:"realizationsPerModel" yaml:"realizationsPerModel"`

	// BandsAboveMagLimit is the minimum number of filters in which a model
	// must be brighter than the cut to count as detectable.
	BandsAboveMagLimit int `json:"bandsAboveMagLimit" yaml:"bandsAboveMagLimit"`

	// SelectionMethod is "stratified" or "random". The CLI flag overrides it.
	SelectionMethod string `json:"selectionMethod" yaml:"selectionMethod"`

	// Stratified method sizing.
	NFluxBins     int `json:"nFluxBins" yaml:"nFluxBins"`
	MinPerFluxBin int `json:"minPerFluxBin" yaml:"minPerFluxBin"`

	// Random method sizing.
	ModelsPerAgeBin int `json:"modelsPerAgeBin" yaml:"modelsPerAgeBin"`

	WithPositions bool `json:"withPositions" yaml:"withPositions"`

	// Auxiliary spatial inputs; the first configured one wins:
	// source-density map, then background map, then the catalog itself.
	SourceDensityMap string `json:"sourceDensityMap" yaml:"sourceDensityMap"`
	BackgroundMap    string `json:"backgroundMap" yaml:"backgroundMap"`
	NRegionBins      int    `json:"nRegionBins" yaml:"nRegionBins"`

	ReferenceImage    string    `json:"referenceImage" yaml:"referenceImage"`
	PixelDistribution float64   `json:"pixelDistribution" yaml:"pixelDistribution"`
	CoordBoundary     *Boundary `json:"coordBoundary" yaml:"coordBoundary"`

	// Seed for the sampling RNG; zero means time-seeded.
	Seed int64 `json:"seed" yaml:"seed"`
}

// RunConfig is the immutable configuration of one pipeline invocation.
// It is constructed once per run and passed by value through every stage;
// no process-wide configuration state survives between runs.
type RunConfig struct {
	Project   string   `json:"project" yaml:"project"`
	OutputDir string   `json:"outputDir" yaml:"outputDir"`
	Filters   []string `json:"filters" yaml:"filters"`
	ObsFile   string   `json:"obsFile" yaml:"obsFile"`

	// SEDGrid overrides the default <project>_seds.grid.hd5 location.
	SEDGrid string `json:"sedGrid" yaml:"sedGrid"`

	AST ASTConfig `json:"ast" yaml:"ast"`
}

// LoadConfig reads a RunConfig from a JSON or YAML file, chosen by extension.
func LoadConfig(path string) (RunConfig, error) {
	var cfg RunConfig

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: reading config %s: %v", ErrConfig, path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	default:
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: parsing config %s: %v", ErrConfig, path, err)
	}

	if cfg.AST.RealizationsPerModel == 0 {
		cfg.AST.RealizationsPerModel = 1
	}
	return cfg, nil
}

// Validate checks the internal consistency of the configuration.
// All violations are configuration errors per the pipeline's taxonomy.
func (c RunConfig) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
	}

	if c.Project == "" {
		return fail("project identifier is required")
	}
	if len(c.Filters) == 0 {
		return fail("at least one filter is required")
	}
	if c.ObsFile == "" {
		return fail("observation catalog path is required")
	}
	if len(c.AST.MagLimits) == 0 {
		return fail("magLimits is required")
	}
	if len(c.AST.MagLimits) != 1 && len(c.AST.MagLimits) != len(c.Filters) {
		return fail("magLimits must hold one offset or one cut per filter (%d filters, %d cuts)",
			len(c.Filters), len(c.AST.MagLimits))
	}
	if c.AST.RealizationsPerModel < 1 {
		return fail("realizationsPerModel must be >= 1")
	}
	if c.AST.BandsAboveMagLimit < 1 || c.AST.BandsAboveMagLimit > len(c.Filters) {
		return fail("bandsAboveMagLimit must be between 1 and the number of filters")
	}

	switch c.AST.SelectionMethod {
	case MethodStratified:
		if c.AST.NFluxBins < 1 {
			return fail("nFluxBins must be >= 1 for stratified selection")
		}
		if c.AST.MinPerFluxBin < 1 {
			return fail("minPerFluxBin must be >= 1 for stratified selection")
		}
	case MethodRandom:
		if c.AST.ModelsPerAgeBin < 1 {
			return fail("modelsPerAgeBin must be >= 1 for random selection")
		}
	case "":
		return fail("selection method is required (stratified or random)")
	default:
		return fail("unknown selection method %q", c.AST.SelectionMethod)
	}

	if c.AST.WithPositions {
		if c.AST.SourceDensityMap != "" || c.AST.BackgroundMap != "" {
			if c.AST.NRegionBins < 1 {
				return fail("nRegionBins must be >= 1 when a spatial map is configured")
			}
		} else if c.AST.PixelDistribution <= 0 {
			return fail("pixelDistribution must be > 0 for catalog-based positions")
		}
	}

	if b := c.AST.CoordBoundary; b != nil {
		if b.XMin >= b.XMax || b.YMin >= b.YMax {
			return fail("coordBoundary extents are inverted")
		}
	}
	return nil
}

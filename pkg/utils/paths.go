package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// ProjectPaths resolves the project-namespaced artifact paths of an AST run.
// Every artifact of a project lives under <base>/<project>/ and carries the
// project identifier as a filename prefix.
type ProjectPaths struct {
	BaseDir string
	Project string
}

// NewProjectPaths creates the path resolver for one project namespace.
func NewProjectPaths(baseDir, project string) ProjectPaths {
	if baseDir == "" {
		baseDir = "."
	}
	return ProjectPaths{BaseDir: baseDir, Project: project}
}

// Dir is the directory holding all of the project's artifacts.
func (p ProjectPaths) Dir() string {
	return filepath.Join(p.BaseDir, p.Project)
}

// EnsureDir creates the project directory if it does not exist.
func (p ProjectPaths) EnsureDir() error {
	if err := os.MkdirAll(p.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	return nil
}

func (p ProjectPaths) file(suffix string) string {
	return filepath.Join(p.Dir(), p.Project+suffix)
}

// InputASTSEDs is the chosen-SED flux list (the selection cache artifact).
func (p ProjectPaths) InputASTSEDs() string { return p.file("_inputAST_seds.txt") }

// ASTParams is the FITS table of model parameters behind each chosen SED.
func (p ProjectPaths) ASTParams() string { return p.file("_ASTparams.fits") }

// FluxBins is the flux-bin boundary record (stratified selection only).
func (p ProjectPaths) FluxBins() string { return p.file("_ASTfluxbins.txt") }

// InputAST is the final manifest of artificial stars (flux + position).
func (p ProjectPaths) InputAST() string { return p.file("_inputAST.txt") }

// SEDGrid is the default location of the synthetic SED grid.
func (p ProjectPaths) SEDGrid() string { return p.file("_seds.grid.hd5") }

// LockFile serializes concurrent runs on the same project namespace.
func (p ProjectPaths) LockFile() string { return p.file(".lock") }

// Package handler implements the run-tracking API endpoints.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"ast-pipeline/internal/model"
	"ast-pipeline/internal/pipeline"
	"ast-pipeline/internal/store"
	"ast-pipeline/pkg/router"
	"ast-pipeline/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunHandler serves the run endpoints and launches pipeline runs.
type RunHandler struct {
	Store *store.Store
	Log   *zap.Logger
}

func (h *RunHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Warn("failed to encode response", zap.Error(err))
	}
}

// CreateRun starts a new AST input run
// @Summary Start an AST input run
// @Description Validates the submitted configuration and runs the pipeline asynchronously
// @Tags runs
// @Accept json
// @Produce json
// @Param config body model.RunConfig true "Run configuration"
// @Success 202 {object} map[string]interface{} "Run accepted"
// @Failure 400 {object} map[string]interface{} "Invalid configuration"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var cfg model.RunConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid JSON payload"})
		return
	}
	if cfg.AST.RealizationsPerModel == 0 {
		cfg.AST.RealizationsPerModel = 1
	}
	if err := cfg.Validate(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	runID := uuid.New().String()
	if err := h.Store.SaveRun(runID, cfg); err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to save run"})
		return
	}

	p := pipeline.New(cfg, h.Log, pipeline.WithTracker(store.NewTracker(h.Store, h.Log)))
	go func() {
		if err := p.Run(context.Background(), runID); err != nil {
			h.Log.Error("run failed", zap.String("run", runID), zap.Error(err))
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"runID":   runID,
		"project": cfg.Project,
		"status":  "pending",
	})
}

// ListRuns lists all runs
// @Summary List runs
// @Tags runs
// @Produce json
// @Success 200 {array} store.RunInfo
// @Router /runs [get]
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns()
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []store.RunInfo{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

// GetRun fetches one run with its configuration and stage progress
// @Summary Get a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := router.PathSegment(r, 3)
	info, cfg, err := h.Store.GetRun(runID)
	if err != nil {
		h.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "run not found"})
		return
	}
	stages, err := h.Store.ListStageProgress(runID)
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to load stage progress"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":    info,
		"config": cfg,
		"stages": stages,
	})
}

// GetRunErrors lists a run's recorded errors
// @Summary Get run errors
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} store.RunError
// @Router /runs/{id}/errors [get]
func (h *RunHandler) GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID := router.PathSegment(r, 3)
	errs, err := h.Store.ListRunErrors(runID)
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to load run errors"})
		return
	}
	if errs == nil {
		errs = []store.RunError{}
	}
	h.writeJSON(w, http.StatusOK, errs)
}

// artifactInfo describes one produced artifact file.
type artifactInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// GetRunArtifacts lists the artifacts a run has produced so far
// @Summary Get run artifacts
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} handler.artifactInfo
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/artifacts [get]
func (h *RunHandler) GetRunArtifacts(w http.ResponseWriter, r *http.Request) {
	runID := router.PathSegment(r, 3)
	_, cfg, err := h.Store.GetRun(runID)
	if err != nil {
		h.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "run not found"})
		return
	}

	paths := utils.NewProjectPaths(cfg.OutputDir, cfg.Project)
	artifacts := []artifactInfo{}
	for _, p := range []string{paths.InputASTSEDs(), paths.ASTParams(), paths.FluxBins(), paths.InputAST()} {
		fi, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifactInfo{Name: filepath.Base(p), Path: p, Size: fi.Size()})
	}
	h.writeJSON(w, http.StatusOK, artifacts)
}

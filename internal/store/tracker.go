package store

import (
	"time"

	"go.uber.org/zap"
)

// Tracker adapts the store to the pipeline's Tracker interface. Tracking is
// best effort: store failures are logged, never fatal to the run.
type Tracker struct {
	Store *Store
	Log   *zap.Logger

	started map[string]time.Time
}

// NewTracker builds a tracker writing through to s.
func NewTracker(s *Store, log *zap.Logger) *Tracker {
	return &Tracker{Store: s, Log: log, started: make(map[string]time.Time)}
}

func (t *Tracker) RunStatus(runID, status string) {
	if err := t.Store.UpdateRunStatus(runID, status); err != nil {
		t.Log.Warn("failed to update run status", zap.String("run", runID), zap.Error(err))
	}
}

func (t *Tracker) StageStarted(runID, stage string) {
	now := time.Now().UTC()
	t.started[runID+"/"+stage] = now
	if err := t.Store.SaveStageProgress(runID, stage, "started", 0, now, nil); err != nil {
		t.Log.Warn("failed to record stage start", zap.String("stage", stage), zap.Error(err))
	}
}

func (t *Tracker) StageCompleted(runID, stage string, rows int) {
	now := time.Now().UTC()
	start := t.started[runID+"/"+stage]
	if err := t.Store.SaveStageProgress(runID, stage, "completed", rows, start, &now); err != nil {
		t.Log.Warn("failed to record stage completion", zap.String("stage", stage), zap.Error(err))
	}
}

func (t *Tracker) StageFailed(runID, stage string, stageErr error) {
	now := time.Now().UTC()
	start := t.started[runID+"/"+stage]
	if err := t.Store.SaveStageProgress(runID, stage, "failed", 0, start, &now); err != nil {
		t.Log.Warn("failed to record stage failure", zap.String("stage", stage), zap.Error(err))
	}
	if err := t.Store.SaveRunError(runID, stage, stageErr); err != nil {
		t.Log.Warn("failed to record run error", zap.String("stage", stage), zap.Error(err))
	}
}

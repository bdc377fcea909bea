package store

import (
	"errors"
	"path/filepath"
	"testing"

	"ast-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleConfig() model.RunConfig {
	return model.RunConfig{
		Project: "phat",
		Filters: []string{"HST_WFC3_F275W"},
		ObsFile: "./obs.txt",
		AST: model.ASTConfig{
			MagLimits:            []float64{1.0},
			RealizationsPerModel: 20,
			BandsAboveMagLimit:   1,
			SelectionMethod:      model.MethodStratified,
			NFluxBins:            40,
			MinPerFluxBin:        50,
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveRun("run-1", sampleConfig()))

	info, cfg, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", info.ID)
	assert.Equal(t, "phat", info.Project)
	assert.Equal(t, "pending", info.Status)
	assert.Equal(t, sampleConfig(), cfg, "configuration survives the JSON roundtrip")
}

func TestUpdateRunStatus(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRun("run-1", sampleConfig()))

	require.NoError(t, s.UpdateRunStatus("run-1", "completed"))

	info, _, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", info.Status)
}

func TestListRuns(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRun("run-1", sampleConfig()))
	require.NoError(t, s.SaveRun("run-2", sampleConfig()))

	runs, err := s.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestGetRun_Unknown(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.GetRun("nope")
	assert.Error(t, err)
}

func TestRunErrors(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRun("run-1", sampleConfig()))

	require.NoError(t, s.SaveRunError("run-1", "sed_selection", errors.New("grid is empty")))
	require.NoError(t, s.SaveRunError("run-1", "positions", errors.New("map unreadable")))
	require.NoError(t, s.SaveRunError("run-1", "positions", nil), "nil errors are ignored")

	errs, err := s.ListRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "sed_selection", errs[0].Stage)
	assert.Equal(t, "grid is empty", errs[0].Message)
}

func TestTrackerRecordsLifecycle(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRun("run-1", sampleConfig()))
	tr := NewTracker(s, zap.NewNop())

	tr.RunStatus("run-1", "running")
	tr.StageStarted("run-1", "magcuts")
	tr.StageCompleted("run-1", "magcuts", 2)
	tr.StageStarted("run-1", "sed_selection")
	tr.StageFailed("run-1", "sed_selection", errors.New("grid is empty"))
	tr.RunStatus("run-1", "failed")

	info, _, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "failed", info.Status)

	stages, err := s.ListStageProgress("run-1")
	require.NoError(t, err)
	require.Len(t, stages, 4)
	assert.Equal(t, "started", stages[0].Status)
	assert.Equal(t, "completed", stages[1].Status)
	assert.Equal(t, 2, stages[1].Rows)
	assert.NotNil(t, stages[1].EndedAt)
	assert.Equal(t, "failed", stages[3].Status)

	errs, err := s.ListRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "sed_selection", errs[0].Stage)
}

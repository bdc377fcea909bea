package pipeline

// Tracker receives run and stage lifecycle events. The sqlite-backed store
// implements it for the CLI and API; tests and library callers can use
// NopTracker to run the pipeline without a database.
type Tracker interface {
	RunStatus(runID, status string)
	StageStarted(runID, stage string)
	StageCompleted(runID, stage string, rows int)
	StageFailed(runID, stage string, err error)
}

// NopTracker discards all tracking events.
type NopTracker struct{}

func (NopTracker) RunStatus(string, string)           {}
func (NopTracker) StageStarted(string, string)        {}
func (NopTracker) StageCompleted(string, string, int) {}
func (NopTracker) StageFailed(string, string, error)  {}

package model

import "errors"

// Error kinds of the pipeline. Every fatal error wraps exactly one of these
// so callers can classify failures without string matching.
var (
	// ErrConfig marks malformed or internally inconsistent parameters.
	ErrConfig = errors.New("configuration error")

	// ErrData marks unusable input data (empty grid, no valid detections).
	ErrData = errors.New("data error")

	// ErrCacheInconsistent marks a cached selection artifact that does not
	// match the parameters of the current run.
	ErrCacheInconsistent = errors.New("cached artifact inconsistent with configuration")
)

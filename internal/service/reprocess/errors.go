package reprocess

import "errors"

// ErrReprocessCanceled is returned when a reprocessing run was canceled
// before its merged result could be persisted. The stored card list is
// left untouched.
var ErrReprocessCanceled = errors.New("reprocessing canceled before completion")

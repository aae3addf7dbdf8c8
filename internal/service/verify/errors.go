package verify

import "errors"

// Errors returned by the verification action processor.
var (
	// ErrInconsistentState is returned when a catalog commit succeeded but
	// the subsequent pending-store update failed even after a retry. The
	// card exists in the catalog while the pending view may still show it;
	// reconciliation is a deliberate operator step, never automatic.
	ErrInconsistentState = errors.New(
		"inconsistent state: card committed to catalog but pending store update failed")

	// ErrUndoCannotRetractCommit is informational: undo operates purely on
	// file-level state and never retracts a catalog commit. It is carried
	// in undo results for pass actions, not returned as a failure.
	ErrUndoCannotRetractCommit = errors.New(
		"undo restored pending state only; the catalog commit was not retracted")
)

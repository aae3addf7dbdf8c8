package domain

import "time"

// ActionKind identifies the verification action a history entry records.
type ActionKind string

// Recorded verification actions.
const (
	ActionEdit     ActionKind = "edit"
	ActionPassCard ActionKind = "pass_card"
	ActionPassAll  ActionKind = "pass_all"
	ActionFailCard ActionKind = "fail_card"
	ActionFailAll  ActionKind = "fail_all"
)

// Valid reports whether the kind is one of the recorded actions.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionEdit, ActionPassCard, ActionPassAll, ActionFailCard, ActionFailAll:
		return true
	}
	return false
}

// MaxHistoryEntries caps the per-image history log. The oldest entry is
// evicted when the cap is reached.
const MaxHistoryEntries = 50

// HistoryEntry records one mutation of a pending image so it can be undone.
// Before is always the full card list as it stood immediately prior to the
// action; undo rewrites the list to Before.
type HistoryEntry struct {
	Timestamp time.Time    `json:"timestamp"`
	Action    ActionKind   `json:"action"`
	CardIndex *int         `json:"card_index,omitempty"`
	Before    []CardRecord `json:"before"`
	After     []CardRecord `json:"after,omitempty"`
}

// NewHistoryEntry builds an entry with a UTC timestamp and deep-copied
// snapshots, so later mutation of the live list cannot corrupt the log.
func NewHistoryEntry(action ActionKind, before, after []CardRecord, cardIndex *int) (HistoryEntry, error) {
	if !action.Valid() {
		return HistoryEntry{}, ErrInvalidActionKind
	}
	var idx *int
	if cardIndex != nil {
		v := *cardIndex
		idx = &v
	}
	return HistoryEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		CardIndex: idx,
		Before:    CloneCards(before),
		After:     CloneCards(after),
	}, nil
}

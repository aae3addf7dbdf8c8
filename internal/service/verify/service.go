// Package verify implements the verification action processor: the
// commit/reject/save/undo workflow that moves extracted cards from the
// pending store into the permanent catalog or back out of the system.
//
// A single verification action is a sequence of I/O boundaries (catalog
// commit, history write, pending-store update, asset move), not one atomic
// transaction. The processor orders the boundaries so the catalog commit
// happens first and fails closed, retries the pending-store write once,
// and reports ErrInconsistentState when durable state diverged anyway.
// All mutating actions on the same pending image ID are serialized by a
// keyed mutex.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/learning"
	"github.com/mkessler/cardvault-api/internal/platform/logger"
	"github.com/mkessler/cardvault-api/internal/store"
	"github.com/mkessler/cardvault-api/internal/task"
)

// Service processes verification actions against the pending work store,
// the history log, and the external catalog.
type Service struct {
	pending  store.PendingStore
	archiver store.Archiver
	history  store.HistoryStore
	catalog  store.CatalogStore
	hook     learning.Hook
	locks    *task.KeyedMutex
	logger   *slog.Logger
}

// NewService creates a verification service. All dependencies are
// required except hook, which defaults to a disabled hook.
func NewService(
	pending store.PendingStore,
	archiver store.Archiver,
	history store.HistoryStore,
	catalog store.CatalogStore,
	hook learning.Hook,
	locks *task.KeyedMutex,
	log *slog.Logger,
) (*Service, error) {
	if pending == nil || archiver == nil || history == nil || catalog == nil || locks == nil {
		return nil, errors.New("all store dependencies are required")
	}
	if hook == nil {
		hook = learning.NoopHook{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pending:  pending,
		archiver: archiver,
		history:  history,
		catalog:  catalog,
		hook:     hook,
		locks:    locks,
		logger:   log.With(slog.String("component", "verify_service")),
	}, nil
}

// UndoResult describes one undone action.
type UndoResult struct {
	Action        domain.ActionKind `json:"action"`
	CardIndex     *int              `json:"card_index,omitempty"`
	CardsRestored int               `json:"cards_restored"`
	Remaining     int               `json:"remaining_undos"`

	// CatalogNote is set when the undone action had committed cards to
	// the catalog; those commits are not retracted.
	CatalogNote string `json:"catalog_note,omitempty"`
}

// PassCard commits one card to the catalog and removes it from the
// pending image. When edited is non-nil it replaces the stored record
// before the commit; edits diverging from the original extraction are
// reported to the learning hook.
func (s *Service) PassCard(ctx context.Context, id string, index int, edited *domain.CardRecord) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	img, err := s.pending.Load(ctx, id)
	if err != nil {
		return err
	}
	stored, err := img.CardAt(index)
	if err != nil {
		return err
	}

	card := s.applyEdits(*stored, edited)

	now := time.Now().UTC()
	commit := store.CardCommit{
		Card:       card,
		SourceFile: img.SourceImage,
		VerifiedAt: now,
	}
	if pos, ok := card.Position(); ok {
		commit.GridPosition = &pos
	}

	// Catalog commit comes first and fails closed: if it fails, nothing
	// else happens.
	if err := s.catalog.CommitCard(ctx, commit); err != nil {
		return fmt.Errorf("catalog commit failed: %w", err)
	}

	s.reportCorrections(ctx, img, card)
	s.appendHistory(ctx, id, domain.ActionPassCard, img.Cards, nil, &index)

	before := len(img.Cards)
	if err := img.RemoveCard(index); err != nil {
		return err
	}

	if err := s.persistShrunkList(ctx, id, img, true); err != nil {
		return err
	}

	if pos, ok := card.Position(); ok {
		if err := s.archiver.ArchiveBack(ctx, id, pos); err != nil {
			s.logger.Warn("failed to archive card back asset",
				slog.String("id", id),
				slog.Int("position", pos),
				slog.String("error", err.Error()))
		}
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("card passed",
		slog.String("id", id),
		slog.Int("index", index),
		slog.Int("cards_before", before),
		slog.Int("cards_after", len(img.Cards)))
	return nil
}

// FailCard discards one card without a catalog commit and deletes its
// back-crop asset.
func (s *Service) FailCard(ctx context.Context, id string, index int) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	img, err := s.pending.Load(ctx, id)
	if err != nil {
		return err
	}
	stored, err := img.CardAt(index)
	if err != nil {
		return err
	}
	pos, hasPos := stored.Position()

	s.appendHistory(ctx, id, domain.ActionFailCard, img.Cards, nil, &index)

	if err := img.RemoveCard(index); err != nil {
		return err
	}
	if err := s.persistShrunkList(ctx, id, img, false); err != nil {
		return err
	}

	if hasPos {
		if err := s.archiver.DeleteBack(ctx, id, pos); err != nil {
			s.logger.Warn("failed to delete card back asset",
				slog.String("id", id),
				slog.Int("position", pos),
				slog.String("error", err.Error()))
		}
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("card failed",
		slog.String("id", id),
		slog.Int("index", index))
	return nil
}

// PassAll commits every card and unconditionally archives the image.
// When edited is non-nil and matches the stored list's length, it
// replaces the list before committing.
func (s *Service) PassAll(ctx context.Context, id string, edited []domain.CardRecord) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	img, err := s.pending.Load(ctx, id)
	if err != nil {
		return err
	}

	cards := domain.CloneCards(img.Cards)
	if edited != nil && len(edited) == len(cards) {
		cards = domain.CloneCards(edited)
		for i := range cards {
			cards[i] = s.applyEdits(img.Cards[i], &cards[i])
		}
	}

	now := time.Now().UTC()
	for i := range cards {
		commit := store.CardCommit{
			Card:       cards[i],
			SourceFile: img.SourceImage,
			VerifiedAt: now,
		}
		if pos, ok := cards[i].Position(); ok {
			commit.GridPosition = &pos
		}
		if err := s.catalog.CommitCard(ctx, commit); err != nil {
			// Fail closed: earlier commits in this loop stand, nothing
			// else mutates, and the error carries which card broke.
			return fmt.Errorf("catalog commit failed at index %d: %w", i, err)
		}
		s.reportCorrections(ctx, img, cards[i])
	}

	s.appendHistory(ctx, id, domain.ActionPassAll, img.Cards, nil, nil)

	if err := s.retryOnce(func() error {
		_, err := s.archiver.ArchiveImage(ctx, id)
		return err
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}
	if err := s.retryOnce(func() error { return s.pending.Delete(ctx, id) }); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}

	for i := range cards {
		if pos, ok := cards[i].Position(); ok {
			if err := s.archiver.ArchiveBack(ctx, id, pos); err != nil {
				s.logger.Warn("failed to archive card back asset",
					slog.String("id", id),
					slog.Int("position", pos),
					slog.String("error", err.Error()))
			}
		}
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("image fully verified",
		slog.String("id", id),
		slog.Int("cards", len(cards)))
	return nil
}

// FailAll rejects the whole image: the sidecar is deleted and the source
// image moves back to the intake directory so it re-enters the batch
// extraction queue. Nothing is committed and nothing is deleted beyond
// the per-card back crops.
func (s *Service) FailAll(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	img, err := s.pending.Load(ctx, id)
	if err != nil {
		return err
	}

	s.appendHistory(ctx, id, domain.ActionFailAll, img.Cards, nil, nil)

	if err := s.archiver.RecycleImage(ctx, id); err != nil {
		return err
	}
	if err := s.pending.Delete(ctx, id); err != nil {
		return err
	}

	for i := range img.Cards {
		if pos, ok := img.Cards[i].Position(); ok {
			if err := s.archiver.DeleteBack(ctx, id, pos); err != nil {
				s.logger.Warn("failed to delete card back asset",
					slog.String("id", id),
					slog.Int("position", pos),
					slog.String("error", err.Error()))
			}
		}
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("image rejected to intake",
		slog.String("id", id),
		slog.Int("cards_discarded", len(img.Cards)))
	return nil
}

// SaveProgress merges a partial edit into the stored card list and
// persists it. Returns the merged list.
func (s *Service) SaveProgress(ctx context.Context, id string, incoming []domain.CardRecord, cardIndex *int) ([]domain.CardRecord, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	img, err := s.pending.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	merged, err := domain.MergeSave(img.Cards, incoming, cardIndex)
	if err != nil {
		return nil, err
	}

	s.appendHistory(ctx, id, domain.ActionEdit, img.Cards, merged, cardIndex)

	if err := s.pending.Replace(ctx, id, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Undo rolls back the most recent recorded action by rewriting the card
// list to the entry's before-snapshot, recreating the sidecar when the
// action had archived or deleted it. Catalog commits are never retracted;
// the result says so for pass actions.
func (s *Service) Undo(ctx context.Context, id string) (*UndoResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	entry, remaining, err := s.history.Pop(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.pending.Load(ctx, id); err == nil {
		err = s.pending.Replace(ctx, id, entry.Before)
		if err != nil {
			return nil, err
		}
	} else if errors.Is(err, store.ErrPendingNotFound) {
		if err := s.pending.Restore(ctx, id, entry.Before); err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}

	result := &UndoResult{
		Action:        entry.Action,
		CardIndex:     entry.CardIndex,
		CardsRestored: len(entry.Before),
		Remaining:     remaining,
	}
	if entry.Action == domain.ActionPassCard || entry.Action == domain.ActionPassAll {
		result.CatalogNote = ErrUndoCannotRetractCommit.Error()
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("action undone",
		slog.String("id", id),
		slog.String("action", string(entry.Action)),
		slog.Int("remaining_undos", remaining))
	return result, nil
}

// Sessions lists pending image IDs with recorded history, most recently
// active first.
func (s *Service) Sessions(ctx context.Context) ([]store.SessionInfo, error) {
	return s.history.Sessions(ctx)
}

// persistShrunkList writes the shortened card list, or archives the image
// and deletes the sidecar when the list emptied. committed selects the
// retry-once + inconsistent-state contract used after a catalog commit.
func (s *Service) persistShrunkList(ctx context.Context, id string, img *domain.PendingImage, committed bool) error {
	if len(img.Cards) == 0 {
		archive := func() error {
			_, err := s.archiver.ArchiveImage(ctx, id)
			return err
		}
		remove := func() error { return s.pending.Delete(ctx, id) }

		if committed {
			if err := s.retryOnce(archive); err != nil {
				return fmt.Errorf("%w: %v", ErrInconsistentState, err)
			}
			if err := s.retryOnce(remove); err != nil {
				return fmt.Errorf("%w: %v", ErrInconsistentState, err)
			}
			return nil
		}
		if err := archive(); err != nil {
			return err
		}
		return remove()
	}

	write := func() error { return s.pending.Replace(ctx, id, img.Cards) }
	if committed {
		if err := s.retryOnce(write); err != nil {
			return fmt.Errorf("%w: %v", ErrInconsistentState, err)
		}
		return nil
	}
	return write()
}

// retryOnce runs fn, retrying exactly once on failure.
func (s *Service) retryOnce(fn func() error) error {
	if err := fn(); err != nil {
		s.logger.Warn("durable write failed, retrying once",
			slog.String("error", err.Error()))
		return fn()
	}
	return nil
}

// appendHistory records the action with a pre-mutation snapshot. History
// is best-effort: failures are logged and never block the action.
func (s *Service) appendHistory(ctx context.Context, id string, action domain.ActionKind, before, after []domain.CardRecord, cardIndex *int) {
	entry, err := domain.NewHistoryEntry(action, before, after, cardIndex)
	if err != nil {
		s.logger.Warn("failed to build history entry",
			slog.String("id", id),
			slog.String("action", string(action)),
			slog.String("error", err.Error()))
		return
	}
	if err := s.history.Append(ctx, id, entry); err != nil {
		s.logger.Warn("failed to append history entry",
			slog.String("id", id),
			slog.String("action", string(action)),
			slog.String("error", err.Error()))
	}
}

// applyEdits overlays an edited record onto the stored one, preserving
// provenance the editor does not carry, and normalizes the result.
func (s *Service) applyEdits(stored domain.CardRecord, edited *domain.CardRecord) domain.CardRecord {
	if edited == nil {
		card := stored.Clone()
		domain.NormalizeCard(&card)
		return card
	}

	card := edited.Clone()
	if card.Grid == nil {
		card.Grid = stored.Grid
	}
	if card.Original == nil {
		card.Original = stored.Original
	}
	if card.Extra == nil {
		card.Extra = stored.Extra
	}
	if card.Confidence == nil {
		card.Confidence = stored.Confidence
	}
	if card.MatchedFrontFile == "" {
		card.MatchedFrontFile = stored.MatchedFrontFile
	}
	domain.NormalizeCard(&card)
	return card
}

// reportCorrections diffs the committed card against its original
// extraction snapshot and fires the learning hook for divergent fields.
// Fire-and-forget: the hook never blocks or fails the commit.
func (s *Service) reportCorrections(ctx context.Context, img *domain.PendingImage, card domain.CardRecord) {
	if len(card.Original) == 0 {
		return
	}

	var original domain.CardRecord
	if err := json.Unmarshal(card.Original, &original); err != nil {
		s.logger.Debug("unparseable original extraction snapshot, skipping corrections",
			slog.String("id", img.ID),
			slog.String("error", err.Error()))
		return
	}
	domain.NormalizeCard(&original)

	pairs := []struct {
		field    string
		original string
		edited   string
	}{
		{"name", original.Name, card.Name},
		{"sport", original.Sport, card.Sport},
		{"brand", original.Brand, card.Brand},
		{"number", original.Number, card.Number},
		{"year", original.Year, card.Year},
		{"team", original.Team, card.Team},
		{"set", original.CardSet, card.CardSet},
		{"condition", original.Condition, card.Condition},
	}

	corrections := make([]learning.Correction, 0, len(pairs))
	where := img.SourceImage
	if pos, ok := card.Position(); ok {
		where = fmt.Sprintf("%s position %d", img.SourceImage, pos)
	}
	for _, p := range pairs {
		if p.original != p.edited {
			corrections = append(corrections, learning.Correction{
				Field:     p.field,
				Original:  p.original,
				Corrected: p.edited,
				Context:   where,
			})
		}
	}
	s.hook.Report(ctx, corrections)
}

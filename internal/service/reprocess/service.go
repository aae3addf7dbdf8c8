// Package reprocess implements the reprocessing orchestrator: re-running
// AI extraction over a pending image and merging the fresh records with
// the cards the operator already worked on.
//
// At most one reprocessing run exists per image ID, enforced by an atomic
// slot reservation in the job registry. Cancellation is cooperative
// through the slot's context; cancelling a slot that is free or already
// finished is a no-op.
package reprocess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/extraction"
	"github.com/mkessler/cardvault-api/internal/platform/logger"
	"github.com/mkessler/cardvault-api/internal/store"
	"github.com/mkessler/cardvault-api/internal/task"
)

// Mode selects which grid positions a reprocessing run re-extracts.
type Mode string

const (
	// ModeRemaining re-extracts only the positions still pending
	// verification, keeping nothing at those positions.
	ModeRemaining Mode = "remaining"

	// ModeAll re-extracts every cell of the grid, replacing the whole
	// card list.
	ModeAll Mode = "all"
)

// ParseMode validates a wire-level mode string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeRemaining, ModeAll:
		return Mode(raw), nil
	case "":
		return ModeRemaining, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidReprocessMode, raw)
}

// Result describes a completed reprocessing run.
type Result struct {
	RunID       string              `json:"run_id"`
	Mode        Mode                `json:"mode"`
	Reextracted []int               `json:"reextracted_positions"`
	Cards       []domain.CardRecord `json:"cards"`
}

// Service orchestrates reprocessing runs.
type Service struct {
	pending   store.PendingStore
	locator   store.ImageLocator
	extractor extraction.Extractor
	locks     *task.KeyedMutex
	registry  *task.Registry
	logger    *slog.Logger
}

// NewService creates a reprocessing service.
func NewService(
	pending store.PendingStore,
	locator store.ImageLocator,
	extractor extraction.Extractor,
	locks *task.KeyedMutex,
	registry *task.Registry,
	log *slog.Logger,
) (*Service, error) {
	if pending == nil || locator == nil || extractor == nil || locks == nil || registry == nil {
		return nil, errors.New("all dependencies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pending:   pending,
		locator:   locator,
		extractor: extractor,
		locks:     locks,
		registry:  registry,
		logger:    log.With(slog.String("component", "reprocess_service")),
	}, nil
}

// slotKey namespaces reprocessing slots so they never collide with the
// batch slot.
func slotKey(id string) string { return "reprocess:" + id }

// Reprocess runs one re-extraction over the image and persists the merged
// card list. Returns task.ErrJobActive when a run already holds the
// image's slot, and ErrReprocessCanceled when the run's slot was canceled
// before the merged list was written.
func (s *Service) Reprocess(ctx context.Context, id string, mode Mode) (*Result, error) {
	job, err := s.registry.Acquire(ctx, slotKey(id))
	if err != nil {
		return nil, err
	}
	defer s.registry.Release(job)

	log := logger.FromContextOrDefault(ctx, s.logger)

	img, err := s.pending.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	imagePath, err := s.locator.ImagePath(ctx, id)
	if err != nil {
		return nil, err
	}

	req := extraction.Request{
		ImagePath: imagePath,
		Previous:  domain.CloneCards(img.Cards),
		GridMode:  true,
	}
	switch mode {
	case ModeAll:
		// Every cell; leave Positions empty and let grid mode read the
		// whole layout.
	case ModeRemaining:
		req.Positions = domain.Positions(img.Cards)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReprocessMode, mode)
	}

	log.Info("reprocessing started",
		slog.String("id", id),
		slog.String("run_id", job.RunID()),
		slog.String("mode", string(mode)),
		slog.Any("positions", req.Positions))

	fresh, err := s.extractor.ExtractCards(job.Context(), req)
	if err != nil {
		if job.Context().Err() != nil {
			log.Info("reprocessing canceled during extraction",
				slog.String("id", id),
				slog.String("run_id", job.RunID()))
			return nil, ErrReprocessCanceled
		}
		return nil, fmt.Errorf("re-extraction failed: %w", err)
	}

	reprocessed := make(map[int]bool, domain.GridPositions)
	switch mode {
	case ModeAll:
		for pos := 0; pos < domain.GridPositions; pos++ {
			reprocessed[pos] = true
		}
	case ModeRemaining:
		for _, pos := range req.Positions {
			reprocessed[pos] = true
		}
	}

	// The merge and write run under the image's mutation lock so they
	// serialize against concurrent verification actions, and against the
	// current stored list rather than the one loaded before extraction.
	unlock := s.locks.Lock(id)
	defer unlock()

	if job.Context().Err() != nil {
		return nil, ErrReprocessCanceled
	}

	current, err := s.pending.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := domain.MergeReprocessed(current.Cards, fresh, reprocessed)
	if len(merged) == 0 {
		return nil, store.ErrEmptyCardList
	}
	if err := s.pending.Replace(ctx, id, merged); err != nil {
		return nil, err
	}

	positions := make([]int, 0, len(reprocessed))
	for pos := range reprocessed {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	log.Info("reprocessing finished",
		slog.String("id", id),
		slog.String("run_id", job.RunID()),
		slog.Int("fresh_cards", len(fresh)),
		slog.Int("merged_cards", len(merged)))

	return &Result{
		RunID:       job.RunID(),
		Mode:        mode,
		Reextracted: positions,
		Cards:       merged,
	}, nil
}

// Cancel requests cancellation of the image's live run. Returns false when
// no run held the slot; that is not an error, the cancel may have raced
// with completion.
func (s *Service) Cancel(ctx context.Context, id string) bool {
	job := s.registry.Cancel(slotKey(id))
	if job == nil {
		return false
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("reprocessing cancel requested",
		slog.String("id", id),
		slog.String("run_id", job.RunID()))
	return true
}

// Active reports whether a reprocessing run currently holds the image's
// slot.
func (s *Service) Active(id string) bool {
	return s.registry.Get(slotKey(id)) != nil
}

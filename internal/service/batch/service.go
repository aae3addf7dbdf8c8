// Package batch implements the background extraction sweep over the
// intake directory and its durable status tracking. Exactly one sweep
// runs system-wide, held in the job registry's singleton batch slot; the
// durable status record outlives the process and Poll reconciles it
// against the live slot, so an unclean exit never leaves the system
// reporting a phantom active job.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/extraction"
	"github.com/mkessler/cardvault-api/internal/platform/logger"
	"github.com/mkessler/cardvault-api/internal/store"
	"github.com/mkessler/cardvault-api/internal/task"
)

// slotKey is the registry key of the singleton sweep slot.
const slotKey = "batch"

// ErrNoIntakeImages is returned by Start when the intake directory holds
// nothing to process.
var ErrNoIntakeImages = errors.New("no images waiting in intake")

// Substeps written to the progress record as a file moves through the
// sweep.
const (
	substepExtracting = "extracting"
	substepAdmitting  = "admitting"
)

// Service runs and tracks the batch extraction sweep.
type Service struct {
	intake    store.IntakeStore
	status    store.BatchStatusStore
	extractor extraction.Extractor
	registry  *task.Registry
	logger    *slog.Logger

	defaultCount int
}

// NewService creates a batch service. defaultCount bounds a Start with no
// explicit count; zero means the whole intake directory.
func NewService(
	intake store.IntakeStore,
	status store.BatchStatusStore,
	extractor extraction.Extractor,
	registry *task.Registry,
	defaultCount int,
	log *slog.Logger,
) (*Service, error) {
	if intake == nil || status == nil || extractor == nil || registry == nil {
		return nil, errors.New("all dependencies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		intake:       intake,
		status:       status,
		extractor:    extractor,
		registry:     registry,
		defaultCount: defaultCount,
		logger:       log.With(slog.String("component", "batch_service")),
	}, nil
}

// Start launches one background sweep over the oldest count intake images
// and returns immediately with the initial status. count <= 0 falls back
// to the configured default, and a zero default means everything waiting.
// Returns task.ErrJobActive when a sweep already holds the slot.
func (s *Service) Start(ctx context.Context, count int) (*domain.BatchStatus, error) {
	job, err := s.registry.Acquire(context.Background(), slotKey)
	if err != nil {
		return nil, err
	}

	manifest, err := s.intake.ListIntake(ctx)
	if err != nil {
		s.registry.Release(job)
		return nil, err
	}
	if len(manifest) == 0 {
		s.registry.Release(job)
		return nil, ErrNoIntakeImages
	}

	if count <= 0 {
		count = s.defaultCount
	}
	if count > 0 && count < len(manifest) {
		manifest = manifest[:count]
	}

	status := &domain.BatchStatus{
		Active:    true,
		RunID:     job.RunID(),
		Total:     len(manifest),
		Remaining: len(manifest),
		Progress:  0,
		StartedAt: job.StartedAt(),
	}
	if err := s.status.SaveStatus(ctx, status); err != nil {
		s.registry.Release(job)
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("batch sweep started",
		slog.String("run_id", job.RunID()),
		slog.Int("images", len(manifest)))

	go s.run(job, manifest)

	snapshot := *status
	return &snapshot, nil
}

// Poll returns the current batch status: the durable record, corrected
// when its active flag is stale, with the live progress record overlaid
// when one exists for the same run.
func (s *Service) Poll(ctx context.Context) (*domain.BatchStatus, error) {
	status, err := s.status.LoadStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Active {
		return status, nil
	}

	job := s.registry.Get(slotKey)
	if job == nil || job.RunID() != status.RunID {
		// The record says active but no live job backs it: the process
		// died mid-sweep. Correct the record so clients stop waiting.
		status.Active = false
		now := time.Now().UTC()
		status.FinishedAt = &now
		if err := s.status.SaveStatus(ctx, status); err != nil {
			return nil, err
		}
		s.logger.Warn("corrected stale active batch status",
			slog.String("run_id", status.RunID))
		return status, nil
	}

	progress, err := s.status.LoadProgress(ctx)
	switch {
	case err == nil && progress.RunID == status.RunID && progress.Total > 0:
		status.CurrentFile = progress.File
		status.Substep = progress.Substep
		status.Progress = clampPercent(progress.Current, progress.Total)
	case err == nil || errors.Is(err, store.ErrNotFound):
		// No usable fine-grained record; estimate from how far the
		// manifest has drained.
		done := status.Total - status.Remaining
		status.Progress = clampPercent(done, status.Total)
	default:
		return nil, err
	}
	return status, nil
}

// Cancel requests cancellation of the live sweep. Returns false when no
// sweep holds the slot; cancelling twice or after completion is a no-op.
func (s *Service) Cancel(ctx context.Context) (bool, error) {
	job := s.registry.Cancel(slotKey)
	if job == nil {
		// Nothing live. If the durable record still claims an active run,
		// correct it here the same way Poll would.
		if _, err := s.Poll(ctx); err != nil {
			return false, err
		}
		return false, nil
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("batch cancel requested",
		slog.String("run_id", job.RunID()))
	return true, nil
}

// run is the sweep itself. It owns the slot until it returns.
func (s *Service) run(job *task.Job, manifest []string) {
	defer s.registry.Release(job)

	ctx := job.Context()
	log := s.logger.With(slog.String("run_id", job.RunID()))

	processed := 0
	for i, name := range manifest {
		if ctx.Err() != nil {
			break
		}

		s.writeProgress(job, i+1, len(manifest), name, substepExtracting)
		s.updateStatus(job, len(manifest)-i, name, substepExtracting)

		cards, err := s.extractor.ExtractCards(ctx, extraction.Request{
			ImagePath: s.intake.IntakePath(name),
			GridMode:  true,
		})
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			// A failed image stays in intake for the next sweep.
			log.Error("extraction failed, image left in intake",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		if len(cards) == 0 {
			log.Warn("extractor returned no cards, image left in intake",
				slog.String("file", name))
			continue
		}

		s.writeProgress(job, i+1, len(manifest), name, substepAdmitting)
		id, err := s.intake.Admit(ctx, name, cards)
		if err != nil {
			log.Error("failed to admit extracted image",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}

		processed++
		log.Info("image admitted to pending",
			slog.String("file", name),
			slog.String("id", id),
			slog.Int("cards", len(cards)))
	}

	s.finish(job, len(manifest), processed, ctx.Err() != nil)
}

// finish writes the terminal status record and clears the progress record.
func (s *Service) finish(job *task.Job, total, processed int, canceled bool) {
	ctx := context.Background()

	now := time.Now().UTC()
	status := &domain.BatchStatus{
		Active:     false,
		RunID:      job.RunID(),
		Total:      total,
		Remaining:  total - processed,
		Canceled:   canceled,
		StartedAt:  job.StartedAt(),
		FinishedAt: &now,
	}
	if canceled {
		status.Progress = clampPercent(processed, total)
	} else {
		// Natural completion always reads 100, even when some images
		// failed and stayed in intake.
		status.Progress = 100
	}

	if err := s.status.SaveStatus(ctx, status); err != nil {
		s.logger.Error("failed to persist final batch status",
			slog.String("run_id", job.RunID()),
			slog.String("error", err.Error()))
	}
	if err := s.status.ClearProgress(ctx); err != nil {
		s.logger.Warn("failed to clear batch progress record",
			slog.String("run_id", job.RunID()),
			slog.String("error", err.Error()))
	}

	s.logger.Info("batch sweep finished",
		slog.String("run_id", job.RunID()),
		slog.Int("processed", processed),
		slog.Int("total", total),
		slog.Bool("canceled", canceled))
}

// writeProgress rewrites the live fine-grained progress record.
// Best-effort.
func (s *Service) writeProgress(job *task.Job, current, total int, file, substep string) {
	progress := &domain.BatchProgress{
		RunID:     job.RunID(),
		Current:   current,
		Total:     total,
		File:      file,
		Substep:   substep,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.status.SaveProgress(context.Background(), progress); err != nil {
		s.logger.Warn("failed to write batch progress",
			slog.String("run_id", job.RunID()),
			slog.String("error", err.Error()))
	}
}

// updateStatus rewrites the coarse durable record mid-run. Best-effort.
func (s *Service) updateStatus(job *task.Job, remaining int, file, substep string) {
	ctx := context.Background()
	status, err := s.status.LoadStatus(ctx)
	if err != nil || status.RunID != job.RunID() {
		return
	}
	status.Remaining = remaining
	status.CurrentFile = file
	status.Substep = substep
	status.Progress = clampPercent(status.Total-remaining, status.Total)
	if err := s.status.SaveStatus(ctx, status); err != nil {
		s.logger.Warn("failed to update batch status",
			slog.String("run_id", job.RunID()),
			slog.String("error", err.Error()))
	}
}

// clampPercent maps done/total onto the 10..99 band a live run reports:
// never 0 once started, never 100 until finish writes it.
func clampPercent(done, total int) int {
	if total <= 0 {
		return 10
	}
	pct := int(math.Round(100 * float64(done) / float64(total)))
	if pct < 10 {
		return 10
	}
	if pct > 99 {
		return 99
	}
	return pct
}

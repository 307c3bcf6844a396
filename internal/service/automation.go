package service

import (
	"context"
	"log/slog"
	"time"

	"steeple/internal/models"
	"steeple/internal/observability"
	"steeple/internal/repository"
)

const dispatchBatchSize = 100

// TriggerTarget identifies who a fired trigger is about. Exactly one field
// is normally set, matching the trigger type.
type TriggerTarget struct {
	MemberID      *uint
	EmailSignupID *uint
	DonorID       *uint
	EventID       *uint
}

// EmailSender delivers a single rendered automation email. Implementations
// wrap an SMTP relay or a transactional email API.
type EmailSender interface {
	Send(ctx context.Context, entry models.AutomationQueueEntry, step models.AutomationStep) error
}

// logSender is the fallback when no relay is configured: it logs the
// delivery and reports success so due entries still leave the queue.
type logSender struct {
	logger *slog.Logger
}

func (l *logSender) Send(ctx context.Context, entry models.AutomationQueueEntry, step models.AutomationStep) error {
	l.logger.InfoContext(ctx, "automation email logged without relay",
		slog.Uint64("entry_id", uint64(entry.ID)),
		slog.Uint64("step_id", uint64(step.ID)),
		slog.String("subject", step.Subject),
	)
	return nil
}

// AutomationService expands fired triggers into scheduled queue entries and
// later dispatches the ones that have come due.
type AutomationService struct {
	autoRepo repository.AutomationRepository
	sender   EmailSender
	logger   *slog.Logger
	now      func() time.Time
}

// NewAutomationService returns a new AutomationService. A nil sender falls
// back to log-only delivery.
func NewAutomationService(autoRepo repository.AutomationRepository, sender EmailSender, logger *slog.Logger) *AutomationService {
	if sender == nil {
		sender = &logSender{logger: logger}
	}
	return &AutomationService{
		autoRepo: autoRepo,
		sender:   sender,
		logger:   logger,
		now:      time.Now,
	}
}

// EnqueueForTrigger finds every active sequence for the trigger type and
// writes one pending queue entry per step, scheduled at now plus the step's
// delay in days. Sequences are independent: a failure in one is logged and
// the rest still enqueue. Re-firing the same trigger enqueues duplicates.
func (s *AutomationService) EnqueueForTrigger(ctx context.Context, triggerType string, target TriggerTarget) {
	seqs, err := s.autoRepo.ActiveSequencesByTrigger(ctx, triggerType)
	if err != nil {
		s.sideEffectError(ctx, triggerType, err)
		return
	}
	if len(seqs) == 0 {
		return
	}

	now := s.now()
	for _, seq := range seqs {
		steps, err := s.autoRepo.StepsForSequence(ctx, seq.ID)
		if err != nil {
			s.sideEffectError(ctx, triggerType, err)
			continue
		}
		entries := make([]models.AutomationQueueEntry, 0, len(steps))
		for _, step := range steps {
			entries = append(entries, models.AutomationQueueEntry{
				SequenceID:    seq.ID,
				StepID:        step.ID,
				MemberID:      target.MemberID,
				EmailSignupID: target.EmailSignupID,
				DonorID:       target.DonorID,
				EventID:       target.EventID,
				RunAt:         now.Add(time.Duration(step.DelayDays) * 24 * time.Hour),
				Status:        models.QueueStatusPending,
			})
		}
		if err := s.autoRepo.Enqueue(ctx, entries); err != nil {
			s.sideEffectError(ctx, triggerType, err)
			continue
		}
		if len(entries) > 0 {
			observability.AutomationEnqueued.WithLabelValues(triggerType).Add(float64(len(entries)))
			s.logger.InfoContext(ctx, "automation steps enqueued",
				slog.String("trigger", triggerType),
				slog.Uint64("sequence_id", uint64(seq.ID)),
				slog.Int("entries", len(entries)),
			)
		}
	}
}

// DispatchDue sends every pending entry whose run_at has passed, one batch
// per call. Each entry is marked sent or failed individually; a send failure
// never blocks the rest of the batch. Returns the number dispatched.
func (s *AutomationService) DispatchDue(ctx context.Context) (int, error) {
	entries, err := s.autoRepo.DueEntries(ctx, s.now(), dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, entry := range entries {
		step, err := s.autoRepo.GetStep(ctx, entry.StepID)
		if err != nil || step == nil {
			reason := "step no longer exists"
			if err != nil {
				reason = err.Error()
			}
			s.markFailed(ctx, entry.ID, reason)
			continue
		}

		if err := s.sender.Send(ctx, entry, *step); err != nil {
			s.markFailed(ctx, entry.ID, err.Error())
			continue
		}

		if err := s.autoRepo.MarkSent(ctx, entry.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark automation entry sent",
				slog.Uint64("entry_id", uint64(entry.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		observability.AutomationDispatched.WithLabelValues("sent").Inc()
		dispatched++
	}
	return dispatched, nil
}

func (s *AutomationService) markFailed(ctx context.Context, entryID uint, reason string) {
	observability.AutomationDispatched.WithLabelValues("failed").Inc()
	if err := s.autoRepo.MarkFailed(ctx, entryID, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark automation entry failed",
			slog.Uint64("entry_id", uint64(entryID)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AutomationService) sideEffectError(ctx context.Context, trigger string, err error) {
	observability.SideEffectErrors.WithLabelValues("automation").Inc()
	s.logger.WarnContext(ctx, "automation enqueue failed",
		slog.String("trigger", trigger),
		slog.String("error", err.Error()),
	)
}

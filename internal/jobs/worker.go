package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenote/internal/metrics"
)

// ErrGone marks a job whose subject no longer exists. It is completed, not
// retried.
var ErrGone = errors.New("job subject gone")

// Notifier tells the practice a new intake awaits review.
type Notifier interface {
	IntakeSubmitted(ctx context.Context, n IntakeNotice) error
}

type IntakeNotice struct {
	IntakeID    uuid.UUID
	ClientName  string
	AgeGroup    string
	TherapistID *uuid.UUID
	SubmittedAt time.Time
}

// LogNotifier writes notices to the log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) IntakeSubmitted(_ context.Context, in IntakeNotice) error {
	fields := []zap.Field{
		zap.String("intake_id", in.IntakeID.String()),
		zap.String("age_group", in.AgeGroup),
		zap.Time("submitted_at", in.SubmittedAt),
	}
	if in.ClientName != "" {
		fields = append(fields, zap.String("client_name", in.ClientName))
	}
	if in.TherapistID != nil {
		fields = append(fields, zap.String("therapist_id", in.TherapistID.String()))
	}
	n.Logger.Info("intake awaiting review", fields...)
	return nil
}

type Worker struct {
	ID       string
	Repo     *Repo
	DB       *gorm.DB
	Notifier Notifier
	Logger   *zap.Logger
	Interval time.Duration
}

// intakeRow reads only what the notice needs from intake_forms.
type intakeRow struct {
	ID         uuid.UUID  `gorm:"column:id"`
	ClientName *string    `gorm:"column:client_name"`
	AgeGroup   string     `gorm:"column:age_group"`
	Status     *string    `gorm:"column:status"`
	CreatedAt  *time.Time `gorm:"column:created_at"`
}

func (intakeRow) TableName() string { return "intake_forms" }

func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(ctx, w.ID)
			if err != nil {
				if ctx.Err() == nil {
					w.Logger.Error("claim failed", zap.Error(err))
				}
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	var err error
	switch job.Type {
	case TypeIntakeSubmitted:
		err = w.handleIntake(ctx, job)
	default:
		metrics.RecordJob(job.Type, "unknown")
		_ = w.Repo.MarkFailed(ctx, job.ID, "unknown job type")
		return
	}

	switch {
	case err == nil, errors.Is(err, ErrGone):
		metrics.RecordJob(job.Type, "done")
		_ = w.Repo.MarkDone(ctx, job.ID)
	default:
		w.Logger.Warn("job failed", zap.Uint64("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		w.retry(ctx, job, err.Error())
	}
}

func (w *Worker) handleIntake(ctx context.Context, job *Job) error {
	var p IntakeSubmitted
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("%w: bad payload", ErrGone)
	}

	var row intakeRow
	if err := w.DB.WithContext(ctx).Where("id = ?", p.IntakeID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGone
		}
		return fmt.Errorf("read intake: %w", err)
	}
	// already reviewed before the worker got to it
	if row.Status != nil && *row.Status == "reviewed" {
		return nil
	}

	notice := IntakeNotice{
		IntakeID:    row.ID,
		AgeGroup:    row.AgeGroup,
		TherapistID: p.TherapistID,
		SubmittedAt: job.CreatedAt,
	}
	if row.ClientName != nil {
		notice.ClientName = *row.ClientName
	}
	if row.CreatedAt != nil {
		notice.SubmittedAt = *row.CreatedAt
	}
	return w.Notifier.IntakeSubmitted(ctx, notice)
}

// backoff is the delay before the given retry attempt.
func backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	return time.Duration(sec) * time.Second
}

func (w *Worker) retry(ctx context.Context, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		metrics.RecordJob(job.Type, "failed")
		_ = w.Repo.MarkFailed(ctx, job.ID, errMsg)
		return
	}
	metrics.RecordJob(job.Type, "retry")
	_ = w.Repo.RetryLater(ctx, job.ID, attempts, time.Now().Add(backoff(attempts)), errMsg)
}

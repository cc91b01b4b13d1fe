package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carenote/internal/auth"
	"carenote/internal/jobs"
	"carenote/internal/plan"
	"carenote/internal/records"
	"carenote/internal/suggest"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&auth.User{},
		&auth.Profile{},
		&records.IntakeForm{},
		&records.Assessment{},
		&suggest.TreatmentSuggestion{},
		&plan.TreatmentPlan{},
		&plan.PlanEvent{},
		&plan.PlanProjection{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Save idempotency: unique per profile + key where a key was sent.
	if err := gdb.Exec(`
create unique index if not exists uq_plan_events_profile_idem
on plan_events(profile_id, idempotency_key)
where idempotency_key is not null;
`).Error; err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_plan_events_plan on plan_events(plan_id, id);`,
		`create index if not exists idx_plan_proj_therapist_updated on plan_projections(therapist_id, updated_at desc);`,
		`create index if not exists idx_plan_proj_codes on plan_projections using gin (diagnosis_codes);`,
		`create index if not exists idx_assessments_therapist_date on assessments(therapist_id, session_date desc);`,
		`create index if not exists idx_intake_forms_created on intake_forms(created_at desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	qb "github.com/riskibarqy/sports-feed/internal/platform/querybuilder"
)

type JobRunRepository struct {
	db *sqlx.DB
}

func NewJobRunRepository(db *sqlx.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

func (r *JobRunRepository) Record(ctx context.Context, event jobrun.Event) error {
	model, err := buildJobRunModel(event)
	if err != nil {
		return err
	}

	query, args, err := qb.Upsert("job_runs", model).
		OnConflict("run_id").
		DoUpdate("status", "summary").
		DoUpdateExpr("started_at", "COALESCE(job_runs.started_at, EXCLUDED.started_at)").
		DoUpdateExpr("completed_at", "COALESCE(EXCLUDED.completed_at, job_runs.completed_at)").
		DoUpdateExpr("failed_at", "COALESCE(EXCLUDED.failed_at, job_runs.failed_at)").
		DoUpdateExpr("last_error", "EXCLUDED.last_error").
		DoUpdateExpr("trace_id", "COALESCE(EXCLUDED.trace_id, job_runs.trace_id)").
		DoUpdateExpr("span_id", "COALESCE(EXCLUDED.span_id, job_runs.span_id)").
		DoUpdateExpr("updated_at", "NOW()").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert job run query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job run run_id=%s status=%s: %w", model.RunID, model.Status, err)
	}
	return nil
}

func buildJobRunModel(event jobrun.Event) (jobRunUpsertModel, error) {
	runID := strings.TrimSpace(event.RunID)
	if runID == "" {
		return jobRunUpsertModel{}, fmt.Errorf("run id is required")
	}
	jobName := strings.TrimSpace(event.JobName)
	if jobName == "" {
		jobName = "unknown"
	}
	trigger := strings.TrimSpace(string(event.Trigger))
	if trigger == "" {
		trigger = "unknown"
	}

	occurredAt := event.OccurredAt.UTC()
	if event.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	summary, err := marshalSummary(event.Summary)
	if err != nil {
		return jobRunUpsertModel{}, fmt.Errorf("marshal job run summary: %w", err)
	}

	model := jobRunUpsertModel{
		RunID:     runID,
		JobName:   jobName,
		Trigger:   trigger,
		Status:    string(event.Status),
		Summary:   summary,
		LastError: optionalString(event.ErrorMessage),
		TraceID:   optionalString(event.TraceID),
		SpanID:    optionalString(event.SpanID),
	}
	switch event.Status {
	case jobrun.StatusStarted:
		model.StartedAt = &occurredAt
		model.LastError = nil
	case jobrun.StatusCompleted:
		model.CompletedAt = &occurredAt
		model.LastError = nil
	case jobrun.StatusFailed, jobrun.StatusSkipped:
		model.FailedAt = &occurredAt
	}
	return model, nil
}

func marshalSummary(summary any) (string, error) {
	if summary == nil {
		return "{}", nil
	}
	raw, err := sonic.Marshal(summary)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

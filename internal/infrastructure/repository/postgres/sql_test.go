package postgres

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("get league: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows to be not found")
	}
	if isNotFound(fmt.Errorf("pq: relation matches does not exist")) {
		t.Fatalf("expected unrelated error to not be not found")
	}
}

func TestOptionalString(t *testing.T) {
	if optionalString("   ") != nil {
		t.Fatalf("expected nil for blank value")
	}
	got := optionalString(" Anfield ")
	if got == nil || *got != "Anfield" {
		t.Fatalf("unexpected value: %v", got)
	}
}

func TestBuildJobRunModel(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	t.Run("completed clears error and sets completed_at", func(t *testing.T) {
		model, err := buildJobRunModel(jobrun.Event{
			RunID:        "run-1",
			JobName:      usecase.JobFetchMatches,
			Trigger:      jobrun.TriggerHTTP,
			Status:       jobrun.StatusCompleted,
			Summary:      usecase.MatchReconcileSummary{Competitions: 5, MatchesUpserted: 50},
			ErrorMessage: "stale",
			OccurredAt:   at,
		})
		if err != nil {
			t.Fatalf("build model: %v", err)
		}
		if model.CompletedAt == nil || !model.CompletedAt.Equal(at) {
			t.Fatalf("expected completed_at=%s, got %v", at, model.CompletedAt)
		}
		if model.LastError != nil {
			t.Fatalf("expected last_error cleared, got %q", *model.LastError)
		}
		if model.Summary != `{"competitions":5,"competitionsFailed":0,"fixtures":0,"matchesUpserted":50,"fixturesSkipped":0}` {
			t.Fatalf("unexpected summary: %s", model.Summary)
		}
	})

	t.Run("failed keeps error", func(t *testing.T) {
		model, err := buildJobRunModel(jobrun.Event{RunID: "run-2", Status: jobrun.StatusFailed, ErrorMessage: "boom", OccurredAt: at})
		if err != nil {
			t.Fatalf("build model: %v", err)
		}
		if model.FailedAt == nil || model.LastError == nil || *model.LastError != "boom" {
			t.Fatalf("unexpected failed model: %+v", model)
		}
		if model.JobName != "unknown" || model.Summary != "{}" {
			t.Fatalf("expected defaults, got job=%s summary=%s", model.JobName, model.Summary)
		}
	})

	t.Run("requires run id", func(t *testing.T) {
		if _, err := buildJobRunModel(jobrun.Event{}); err == nil {
			t.Fatalf("expected error without run id")
		}
	})
}

package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/riskibarqy/sports-feed/internal/config"
	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

func memoryConfig() config.Config {
	return config.Config{
		ServiceName:        "sports-feed",
		HTTPAddr:           ":0",
		ReadTimeout:        time.Second,
		WriteTimeout:       time.Second,
		CORSAllowedOrigins: []string{"*"},
		DBDriver:           config.DBDriverMemory,
		MetricsEnabled:     true,
		Matches:            config.MatchJobConfig{CompetitionIDs: []int64{39}, Season: 2024, Next: 10},
		News:               config.NewsJobConfig{Categories: []string{"football"}, Language: "en", PageSize: 10},
		LiveScores:         config.LiveScoreJobConfig{Provider: config.LiveProviderAPIFootball, Scopes: []string{"all"}},
		Scheduler:          config.SchedulerConfig{Enabled: false, Timezone: "UTC"},
	}
}

func TestNew_RegistersJobsInSyncOrder(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer func() { _ = a.Close() }()

	got := a.Pipeline.Jobs()
	want := []string{usecase.JobFetchMatches, usecase.JobUpdateLiveScores, usecase.JobFetchNews}
	if len(got) != len(want) {
		t.Fatalf("unexpected jobs %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected job order %v", got)
		}
	}
}

func TestNew_MissingKeysFailJobsAndSkipDependents(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	result, err := a.Pipeline.Run(context.Background(), jobrun.TriggerCLI, usecase.SequenceSyncAll)
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if len(result.Outcomes) != 3 {
		t.Fatalf("expected three outcomes, got %+v", result.Outcomes)
	}
	if result.Outcomes[1].Status != jobrun.StatusSkipped {
		t.Fatalf("expected live scores skipped after matches failed, got %s", result.Outcomes[1].Status)
	}
	if result.Outcomes[2].Status != jobrun.StatusFailed {
		t.Fatalf("expected news failed without key, got %s", result.Outcomes[2].Status)
	}
}

func TestNewScheduler_DisabledReturnsNil(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	sched, err := a.NewScheduler()
	if err != nil || sched != nil {
		t.Fatalf("expected nil scheduler, got %v err=%v", sched, err)
	}
}

func TestNewScheduler_RejectsUnknownTimezone(t *testing.T) {
	cfg := memoryConfig()
	cfg.Scheduler = config.SchedulerConfig{Enabled: true, Timezone: "Mars/Olympus", MatchesSchedule: "@hourly"}
	a, err := New(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	if _, err := a.NewScheduler(); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestNewHTTPServer_ServesHealthAndMetrics(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := a.NewHTTPServer()
	if err != nil {
		t.Fatalf("new http server: %v", err)
	}

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestNewScheduler_QStashDispatch(t *testing.T) {
	cfg := memoryConfig()
	cfg.Scheduler = config.SchedulerConfig{
		Enabled:         true,
		Dispatch:        config.DispatchQStash,
		Timezone:        "UTC",
		MatchesSchedule: "*/30 * * * *",
		QStash:          config.QStashConfig{BaseURL: "https://qstash.upstash.io", Token: "t", TargetBaseURL: "https://feed.example.com"},
	}
	a, err := New(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	sched, err := a.NewScheduler()
	if err != nil || sched == nil {
		t.Fatalf("expected scheduler, got %v err=%v", sched, err)
	}
	if err := sched.Stop(context.Background()); err != nil {
		t.Fatalf("stop scheduler: %v", err)
	}
}

func TestScheduleEntries_DefaultsNeverFireTogether(t *testing.T) {
	entries := scheduleEntries(config.SchedulerConfig{
		MatchesSchedule:    config.DefaultMatchesSchedule,
		LiveScoresSchedule: config.DefaultLiveScoresSchedule,
		NewsSchedule:       config.DefaultNewsSchedule,
	})

	start := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)
	firedBy := make(map[int64]string)
	fires := make(map[string]int)
	for _, entry := range entries {
		schedule, err := cron.ParseStandard(entry.Spec)
		if err != nil {
			t.Fatalf("parse %s spec %q: %v", entry.Name, entry.Spec, err)
		}
		for at := schedule.Next(start.Add(-time.Second)); at.Before(end); at = schedule.Next(at) {
			if other, ok := firedBy[at.Unix()]; ok {
				t.Fatalf("%s and %s both fire at %s", other, entry.Name, at)
			}
			firedBy[at.Unix()] = entry.Name
			fires[entry.Name]++
		}
	}

	if fires["matches"] != 7*48 || fires["live-scores"] != 7*24*30 || fires["news"] != 7*24 {
		t.Fatalf("unexpected fire counts: %v", fires)
	}

	matches := entries[0]
	if len(matches.Jobs) != 2 || matches.Jobs[0] != usecase.JobFetchMatches || matches.Jobs[1] != usecase.JobUpdateLiveScores {
		t.Fatalf("expected matches entry to chain the live score pass, got %v", matches.Jobs)
	}
}

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/sports-feed/internal/domain/league"
	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

type stubJob struct {
	name    string
	message string
	summary any
	err     error
}

func (j stubJob) Name() string                     { return j.name }
func (j stubJob) SuccessMessage() string           { return j.message }
func (j stubJob) Run(context.Context) (any, error) { return j.summary, j.err }

type routerFixture struct {
	router  http.Handler
	leagues *memory.LeagueRepository
	matches *memory.MatchRepository
	news    *memory.NewsRepository
}

func newRouterFixture(t *testing.T, token string, jobs ...usecase.Job) routerFixture {
	t.Helper()

	leagues := memory.NewLeagueRepository(nil)
	matches := memory.NewMatchRepository(nil)
	articles := memory.NewNewsRepository(nil)
	logger := logging.NewNop()

	pipeline := usecase.NewPipeline(memory.NewJobRunRepository(), nil, logger, nil, jobs...)
	handler := NewHandler(usecase.NewBrowseService(leagues, matches, articles), pipeline, logger)

	return routerFixture{
		router:  NewRouter(handler, logger, []string{"*"}, token, http.NotFoundHandler()),
		leagues: leagues,
		matches: matches,
		news:    articles,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestFunctionRoute_Preflight(t *testing.T) {
	fx := newRouterFixture(t, "secret", stubJob{name: usecase.JobFetchNews, message: "News updated successfully"})

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/fetch-news", nil)
	req.Header.Set("Origin", "https://scores.example.com")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "authorization, x-client-info, apikey, content-type" {
		t.Fatalf("unexpected allow headers %q", got)
	}
}

func TestFunctionRoute_Success(t *testing.T) {
	fx := newRouterFixture(t, "", stubJob{
		name:    usecase.JobFetchNews,
		message: "News updated successfully",
		summary: usecase.NewsReconcileSummary{Categories: 5, Inserted: 12},
	})

	for _, method := range []string{http.MethodPost, http.MethodGet} {
		rec := httptest.NewRecorder()
		fx.router.ServeHTTP(rec, httptest.NewRequest(method, "/functions/v1/fetch-news", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d body=%s", method, rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["success"] != true || body["message"] != "News updated successfully" {
			t.Fatalf("%s: unexpected body %v", method, body)
		}
		summary, _ := body["summary"].(map[string]any)
		if summary["inserted"] != float64(12) {
			t.Fatalf("%s: unexpected summary %v", method, body["summary"])
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Fatalf("%s: expected CORS header on job response", method)
		}
	}
}

func TestFunctionRoute_FailureIs500(t *testing.T) {
	fx := newRouterFixture(t, "", stubJob{
		name: usecase.JobFetchMatches,
		err:  errors.New("upstream payload malformed: fixture id missing"),
	})

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/functions/v1/fetch-matches", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "fixture id missing") {
		t.Fatalf("expected error message in body, got %v", body)
	}
	if _, ok := body["success"]; ok {
		t.Fatalf("failure body must not carry success: %v", body)
	}
}

func TestFunctionRoute_SyncAllSkipsDependentJob(t *testing.T) {
	fx := newRouterFixture(t, "",
		stubJob{name: usecase.JobFetchMatches, err: errors.New("boom")},
		dependentStub{stubJob: stubJob{name: usecase.JobUpdateLiveScores, message: "Live scores updated successfully"}, deps: []string{usecase.JobFetchMatches}},
		stubJob{name: usecase.JobFetchNews, message: "News updated successfully"},
	)

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/functions/v1/sync-all", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	msg, _ := decodeBody(t, rec)["error"].(string)
	if !strings.Contains(msg, "update-live-scores skipped because fetch-matches failed") {
		t.Fatalf("expected dependency skip in error, got %q", msg)
	}
}

type funcJob struct {
	name string
	run  func(context.Context) (any, error)
}

func (j funcJob) Name() string                         { return j.name }
func (j funcJob) SuccessMessage() string               { return "Matches updated successfully" }
func (j funcJob) Run(ctx context.Context) (any, error) { return j.run(ctx) }

func TestFunctionRoute_RunSurvivesClientDisconnect(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var written int
	fx := newRouterFixture(t, "", funcJob{
		name: usecase.JobFetchMatches,
		run: func(ctx context.Context) (any, error) {
			cancel()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			written++
			return usecase.MatchReconcileSummary{Competitions: 1, MatchesUpserted: 1}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/fetch-matches", nil).WithContext(reqCtx)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after caller disconnect, got %d body=%s", rec.Code, rec.Body.String())
	}
	if written != 1 {
		t.Fatalf("expected the run to finish its writes, got %d", written)
	}
	if reqCtx.Err() == nil {
		t.Fatalf("expected request context to be cancelled")
	}
}

type dependentStub struct {
	stubJob
	deps []string
}

func (j dependentStub) DependsOn() []string { return j.deps }

func TestFunctionRoute_TokenAndUnknownJob(t *testing.T) {
	fx := newRouterFixture(t, "secret", stubJob{name: usecase.JobFetchNews, message: "ok"})

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/functions/v1/fetch-news", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/functions/v1/fetch-weather", nil)
	req.Header.Set("X-Internal-Job-Token", "secret")
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestReadAPI_MatchesByLeague(t *testing.T) {
	fx := newRouterFixture(t, "")
	ctx := context.Background()

	l, err := fx.leagues.Upsert(ctx, league.League{ExternalID: "39", Name: "Premier League", Sport: "football"})
	if err != nil {
		t.Fatalf("seed league: %v", err)
	}
	if _, err := fx.matches.Upsert(ctx, match.Match{
		ExternalID: "1035000",
		LeagueID:   l.ID,
		HomeTeamID: "home",
		AwayTeamID: "away",
		MatchDate:  time.Date(2024, 8, 16, 19, 0, 0, 0, time.UTC),
		Status:     "2H",
		HomeScore:  1,
	}); err != nil {
		t.Fatalf("seed match: %v", err)
	}

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leagues/"+l.ID+"/matches", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	items, _ := decodeBody(t, rec)["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one match, got %v", items)
	}
	first, _ := items[0].(map[string]any)
	if first["statusCategory"] != "live" || first["homeScore"] != float64(1) {
		t.Fatalf("unexpected match dto %v", first)
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/live", nil))
	if items, _ := decodeBody(t, rec)["data"].([]any); len(items) != 1 {
		t.Fatalf("expected live match listed, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches?category=live", nil))
	if items, _ := decodeBody(t, rec)["data"].([]any); rec.Code != http.StatusOK || len(items) != 1 {
		t.Fatalf("expected live match under category filter, got %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches?category=finished", nil))
	if items, _ := decodeBody(t, rec)["data"].([]any); len(items) != 0 {
		t.Fatalf("expected no finished matches, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches?category=halftime", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leagues/not-a-uuid/matches", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leagues/8f14e45f-ceea-467f-a8f4-4b1c7e1d2b11/matches", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown league, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/news?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	fx := newRouterFixture(t, "")

	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/domain/team"
	"github.com/riskibarqy/sports-feed/internal/infrastructure/repository/memory"
	teammock "github.com/riskibarqy/sports-feed/internal/mocks/domain/team"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
)

type stubFixtureProvider struct {
	byCompetition map[int64][]ExternalFixture
	errs          map[int64]error
	queries       []FixtureQuery
}

func (p *stubFixtureProvider) FetchFixtures(_ context.Context, query FixtureQuery) ([]ExternalFixture, error) {
	p.queries = append(p.queries, query)
	if err := p.errs[query.CompetitionID]; err != nil {
		return nil, err
	}
	return p.byCompetition[query.CompetitionID], nil
}

func intPtr(v int) *int { return &v }

func premierLeagueFixture() ExternalFixture {
	return ExternalFixture{
		ExternalID: "1035000",
		Date:       time.Date(2026, 8, 16, 14, 0, 0, 0, time.UTC),
		Status:     "NS",
		Venue:      "Old Trafford, Manchester",
		League:     ExternalLeague{ExternalID: "39", Name: "Premier League", Country: "England", Season: "2026"},
		Home:       ExternalTeam{ExternalID: "33", Name: "Manchester United"},
		Away:       ExternalTeam{ExternalID: "34", Name: "Newcastle"},
	}
}

type reconcilerFixture struct {
	leagues *memory.LeagueRepository
	teams   *memory.TeamRepository
	matches *memory.MatchRepository
}

func newReconcilerFixture() reconcilerFixture {
	return reconcilerFixture{
		leagues: memory.NewLeagueRepository(nil),
		teams:   memory.NewTeamRepository(nil),
		matches: memory.NewMatchRepository(nil),
	}
}

func (f reconcilerFixture) reconciler(provider FixtureProvider, competitions ...int64) *MatchReconciler {
	return NewMatchReconciler(provider, f.leagues, f.teams, f.matches, MatchReconcilerConfig{
		CompetitionIDs: competitions,
		Season:         2026,
		Next:           10,
	}, logging.NewNop(), nil)
}

func TestMatchReconciler_SingleFixtureCreatesGraph(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture()
	provider := &stubFixtureProvider{byCompetition: map[int64][]ExternalFixture{39: {premierLeagueFixture()}}}

	summary, err := f.reconciler(provider, 39).Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, MatchReconcileSummary{Competitions: 1, Fixtures: 1, MatchesUpserted: 1}, summary)
	assert.Equal(t, 1, f.leagues.Count())
	assert.Equal(t, 2, f.teams.Count())
	assert.Equal(t, 1, f.matches.Count())
	require.Len(t, provider.queries, 1)
	assert.Equal(t, FixtureQuery{CompetitionID: 39, Season: 2026, Next: 10}, provider.queries[0])

	stored, found, err := f.matches.GetByExternalID(context.Background(), "1035000")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "NS", stored.Status)
	assert.Equal(t, match.CategoryScheduled, stored.StatusCategory)
	assert.Zero(t, stored.HomeScore)
	assert.Zero(t, stored.AwayScore)

	home, found, err := f.teams.GetByID(context.Background(), stored.HomeTeamID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "33", home.ExternalID)

	lg, found, err := f.leagues.GetByID(context.Background(), stored.LeagueID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "39", lg.ExternalID)
	assert.Equal(t, "football", lg.Sport)
}

func TestMatchReconciler_RerunIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture()
	provider := &stubFixtureProvider{byCompetition: map[int64][]ExternalFixture{39: {premierLeagueFixture()}}}
	reconciler := f.reconciler(provider, 39)

	_, err := reconciler.Reconcile(context.Background())
	require.NoError(t, err)
	first, _, _ := f.matches.GetByExternalID(context.Background(), "1035000")

	_, err = reconciler.Reconcile(context.Background())
	require.NoError(t, err)
	second, _, _ := f.matches.GetByExternalID(context.Background(), "1035000")

	assert.Equal(t, 1, f.leagues.Count())
	assert.Equal(t, 2, f.teams.Count())
	assert.Equal(t, 1, f.matches.Count())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.HomeTeamID, second.HomeTeamID)
}

func TestMatchReconciler_OverwritesScoreAndStatus(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture()
	fixture := premierLeagueFixture()
	provider := &stubFixtureProvider{byCompetition: map[int64][]ExternalFixture{39: {fixture}}}
	reconciler := f.reconciler(provider, 39)

	_, err := reconciler.Reconcile(context.Background())
	require.NoError(t, err)

	fixture.Status = "FT"
	fixture.HomeGoals = intPtr(2)
	fixture.AwayGoals = intPtr(1)
	provider.byCompetition[39] = []ExternalFixture{fixture}

	_, err = reconciler.Reconcile(context.Background())
	require.NoError(t, err)

	stored, _, _ := f.matches.GetByExternalID(context.Background(), "1035000")
	assert.Equal(t, "FT", stored.Status)
	assert.Equal(t, match.CategoryFinished, stored.StatusCategory)
	assert.Equal(t, 2, stored.HomeScore)
	assert.Equal(t, 1, stored.AwayScore)
}

func TestMatchReconciler_TeamFailureSkipsOnlyThatMatch(t *testing.T) {
	t.Parallel()

	leagues := memory.NewLeagueRepository(nil)
	matches := memory.NewMatchRepository(nil)
	teams := teammock.NewRepository(t)

	teams.
		On("Upsert", mock.Anything, mock.MatchedBy(func(item team.Team) bool { return item.ExternalID == "34" })).
		Return(team.Team{}, errors.New("deadlock detected"))
	teams.
		On("Upsert", mock.Anything, mock.MatchedBy(func(item team.Team) bool { return item.ExternalID != "34" })).
		Return(func(_ context.Context, item team.Team) (team.Team, error) {
			item.ID = "team-" + item.ExternalID
			return item, nil
		})

	broken := premierLeagueFixture()
	healthy := premierLeagueFixture()
	healthy.ExternalID = "1035001"
	healthy.Away = ExternalTeam{ExternalID: "40", Name: "Liverpool"}

	provider := &stubFixtureProvider{byCompetition: map[int64][]ExternalFixture{39: {broken, healthy}}}
	reconciler := NewMatchReconciler(provider, leagues, teams, matches, MatchReconcilerConfig{CompetitionIDs: []int64{39}}, logging.NewNop(), nil)

	summary, err := reconciler.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MatchesUpserted)
	assert.Equal(t, 1, summary.FixturesSkipped)

	_, found, _ := matches.GetByExternalID(context.Background(), "1035000")
	assert.False(t, found, "match with unresolved team must not be written")
	stored, found, _ := matches.GetByExternalID(context.Background(), "1035001")
	require.True(t, found)
	assert.Equal(t, "team-40", stored.AwayTeamID)
}

func TestMatchReconciler_FetchFailureSkipsCompetition(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture()
	provider := &stubFixtureProvider{
		byCompetition: map[int64][]ExternalFixture{39: {premierLeagueFixture()}},
		errs:          map[int64]error{140: fmt.Errorf("%w: status=503", ErrUpstreamFetch)},
	}

	summary, err := f.reconciler(provider, 140, 39).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Competitions)
	assert.Equal(t, 1, summary.CompetitionsFailed)
	assert.Equal(t, 1, summary.MatchesUpserted)
}

func TestMatchReconciler_SchemaFailureAborts(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture()
	provider := &stubFixtureProvider{
		byCompetition: map[int64][]ExternalFixture{39: {premierLeagueFixture()}},
		errs:          map[int64]error{140: fmt.Errorf("%w: fixture.id missing", ErrUpstreamSchema)},
	}

	_, err := f.reconciler(provider, 140, 39).Reconcile(context.Background())
	require.ErrorIs(t, err, ErrUpstreamSchema)
	assert.Zero(t, f.matches.Count())
	assert.Len(t, provider.queries, 1)
}

func TestMatchReconciler_MissingProvider(t *testing.T) {
	t.Parallel()

	f := newReconcilerFixture()
	_, err := f.reconciler(nil, 39).Reconcile(context.Background())
	require.ErrorIs(t, err, ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "RAPIDAPI_KEY")
}

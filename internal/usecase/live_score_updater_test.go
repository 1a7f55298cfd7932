package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/infrastructure/repository/memory"
	matchmock "github.com/riskibarqy/sports-feed/internal/mocks/domain/match"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
)

type stubLiveProvider struct {
	byScope map[string][]ExternalLiveEvent
	errs    map[string]error
}

func (p *stubLiveProvider) FetchLiveEvents(_ context.Context, scope string) ([]ExternalLiveEvent, error) {
	if err := p.errs[scope]; err != nil {
		return nil, err
	}
	return p.byScope[scope], nil
}

func seedMatch(t *testing.T, repo *memory.MatchRepository, externalID, venue string, kickoff time.Time) match.Match {
	t.Helper()

	stored, err := repo.Upsert(context.Background(), match.Match{
		ExternalID: externalID,
		LeagueID:   "league-39",
		HomeTeamID: "team-33",
		AwayTeamID: "team-34",
		MatchDate:  kickoff,
		Status:     "NS",
		Venue:      venue,
	})
	require.NoError(t, err)
	return stored
}

func liveUpdater(provider LiveScoreProvider, repo match.Repository, venueFallback bool, scopes ...string) *LiveScoreUpdater {
	return NewLiveScoreUpdater(provider, repo, LiveScoreUpdaterConfig{Scopes: scopes, VenueFallback: venueFallback}, logging.NewNop(), nil)
}

func TestLiveScoreUpdater_PatchesByExternalID(t *testing.T) {
	t.Parallel()

	repo := memory.NewMatchRepository(nil)
	kickoff := time.Date(2026, 8, 16, 14, 0, 0, 0, time.UTC)
	seeded := seedMatch(t, repo, "1035000", "Old Trafford", kickoff)

	provider := &stubLiveProvider{byScope: map[string][]ExternalLiveEvent{
		"all": {{ExternalID: "1035000", HomeScore: intPtr(1), AwayScore: intPtr(0), Status: "2H"}},
	}}

	summary, err := liveUpdater(provider, repo, false, "all").Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)

	stored, _, _ := repo.GetByExternalID(context.Background(), "1035000")
	assert.Equal(t, seeded.ID, stored.ID)
	assert.Equal(t, 1, stored.HomeScore)
	assert.Equal(t, "2H", stored.Status)
	assert.Equal(t, match.CategoryLive, stored.StatusCategory)
	assert.Equal(t, kickoff, stored.MatchDate)
	assert.Equal(t, "Old Trafford", stored.Venue)
}

func TestLiveScoreUpdater_UnknownMatchIsSkippedNotCreated(t *testing.T) {
	t.Parallel()

	repo := memory.NewMatchRepository(nil)
	provider := &stubLiveProvider{byScope: map[string][]ExternalLiveEvent{
		"all": {{ExternalID: "999", HomeScore: intPtr(3), AwayScore: intPtr(3), Status: "HT"}},
	}}

	summary, err := liveUpdater(provider, repo, false, "all").Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Zero(t, summary.Updated)
	assert.Zero(t, repo.Count())
}

func TestLiveScoreUpdater_VenueFallbackPicksMostRecent(t *testing.T) {
	t.Parallel()

	repo := memory.NewMatchRepository(nil)
	seedMatch(t, repo, "1", "Emirates Stadium, London", time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC))
	latest := seedMatch(t, repo, "2", "Emirates Stadium, London", time.Date(2026, 8, 20, 15, 0, 0, 0, time.UTC))

	provider := &stubLiveProvider{byScope: map[string][]ExternalLiveEvent{
		"soccer_epl": {{VenueHint: "emirates stadium", HomeScore: intPtr(2), AwayScore: intPtr(2), Status: "FT"}},
	}}

	summary, err := liveUpdater(provider, repo, true, "soccer_epl").Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.VenueMatched)

	stored, _, _ := repo.GetByExternalID(context.Background(), "2")
	assert.Equal(t, latest.ID, stored.ID)
	assert.Equal(t, "FT", stored.Status)
	untouched, _, _ := repo.GetByExternalID(context.Background(), "1")
	assert.Equal(t, "NS", untouched.Status)
}

func TestLiveScoreUpdater_VenueHintIgnoredWhenFallbackOff(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	provider := &stubLiveProvider{byScope: map[string][]ExternalLiveEvent{
		"all": {{VenueHint: "Anfield", Status: "1H"}},
	}}

	summary, err := liveUpdater(provider, repo, false, "all").Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unmatched)
	repo.AssertNotCalled(t, "FindByVenue", mock.Anything, mock.Anything)
}

func TestLiveScoreUpdater_PatchFailureContinues(t *testing.T) {
	t.Parallel()

	repo := matchmock.NewRepository(t)
	repo.On("GetByExternalID", mock.Anything, "a").Return(match.Match{ID: "match-a"}, true, nil).Once()
	repo.On("GetByExternalID", mock.Anything, "b").Return(match.Match{ID: "match-b"}, true, nil).Once()
	repo.On("PatchScore", mock.Anything, "match-a", mock.Anything).Return(fmt.Errorf("timeout")).Once()
	repo.On("PatchScore", mock.Anything, "match-b", match.ScorePatch{HomeScore: 0, AwayScore: 1, Status: "ET"}).Return(nil).Once()

	provider := &stubLiveProvider{byScope: map[string][]ExternalLiveEvent{
		"all": {
			{ExternalID: "a", Status: "HT"},
			{ExternalID: "b", AwayScore: intPtr(1), Status: "ET"},
		},
	}}

	summary, err := liveUpdater(provider, repo, false, "all").Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.Events)
}

func TestLiveScoreUpdater_ScopeFailures(t *testing.T) {
	t.Parallel()

	repo := memory.NewMatchRepository(nil)
	provider := &stubLiveProvider{errs: map[string]error{
		"39":  fmt.Errorf("%w: status=500", ErrUpstreamFetch),
		"140": fmt.Errorf("%w: fixture.id missing", ErrUpstreamSchema),
	}}

	summary, err := liveUpdater(provider, repo, false, "39", "140", "61").Update(context.Background())
	require.ErrorIs(t, err, ErrUpstreamSchema)
	assert.Equal(t, 1, summary.ScopesFailed)
	assert.Equal(t, 2, summary.Scopes)
}

func TestLiveScoreUpdater_DependsOnMatches(t *testing.T) {
	t.Parallel()

	u := liveUpdater(nil, memory.NewMatchRepository(nil), false)
	assert.Equal(t, []string{JobFetchMatches}, u.DependsOn())

	_, err := u.Update(context.Background())
	require.ErrorIs(t, err, ErrDependencyUnavailable)
}

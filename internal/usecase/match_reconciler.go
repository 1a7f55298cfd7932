package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/league"
	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/domain/team"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
)

const JobFetchMatches = "fetch-matches"

type FixtureProvider interface {
	FetchFixtures(ctx context.Context, query FixtureQuery) ([]ExternalFixture, error)
}

type FixtureQuery struct {
	CompetitionID int64
	Season        int
	Next          int
}

type ExternalFixture struct {
	ExternalID string
	Date       time.Time
	Status     string
	Venue      string
	HomeGoals  *int
	AwayGoals  *int
	League     ExternalLeague
	Home       ExternalTeam
	Away       ExternalTeam
}

type ExternalLeague struct {
	ExternalID string
	Name       string
	Country    string
	Season     string
	LogoURL    string
}

type ExternalTeam struct {
	ExternalID string
	Name       string
	LogoURL    string
}

type MatchReconcilerConfig struct {
	CompetitionIDs []int64
	Season         int
	Next           int
	Sport          string
}

type MatchReconcileSummary struct {
	Competitions       int `json:"competitions"`
	CompetitionsFailed int `json:"competitionsFailed"`
	Fixtures           int `json:"fixtures"`
	MatchesUpserted    int `json:"matchesUpserted"`
	FixturesSkipped    int `json:"fixturesSkipped"`
}

// MatchReconciler mirrors provider fixtures into leagues, teams and matches.
type MatchReconciler struct {
	provider FixtureProvider
	leagues  league.Repository
	teams    team.Repository
	matches  match.Repository
	cfg      MatchReconcilerConfig
	logger   *logging.Logger
	metrics  JobMetrics
}

func NewMatchReconciler(
	provider FixtureProvider,
	leagues league.Repository,
	teams team.Repository,
	matches match.Repository,
	cfg MatchReconcilerConfig,
	logger *logging.Logger,
	metrics JobMetrics,
) *MatchReconciler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Sport == "" {
		cfg.Sport = "football"
	}

	return &MatchReconciler{
		provider: provider,
		leagues:  leagues,
		teams:    teams,
		matches:  matches,
		cfg:      cfg,
		logger:   logger,
		metrics:  metricsOrNoop(metrics),
	}
}

func (s *MatchReconciler) Name() string { return JobFetchMatches }

func (s *MatchReconciler) SuccessMessage() string { return "Matches updated successfully" }

func (s *MatchReconciler) Run(ctx context.Context) (any, error) {
	return s.Reconcile(ctx)
}

// Reconcile walks every configured competition sequentially. Fetch failures
// skip the competition; malformed payloads abort the pass.
func (s *MatchReconciler) Reconcile(ctx context.Context) (MatchReconcileSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchReconciler.Reconcile")
	defer span.End()

	var summary MatchReconcileSummary
	if s.provider == nil {
		return summary, fmt.Errorf("%w: fixture provider is not configured (RAPIDAPI_KEY)", ErrDependencyUnavailable)
	}

	for _, competitionID := range s.cfg.CompetitionIDs {
		summary.Competitions++

		fixtures, err := s.provider.FetchFixtures(ctx, FixtureQuery{
			CompetitionID: competitionID,
			Season:        s.cfg.Season,
			Next:          s.cfg.Next,
		})
		if err != nil {
			if abortsRun(ctx, err) {
				return summary, fmt.Errorf("fetch fixtures competition=%d: %w", competitionID, err)
			}
			summary.CompetitionsFailed++
			s.metrics.ObserveItems(JobFetchMatches, "fetch_failed", 1)
			s.logger.WarnContext(ctx, "skip competition: fetch fixtures failed",
				"competition_id", competitionID,
				"error", err,
			)
			continue
		}

		for _, fx := range fixtures {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Fixtures++
			if s.reconcileFixture(ctx, fx) {
				summary.MatchesUpserted++
				s.metrics.ObserveItems(JobFetchMatches, "upserted", 1)
				continue
			}
			summary.FixturesSkipped++
			s.metrics.ObserveItems(JobFetchMatches, "skipped", 1)
		}
	}

	s.logger.InfoContext(ctx, "match reconcile completed",
		"competitions", summary.Competitions,
		"competitions_failed", summary.CompetitionsFailed,
		"fixtures", summary.Fixtures,
		"matches_upserted", summary.MatchesUpserted,
		"fixtures_skipped", summary.FixturesSkipped,
	)
	return summary, nil
}

// reconcileFixture upserts the league and both teams, and the match only when
// all three resolved.
func (s *MatchReconciler) reconcileFixture(ctx context.Context, fx ExternalFixture) bool {
	storedLeague, leagueErr := s.leagues.Upsert(ctx, league.League{
		ExternalID: fx.League.ExternalID,
		Name:       fx.League.Name,
		Sport:      s.cfg.Sport,
		Country:    fx.League.Country,
		Season:     fx.League.Season,
		LogoURL:    fx.League.LogoURL,
	})
	if leagueErr != nil {
		s.logger.WarnContext(ctx, "league upsert failed",
			"league_external_id", fx.League.ExternalID,
			"fixture_external_id", fx.ExternalID,
			"error", leagueErr,
		)
	}

	home, homeErr := s.upsertTeam(ctx, fx.ExternalID, fx.Home)
	away, awayErr := s.upsertTeam(ctx, fx.ExternalID, fx.Away)
	if leagueErr != nil || homeErr != nil || awayErr != nil {
		s.logger.WarnContext(ctx, "skip match upsert: unresolved references",
			"fixture_external_id", fx.ExternalID,
			"league_resolved", leagueErr == nil,
			"home_resolved", homeErr == nil,
			"away_resolved", awayErr == nil,
		)
		return false
	}

	_, err := s.matches.Upsert(ctx, match.Match{
		ExternalID:     fx.ExternalID,
		LeagueID:       storedLeague.ID,
		HomeTeamID:     home.ID,
		AwayTeamID:     away.ID,
		MatchDate:      fx.Date,
		Status:         fx.Status,
		StatusCategory: match.Categorize(fx.Status),
		HomeScore:      scoreOrZero(fx.HomeGoals),
		AwayScore:      scoreOrZero(fx.AwayGoals),
		Venue:          fx.Venue,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "match upsert failed",
			"fixture_external_id", fx.ExternalID,
			"error", err,
		)
		return false
	}
	return true
}

func (s *MatchReconciler) upsertTeam(ctx context.Context, fixtureExternalID string, ext ExternalTeam) (team.Team, error) {
	stored, err := s.teams.Upsert(ctx, team.Team{
		ExternalID: ext.ExternalID,
		Name:       ext.Name,
		LogoURL:    ext.LogoURL,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "team upsert failed",
			"team_external_id", ext.ExternalID,
			"fixture_external_id", fixtureExternalID,
			"error", err,
		)
		return team.Team{}, err
	}
	return stored, nil
}

func scoreOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

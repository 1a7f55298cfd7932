package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
)

const JobUpdateLiveScores = "update-live-scores"

// LiveScoreProvider returns in-progress events for one scope. What a scope
// means is provider specific (a competition filter, a sport key).
type LiveScoreProvider interface {
	FetchLiveEvents(ctx context.Context, scope string) ([]ExternalLiveEvent, error)
}

// ExternalLiveEvent carries either the fixture external id or, for providers
// that cannot supply one, a venue hint for the fuzzy lookup.
type ExternalLiveEvent struct {
	ExternalID string
	VenueHint  string
	HomeScore  *int
	AwayScore  *int
	Status     string
}

type LiveScoreUpdaterConfig struct {
	Scopes        []string
	VenueFallback bool
}

type LiveScoreSummary struct {
	Scopes       int `json:"scopes"`
	ScopesFailed int `json:"scopesFailed"`
	Events       int `json:"events"`
	Updated      int `json:"updated"`
	Unmatched    int `json:"unmatched"`
	VenueMatched int `json:"venueMatched"`
}

// LiveScoreUpdater patches score and status onto matches that the
// fetch-matches job already stored. It never creates rows.
type LiveScoreUpdater struct {
	provider LiveScoreProvider
	matches  match.Repository
	cfg      LiveScoreUpdaterConfig
	logger   *logging.Logger
	metrics  JobMetrics
}

func NewLiveScoreUpdater(
	provider LiveScoreProvider,
	matches match.Repository,
	cfg LiveScoreUpdaterConfig,
	logger *logging.Logger,
	metrics JobMetrics,
) *LiveScoreUpdater {
	if logger == nil {
		logger = logging.Default()
	}
	return &LiveScoreUpdater{
		provider: provider,
		matches:  matches,
		cfg:      cfg,
		logger:   logger,
		metrics:  metricsOrNoop(metrics),
	}
}

func (s *LiveScoreUpdater) Name() string { return JobUpdateLiveScores }

func (s *LiveScoreUpdater) SuccessMessage() string { return "Live scores updated successfully" }

// DependsOn lists jobs whose failure in the same pipeline run skips this one.
func (s *LiveScoreUpdater) DependsOn() []string { return []string{JobFetchMatches} }

func (s *LiveScoreUpdater) Run(ctx context.Context) (any, error) {
	return s.Update(ctx)
}

func (s *LiveScoreUpdater) Update(ctx context.Context) (LiveScoreSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveScoreUpdater.Update")
	defer span.End()

	var summary LiveScoreSummary
	if s.provider == nil {
		return summary, fmt.Errorf("%w: live score provider is not configured", ErrDependencyUnavailable)
	}

	for _, scope := range s.cfg.Scopes {
		summary.Scopes++

		events, err := s.provider.FetchLiveEvents(ctx, scope)
		if err != nil {
			if abortsRun(ctx, err) {
				return summary, fmt.Errorf("fetch live events scope=%s: %w", scope, err)
			}
			summary.ScopesFailed++
			s.metrics.ObserveItems(JobUpdateLiveScores, "fetch_failed", 1)
			s.logger.WarnContext(ctx, "skip live scope: fetch events failed", "scope", scope, "error", err)
			continue
		}

		for _, event := range events {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Events++

			stored, found, byVenue, err := s.locate(ctx, event)
			if err != nil {
				summary.Unmatched++
				s.metrics.ObserveItems(JobUpdateLiveScores, "lookup_failed", 1)
				s.logger.WarnContext(ctx, "live event lookup failed",
					"external_id", event.ExternalID,
					"venue_hint", event.VenueHint,
					"error", err,
				)
				continue
			}
			if !found {
				summary.Unmatched++
				s.metrics.ObserveItems(JobUpdateLiveScores, "unmatched", 1)
				s.logger.DebugContext(ctx, "skip live event: no stored match",
					"external_id", event.ExternalID,
					"venue_hint", event.VenueHint,
				)
				continue
			}
			if byVenue {
				summary.VenueMatched++
				s.logger.DebugContext(ctx, "live event matched by venue text, best effort",
					"venue_hint", event.VenueHint,
					"match_id", stored.ID,
					"venue", stored.Venue,
				)
			}

			patch := match.ScorePatch{
				HomeScore: scoreOrZero(event.HomeScore),
				AwayScore: scoreOrZero(event.AwayScore),
				Status:    event.Status,
			}
			if err := s.matches.PatchScore(ctx, stored.ID, patch); err != nil {
				s.metrics.ObserveItems(JobUpdateLiveScores, "write_failed", 1)
				s.logger.WarnContext(ctx, "patch live score failed", "match_id", stored.ID, "error", err)
				continue
			}
			summary.Updated++
			s.metrics.ObserveItems(JobUpdateLiveScores, "updated", 1)
		}
	}

	s.logger.InfoContext(ctx, "live score update completed",
		"scopes", summary.Scopes,
		"scopes_failed", summary.ScopesFailed,
		"events", summary.Events,
		"updated", summary.Updated,
		"unmatched", summary.Unmatched,
		"venue_matched", summary.VenueMatched,
	)
	return summary, nil
}

func (s *LiveScoreUpdater) locate(ctx context.Context, event ExternalLiveEvent) (match.Match, bool, bool, error) {
	if externalID := strings.TrimSpace(event.ExternalID); externalID != "" {
		stored, found, err := s.matches.GetByExternalID(ctx, externalID)
		return stored, found, false, err
	}
	hint := strings.TrimSpace(event.VenueHint)
	if !s.cfg.VenueFallback || hint == "" {
		return match.Match{}, false, false, nil
	}
	stored, found, err := s.matches.FindByVenue(ctx, hint)
	return stored, found, found, err
}

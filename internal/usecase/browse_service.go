package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/sports-feed/internal/domain/league"
	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/domain/news"
	"github.com/riskibarqy/sports-feed/internal/platform/id"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// BrowseService serves the ordered, limited reads of the browsing UI.
type BrowseService struct {
	leagues  league.Repository
	matches  match.Repository
	articles news.Repository
}

func NewBrowseService(leagues league.Repository, matches match.Repository, articles news.Repository) *BrowseService {
	return &BrowseService{leagues: leagues, matches: matches, articles: articles}
}

func (s *BrowseService) ListLeagues(ctx context.Context, sport string) ([]league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BrowseService.ListLeagues")
	defer span.End()

	items, err := s.leagues.List(ctx, strings.TrimSpace(sport))
	if err != nil {
		return nil, fmt.Errorf("list leagues: %w", err)
	}
	return items, nil
}

func (s *BrowseService) ListMatchesByLeague(ctx context.Context, leagueID string, limit int) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BrowseService.ListMatchesByLeague")
	defer span.End()

	leagueID = strings.TrimSpace(leagueID)
	if !id.IsUUID(leagueID) {
		return nil, fmt.Errorf("%w: league id must be a uuid", ErrInvalidInput)
	}

	_, exists, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("get league by id=%s: %w", leagueID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: league id=%s", ErrNotFound, leagueID)
	}

	items, err := s.matches.ListByLeague(ctx, leagueID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list matches by league=%s: %w", leagueID, err)
	}
	return items, nil
}

func (s *BrowseService) ListLiveMatches(ctx context.Context, limit int) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BrowseService.ListLiveMatches")
	defer span.End()

	items, err := s.matches.ListByCategory(ctx, match.CategoryLive, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list live matches: %w", err)
	}
	return items, nil
}

// ListMatchesByCategory filters on the status category name, e.g. "finished".
func (s *BrowseService) ListMatchesByCategory(ctx context.Context, rawCategory string, limit int) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BrowseService.ListMatchesByCategory")
	defer span.End()

	category, ok := match.ParseCategory(rawCategory)
	if !ok {
		return nil, fmt.Errorf("%w: category must be one of scheduled, live, finished, unknown", ErrInvalidInput)
	}

	items, err := s.matches.ListByCategory(ctx, category, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list matches by category=%s: %w", category, err)
	}
	return items, nil
}

func (s *BrowseService) ListNews(ctx context.Context, sport string, limit int) ([]news.Article, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BrowseService.ListNews")
	defer span.End()

	items, err := s.articles.List(ctx, strings.TrimSpace(sport), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return items, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

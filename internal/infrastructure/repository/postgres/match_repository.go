package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-feed/internal/domain/match"
	qb "github.com/riskibarqy/sports-feed/internal/platform/querybuilder"
)

var matchColumns = []string{
	"id", "external_id", "league_id", "home_team_id", "away_team_id", "match_date",
	"status", "status_category", "home_score", "away_score", "venue", "created_at", "updated_at",
}

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) Upsert(ctx context.Context, item match.Match) (match.Match, error) {
	if err := item.Validate(); err != nil {
		return match.Match{}, fmt.Errorf("upsert match: %w", err)
	}

	query, args, err := qb.Upsert("matches", matchUpsertModel{
		ExternalID:     item.ExternalID,
		LeagueID:       item.LeagueID,
		HomeTeamID:     item.HomeTeamID,
		AwayTeamID:     item.AwayTeamID,
		MatchDate:      item.MatchDate.UTC(),
		Status:         item.Status,
		StatusCategory: string(match.Categorize(item.Status)),
		HomeScore:      item.HomeScore,
		AwayScore:      item.AwayScore,
		Venue:          optionalString(item.Venue),
	}).
		OnConflict("external_id").
		DoUpdate("league_id", "home_team_id", "away_team_id", "match_date",
			"status", "status_category", "home_score", "away_score", "venue").
		DoUpdateExpr("updated_at", "NOW()").
		Returning(matchColumns...).
		ToSQL()
	if err != nil {
		return match.Match{}, fmt.Errorf("build upsert match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return match.Match{}, fmt.Errorf("upsert match external_id=%s: %w", item.ExternalID, err)
	}
	return matchFromRow(row), nil
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, externalID string) (match.Match, bool, error) {
	return r.getOne(ctx, "get match by external id", qb.Select(matchColumns...).From("matches").
		Where(qb.Eq("external_id", externalID)))
}

func (r *MatchRepository) FindByVenue(ctx context.Context, venue string) (match.Match, bool, error) {
	if venue == "" {
		return match.Match{}, false, nil
	}
	return r.getOne(ctx, "find match by venue", findByVenueQuery(venue))
}

// findByVenueQuery picks the most recent match whose venue contains the hint.
func findByVenueQuery(venue string) *qb.SelectBuilder {
	return qb.Select(matchColumns...).From("matches").
		Where(qb.ContainsFold("venue", venue)).
		OrderBy("match_date DESC").
		Limit(1)
}

func (r *MatchRepository) PatchScore(ctx context.Context, matchID string, patch match.ScorePatch) error {
	query, args, err := qb.Update("matches").
		Set("home_score", patch.HomeScore).
		Set("away_score", patch.AwayScore).
		Set("status", patch.Status).
		Set("status_category", string(match.Categorize(patch.Status))).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", matchID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build patch match score query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patch match score id=%s: %w", matchID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("patch match score id=%s: no row updated", matchID)
	}
	return nil
}

func (r *MatchRepository) ListByLeague(ctx context.Context, leagueID string, limit int) ([]match.Match, error) {
	return r.list(ctx, "list matches by league", qb.Select(matchColumns...).From("matches").
		Where(qb.Eq("league_id", leagueID)).
		OrderBy("match_date ASC").
		Limit(limit))
}

func (r *MatchRepository) ListByCategory(ctx context.Context, category match.Category, limit int) ([]match.Match, error) {
	return r.list(ctx, "list matches by category", qb.Select(matchColumns...).From("matches").
		Where(qb.Eq("status_category", string(category))).
		OrderBy("match_date ASC").
		Limit(limit))
}

func (r *MatchRepository) getOne(ctx context.Context, op string, builder *qb.SelectBuilder) (match.Match, bool, error) {
	query, args, err := builder.ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build %s query: %w", op, err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return matchFromRow(row), true, nil
}

func (r *MatchRepository) list(ctx context.Context, op string, builder *qb.SelectBuilder) ([]match.Match, error) {
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}
	return out, nil
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:             row.ID,
		ExternalID:     nullStringValue(row.ExternalID),
		LeagueID:       row.LeagueID,
		HomeTeamID:     row.HomeTeamID,
		AwayTeamID:     row.AwayTeamID,
		MatchDate:      row.MatchDate,
		Status:         row.Status,
		StatusCategory: match.Category(row.StatusCategory),
		HomeScore:      row.HomeScore,
		AwayScore:      row.AwayScore,
		Venue:          nullStringValue(row.Venue),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

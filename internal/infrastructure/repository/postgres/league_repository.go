package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-feed/internal/domain/league"
	qb "github.com/riskibarqy/sports-feed/internal/platform/querybuilder"
)

var leagueColumns = []string{"id", "external_id", "name", "sport", "country", "season", "logo_url", "created_at", "updated_at"}

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) Upsert(ctx context.Context, item league.League) (league.League, error) {
	if err := item.Validate(); err != nil {
		return league.League{}, fmt.Errorf("upsert league: %w", err)
	}

	query, args, err := qb.Upsert("leagues", leagueUpsertModel{
		ExternalID: item.ExternalID,
		Name:       item.Name,
		Sport:      item.Sport,
		Country:    optionalString(item.Country),
		Season:     optionalString(item.Season),
		LogoURL:    optionalString(item.LogoURL),
	}).
		OnConflict("external_id").
		DoUpdate("name", "sport", "country", "season", "logo_url").
		DoUpdateExpr("updated_at", "NOW()").
		Returning(leagueColumns...).
		ToSQL()
	if err != nil {
		return league.League{}, fmt.Errorf("build upsert league query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return league.League{}, fmt.Errorf("upsert league external_id=%s: %w", item.ExternalID, err)
	}
	return leagueFromRow(row), nil
}

func (r *LeagueRepository) List(ctx context.Context, sport string) ([]league.League, error) {
	builder := qb.Select(leagueColumns...).From("leagues").OrderBy("name ASC")
	if sport != "" {
		builder = builder.Where(qb.Eq("sport", sport))
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select leagues: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		out = append(out, leagueFromRow(row))
	}
	return out, nil
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	query, args, err := qb.Select(leagueColumns...).From("leagues").
		Where(qb.Eq("id", leagueID)).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build get league by id query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("get league by id: %w", err)
	}
	return leagueFromRow(row), true, nil
}

func leagueFromRow(row leagueTableModel) league.League {
	return league.League{
		ID:         row.ID,
		ExternalID: nullStringValue(row.ExternalID),
		Name:       row.Name,
		Sport:      row.Sport,
		Country:    nullStringValue(row.Country),
		Season:     nullStringValue(row.Season),
		LogoURL:    nullStringValue(row.LogoURL),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-feed/internal/domain/team"
	qb "github.com/riskibarqy/sports-feed/internal/platform/querybuilder"
)

var teamColumns = []string{"id", "external_id", "name", "country", "logo_url", "created_at", "updated_at"}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) (team.Team, error) {
	if err := item.Validate(); err != nil {
		return team.Team{}, fmt.Errorf("upsert team: %w", err)
	}

	query, args, err := qb.Upsert("teams", teamUpsertModel{
		ExternalID: item.ExternalID,
		Name:       item.Name,
		Country:    optionalString(item.Country),
		LogoURL:    optionalString(item.LogoURL),
	}).
		OnConflict("external_id").
		DoUpdate("name").
		DoUpdateExpr("country", "COALESCE(EXCLUDED.country, teams.country)").
		DoUpdateExpr("logo_url", "COALESCE(EXCLUDED.logo_url, teams.logo_url)").
		DoUpdateExpr("updated_at", "NOW()").
		Returning(teamColumns...).
		ToSQL()
	if err != nil {
		return team.Team{}, fmt.Errorf("build upsert team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return team.Team{}, fmt.Errorf("upsert team external_id=%s: %w", item.ExternalID, err)
	}
	return teamFromRow(row), nil
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	query, args, err := qb.Select(teamColumns...).From("teams").
		Where(qb.Eq("id", teamID)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build get team by id query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team by id: %w", err)
	}
	return teamFromRow(row), true, nil
}

func teamFromRow(row teamTableModel) team.Team {
	return team.Team{
		ID:         row.ID,
		ExternalID: nullStringValue(row.ExternalID),
		Name:       row.Name,
		Country:    nullStringValue(row.Country),
		LogoURL:    nullStringValue(row.LogoURL),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

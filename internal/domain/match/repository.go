package match

import "context"

// Repository describes match persistence needs from use cases.
type Repository interface {
	// Upsert inserts or updates by external id. Scores and status are
	// overwritten with the incoming values.
	Upsert(ctx context.Context, item Match) (Match, error)
	GetByExternalID(ctx context.Context, externalID string) (Match, bool, error)
	// FindByVenue returns the most recent match whose venue contains the
	// given text, case-insensitively.
	FindByVenue(ctx context.Context, venue string) (Match, bool, error)
	PatchScore(ctx context.Context, matchID string, patch ScorePatch) error
	ListByLeague(ctx context.Context, leagueID string, limit int) ([]Match, error)
	ListByCategory(ctx context.Context, category Category, limit int) ([]Match, error)
}

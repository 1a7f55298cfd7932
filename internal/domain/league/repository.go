package league

import "context"

// Repository describes league persistence needs from use cases.
type Repository interface {
	// Upsert inserts or updates by external id and returns the stored row.
	Upsert(ctx context.Context, item League) (League, error)
	List(ctx context.Context, sport string) ([]League, error)
	GetByID(ctx context.Context, leagueID string) (League, bool, error)
}

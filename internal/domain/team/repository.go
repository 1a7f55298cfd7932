package team

import "context"

// Repository describes team persistence needs from use cases.
type Repository interface {
	// Upsert inserts or updates by external id. Empty country and logo
	// values do not clear what is already stored.
	Upsert(ctx context.Context, item Team) (Team, error)
	GetByID(ctx context.Context, teamID string) (Team, bool, error)
}
